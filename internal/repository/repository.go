// Package repository holds the persistence contracts of the shop and their
// PostgreSQL and in-process implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"sweetshop/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTotalMismatch     = errors.New("order total does not match current prices")
	ErrAmountOverflow    = errors.New("order amount exceeds the supported range")
)

// StockError names the sweet whose stock could not cover a line.
// It matches ErrInsufficientStock with errors.Is.
type StockError struct {
	SweetID   uuid.UUID
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return "insufficient stock for " + e.Name
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// TotalError carries both totals of a rejected checkout.
// It matches ErrTotalMismatch with errors.Is.
type TotalError struct {
	Expected int64
	Actual   int64
}

func (e *TotalError) Error() string {
	return ErrTotalMismatch.Error()
}

func (e *TotalError) Is(target error) bool {
	return target == ErrTotalMismatch
}

// SweetRepository stores catalog entries. Update overwrites quantity as an
// admin correction; stock movement from sales and restocks goes through
// Inventory.
type SweetRepository interface {
	Create(ctx context.Context, sweet *model.Sweet) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Sweet, error)
	// Update replaces every editable field including quantity
	Update(ctx context.Context, sweet *model.Sweet) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q model.SweetQuery) ([]model.Sweet, int64, error)
}

// PurchaseRepository reads purchase history. Purchases are only written by Inventory.
type PurchaseRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error)
	ListByUser(ctx context.Context, userID uuid.UUID, q model.PageQuery) ([]model.Purchase, int64, error)
	// ListAll preloads the purchaser profile of every record
	ListAll(ctx context.Context, q model.PageQuery) ([]model.Purchase, int64, error)
}

// UserRepository stores credentials and profiles
type UserRepository interface {
	// CreateWithProfile inserts both rows atomically
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetProfile returns the profile with the account email filled in
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	UpdateProfile(ctx context.Context, profile *model.Profile) error
	SetRole(ctx context.Context, id uuid.UUID, role model.Role) error
}

// TokenRepository tracks revoked token ids
type TokenRepository interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// PurgeExpired forgets revocations whose tokens have expired on their own
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// OrderLine is one requested sweet and quantity
type OrderLine struct {
	SweetID  uuid.UUID
	Quantity int
}

// OrderRequest is the input of the atomic purchase primitive. Lines must
// reference distinct sweets.
type OrderRequest struct {
	UserID        uuid.UUID
	CustomerName  string
	Address       string
	ContactNumber string
	Lines         []OrderLine
	// ExpectedTotal, when set, must equal the total computed from stored prices
	ExpectedTotal *int64
}

// Inventory owns every stock mutation. Implementations guarantee that an
// operation either applies completely or leaves no trace.
type Inventory interface {
	// PlaceOrder checks and decrements stock for every line and records the
	// purchase with unit prices captured at that moment
	PlaceOrder(ctx context.Context, req OrderRequest) (*model.Purchase, error)
	// Restock atomically adds quantity and returns the updated sweet
	Restock(ctx context.Context, id uuid.UUID, quantity int) (*model.Sweet, error)
}

// Store bundles every repository of one backend
type Store struct {
	Sweets    SweetRepository
	Purchases PurchaseRepository
	Users     UserRepository
	Tokens    TokenRepository
	Inventory Inventory
	// Ping reports whether the backend answers
	Ping func(ctx context.Context) error
}

// deadline bounds lock waits of a single stock operation
const deadline = 10 * time.Second
