package service

import (
	"context"
	"errors"

	"sweetshop/internal/apperror"
	"sweetshop/internal/model"
	"sweetshop/internal/repository"

	"github.com/google/uuid"
)

// HistoryService reads purchase records
type HistoryService struct {
	purchases repository.PurchaseRepository
}

// NewHistoryService creates the history service
func NewHistoryService(purchases repository.PurchaseRepository) *HistoryService {
	return &HistoryService{purchases: purchases}
}

// ListMine returns the caller's own purchases only
func (s *HistoryService) ListMine(ctx context.Context, id Identity, q model.PageQuery) (model.Page[model.Purchase], error) {
	if err := id.RequireUser(); err != nil {
		return model.Page[model.Purchase]{}, err
	}

	purchases, total, err := s.purchases.ListByUser(ctx, id.UserID(), q)
	if err != nil {
		return model.Page[model.Purchase]{}, apperror.InternalError(err)
	}
	return model.NewPage(purchases, q, total), nil
}

// ListAll returns every purchase with its purchaser
func (s *HistoryService) ListAll(ctx context.Context, id Identity, q model.PageQuery) (model.Page[model.Purchase], error) {
	if err := id.RequireAdmin(); err != nil {
		return model.Page[model.Purchase]{}, err
	}

	purchases, total, err := s.purchases.ListAll(ctx, q)
	if err != nil {
		return model.Page[model.Purchase]{}, apperror.InternalError(err)
	}
	return model.NewPage(purchases, q, total), nil
}

// Get returns one purchase to its owner or an admin. Anyone else gets
// NOT_FOUND, never FORBIDDEN.
func (s *HistoryService) Get(ctx context.Context, id Identity, purchaseID uuid.UUID) (*model.Purchase, error) {
	if err := id.RequireUser(); err != nil {
		return nil, err
	}

	purchase, err := s.purchases.GetByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("purchase not found")
		}
		return nil, apperror.InternalError(err)
	}
	if purchase.UserID != id.UserID() && !id.IsAdmin() {
		return nil, apperror.NotFound("purchase not found")
	}
	return purchase, nil
}
