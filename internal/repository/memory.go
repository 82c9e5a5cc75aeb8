package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"sweetshop/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// memoryDB is the shared state of the in-process store. A single mutex
// serializes every operation, which is only valid within one process.
type memoryDB struct {
	mu        sync.Mutex
	sweets    map[uuid.UUID]model.Sweet
	users     map[uuid.UUID]model.User
	profiles  map[uuid.UUID]model.Profile
	purchases map[uuid.UUID]model.Purchase
	revoked   map[string]time.Time
	itemSeq   uint
	now       func() time.Time
}

// NewMemoryStore builds the in-process store used for development and tests
func NewMemoryStore() *Store {
	db := &memoryDB{
		sweets:    make(map[uuid.UUID]model.Sweet),
		users:     make(map[uuid.UUID]model.User),
		profiles:  make(map[uuid.UUID]model.Profile),
		purchases: make(map[uuid.UUID]model.Purchase),
		revoked:   make(map[string]time.Time),
		now:       time.Now,
	}
	return &Store{
		Sweets:    &memorySweets{db},
		Purchases: &memoryPurchases{db},
		Users:     &memoryUsers{db},
		Tokens:    &memoryTokens{db},
		Inventory: &memoryInventory{db},
		Ping: func(ctx context.Context) error {
			return ctx.Err()
		},
	}
}

type memorySweets struct{ *memoryDB }

func (m *memorySweets) nameTaken(name string, except uuid.UUID) bool {
	for id, s := range m.sweets {
		if id != except && s.Name == name {
			return true
		}
	}
	return false
}

func (m *memorySweets) Create(ctx context.Context, sweet *model.Sweet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameTaken(sweet.Name, uuid.Nil) {
		return fmt.Errorf("create sweet: %w", ErrDuplicate)
	}
	if sweet.ID == uuid.Nil {
		sweet.ID = uuid.New()
	}
	now := m.now()
	sweet.CreatedAt, sweet.UpdatedAt = now, now
	m.sweets[sweet.ID] = *sweet
	return nil
}

func (m *memorySweets) GetByID(ctx context.Context, id uuid.UUID) (*model.Sweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sweet, ok := m.sweets[id]
	if !ok {
		return nil, fmt.Errorf("get sweet %s: %w", id, ErrNotFound)
	}
	return &sweet, nil
}

func (m *memorySweets) Update(ctx context.Context, sweet *model.Sweet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sweets[sweet.ID]
	if !ok {
		return fmt.Errorf("update sweet %s: %w", sweet.ID, ErrNotFound)
	}
	if m.nameTaken(sweet.Name, sweet.ID) {
		return fmt.Errorf("update sweet %s: %w", sweet.ID, ErrDuplicate)
	}
	sweet.CreatedAt = current.CreatedAt
	sweet.UpdatedAt = m.now()
	m.sweets[sweet.ID] = *sweet
	return nil
}

func (m *memorySweets) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sweets[id]; !ok {
		return fmt.Errorf("delete sweet %s: %w", id, ErrNotFound)
	}
	delete(m.sweets, id)
	return nil
}

func (m *memorySweets) List(ctx context.Context, q model.SweetQuery) ([]model.Sweet, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	needle := strings.ToLower(q.Name)
	matched := lo.Filter(lo.Values(m.sweets), func(s model.Sweet, _ int) bool {
		switch {
		case needle != "" && !strings.Contains(strings.ToLower(s.Name), needle):
			return false
		case q.Category != "" && s.Category != q.Category:
			return false
		case q.MinPrice != nil && s.PriceCents < *q.MinPrice:
			return false
		case q.MaxPrice != nil && s.PriceCents > *q.MaxPrice:
			return false
		}
		return true
	})

	slices.SortFunc(matched, func(a, b model.Sweet) int {
		var c int
		switch q.Sort {
		case model.SortPrice:
			c = cmp.Compare(a.PriceCents, b.PriceCents)
		case model.SortName:
			c = cmp.Compare(a.Name, b.Name)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if q.Descending() {
			return -c
		}
		return c
	})

	return window(matched, q.PageQuery), int64(len(matched)), nil
}

// window cuts one page out of a sorted slice
func window[T any](all []T, q model.PageQuery) []T {
	start := min(max(q.Offset(), 0), len(all))
	end := min(start+q.Limit, len(all))
	return all[start:end]
}

type memoryPurchases struct{ *memoryDB }

// clonePurchase copies the item slice so callers cannot reach stored state
func clonePurchase(p model.Purchase) model.Purchase {
	p.Items = slices.Clone(p.Items)
	return p
}

func (m *memoryPurchases) GetByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purchase, ok := m.purchases[id]
	if !ok {
		return nil, fmt.Errorf("get purchase %s: %w", id, ErrNotFound)
	}
	purchase = clonePurchase(purchase)
	return &purchase, nil
}

func (m *memoryPurchases) ListByUser(ctx context.Context, userID uuid.UUID, q model.PageQuery) ([]model.Purchase, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owned := lo.Filter(lo.Values(m.purchases), func(p model.Purchase, _ int) bool {
		return p.UserID == userID
	})
	sortPurchases(owned, q)
	return lo.Map(window(owned, q), func(p model.Purchase, _ int) model.Purchase {
		return clonePurchase(p)
	}), int64(len(owned)), nil
}

func (m *memoryPurchases) ListAll(ctx context.Context, q model.PageQuery) ([]model.Purchase, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := lo.Values(m.purchases)
	sortPurchases(all, q)
	page := lo.Map(window(all, q), func(p model.Purchase, _ int) model.Purchase {
		p = clonePurchase(p)
		if profile, ok := m.profiles[p.UserID]; ok {
			profile.Email = m.users[p.UserID].Email
			p.Purchaser = &profile
		}
		return p
	})
	return page, int64(len(all)), nil
}

func sortPurchases(purchases []model.Purchase, q model.PageQuery) {
	slices.SortFunc(purchases, func(a, b model.Purchase) int {
		var c int
		if q.Sort == model.SortTotal {
			c = cmp.Compare(a.TotalCents, b.TotalCents)
		} else {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if q.Descending() {
			return -c
		}
		return c
	})
}

type memoryUsers struct{ *memoryDB }

func (m *memoryUsers) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("create user %s: %w", user.Email, ErrDuplicate)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := m.now()
	user.CreatedAt, user.UpdatedAt = now, now
	profile.ID = user.ID
	profile.CreatedAt, profile.UpdatedAt = now, now
	if profile.Role == "" {
		profile.Role = model.RoleUser
	}
	profile.Email = user.Email

	m.users[user.ID] = *user
	m.profiles[profile.ID] = *profile
	return nil
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := lo.Find(lo.Values(m.users), func(u model.User) bool { return u.Email == email })
	if !ok {
		return nil, fmt.Errorf("get user by email: %w", ErrNotFound)
	}
	return &user, nil
}

func (m *memoryUsers) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("get profile %s: %w", id, ErrNotFound)
	}
	profile.Email = m.users[id].Email
	return &profile, nil
}

func (m *memoryUsers) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.profiles[profile.ID]
	if !ok {
		return fmt.Errorf("update profile %s: %w", profile.ID, ErrNotFound)
	}
	current.Name = profile.Name
	current.Phone = profile.Phone
	current.Address = profile.Address
	current.UpdatedAt = m.now()
	m.profiles[profile.ID] = current
	return nil
}

func (m *memoryUsers) SetRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.profiles[id]
	if !ok {
		return fmt.Errorf("set role %s: %w", id, ErrNotFound)
	}
	current.Role = role
	m.profiles[id] = current
	return nil
}

type memoryTokens struct{ *memoryDB }

func (m *memoryTokens) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.revoked[jti] = expiresAt
	return nil
}

func (m *memoryTokens) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *memoryTokens) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for jti, exp := range m.revoked {
		if exp.Before(now) {
			delete(m.revoked, jti)
			purged++
		}
	}
	return purged, nil
}

type memoryInventory struct{ *memoryDB }

// PlaceOrder holds the store mutex for the whole operation and checks every
// line before any stock is touched
func (m *memoryInventory) PlaceOrder(ctx context.Context, req OrderRequest) (*model.Purchase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items, total, err := priceLines(req, m.sweets)
	if err != nil {
		return nil, err
	}

	now := m.now()
	for i := range items {
		sweet := m.sweets[items[i].SweetID]
		sweet.Quantity -= items[i].Quantity
		sweet.UpdatedAt = now
		m.sweets[sweet.ID] = sweet

		m.itemSeq++
		items[i].ID = m.itemSeq
	}

	purchase := model.Purchase{
		ID:            uuid.New(),
		UserID:        req.UserID,
		CustomerName:  req.CustomerName,
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		Items:         items,
		TotalCents:    total,
		Status:        model.PurchaseStatusPending,
		CreatedAt:     now,
	}
	for i := range purchase.Items {
		purchase.Items[i].PurchaseID = purchase.ID
	}
	m.purchases[purchase.ID] = purchase

	out := clonePurchase(purchase)
	return &out, nil
}

func (m *memoryInventory) Restock(ctx context.Context, id uuid.UUID, quantity int) (*model.Sweet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sweet, ok := m.sweets[id]
	if !ok {
		return nil, fmt.Errorf("restock %s: %w", id, ErrNotFound)
	}
	sweet.Quantity += quantity
	sweet.UpdatedAt = m.now()
	m.sweets[id] = sweet
	return &sweet, nil
}
