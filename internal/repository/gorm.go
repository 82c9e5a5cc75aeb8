package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"sweetshop/internal/model"
	"sweetshop/pkg/database"
	"sweetshop/prometheus"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sweetColumns maps client sort keys to columns
var sweetColumns = map[string]string{
	model.SortPrice:     "price_cents",
	model.SortName:      "name",
	model.SortCreatedAt: "created_at",
}

var purchaseColumns = map[string]string{
	model.SortCreatedAt: "created_at",
	model.SortTotal:     "total_cents",
}

// NewGormStore builds the PostgreSQL backed store
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Sweets:    &GormSweetRepository{db: db},
		Purchases: &GormPurchaseRepository{db: db},
		Users:     &GormUserRepository{db: db},
		Tokens:    &GormTokenRepository{db: db},
		Inventory: &GormInventory{db: db},
		Ping: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
	}
}

// translate maps driver errors onto the package sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// orderBy sorts by the mapped column and breaks ties by id
func orderBy(q model.PageQuery, columns map[string]string) clause.OrderBy {
	column, ok := columns[q.Sort]
	if !ok {
		column = "created_at"
	}
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: column}, Desc: q.Descending()},
		{Column: clause.Column{Name: "id"}, Desc: q.Descending()},
	}}
}

// escapeLike makes user input match literally inside a LIKE pattern
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GormSweetRepository implements SweetRepository
type GormSweetRepository struct {
	db *gorm.DB
}

func (r *GormSweetRepository) Create(ctx context.Context, sweet *model.Sweet) error {
	defer prometheus.TrackDBOperation("sweet_create")(time.Now())

	if err := r.db.WithContext(ctx).Create(sweet).Error; err != nil {
		return fmt.Errorf("create sweet: %w", translate(err))
	}
	return nil
}

func (r *GormSweetRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Sweet, error) {
	defer prometheus.TrackDBOperation("sweet_get")(time.Now())

	var sweet model.Sweet
	if err := r.db.WithContext(ctx).First(&sweet, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get sweet %s: %w", id, translate(err))
	}
	return &sweet, nil
}

func (r *GormSweetRepository) Update(ctx context.Context, sweet *model.Sweet) error {
	defer prometheus.TrackDBOperation("sweet_update")(time.Now())

	// A map keeps zero values such as an empty description or quantity 0
	result := r.db.WithContext(ctx).Model(&model.Sweet{}).Where("id = ?", sweet.ID).Updates(map[string]interface{}{
		"name":        sweet.Name,
		"category":    sweet.Category,
		"price_cents": sweet.PriceCents,
		"quantity":    sweet.Quantity,
		"description": sweet.Description,
		"image_url":   sweet.ImageURL,
		"updated_at":  time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("update sweet %s: %w", sweet.ID, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update sweet %s: %w", sweet.ID, ErrNotFound)
	}

	if err := r.db.WithContext(ctx).First(sweet, "id = ?", sweet.ID).Error; err != nil {
		return fmt.Errorf("reload sweet %s: %w", sweet.ID, translate(err))
	}
	return nil
}

func (r *GormSweetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer prometheus.TrackDBOperation("sweet_delete")(time.Now())

	result := r.db.WithContext(ctx).Delete(&model.Sweet{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete sweet %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete sweet %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *GormSweetRepository) List(ctx context.Context, q model.SweetQuery) ([]model.Sweet, int64, error) {
	defer prometheus.TrackDBOperation("sweet_list")(time.Now())

	query := r.db.WithContext(ctx).Model(&model.Sweet{})
	if q.Name != "" {
		query = query.Where("name ILIKE ?", "%"+escapeLike(q.Name)+"%")
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.MinPrice != nil {
		query = query.Where("price_cents >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		query = query.Where("price_cents <= ?", *q.MaxPrice)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count sweets: %w", err)
	}

	var sweets []model.Sweet
	err := query.Clauses(orderBy(q.PageQuery, sweetColumns)).
		Limit(q.Limit).
		Offset(q.Offset()).
		Find(&sweets).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list sweets: %w", err)
	}
	return sweets, total, nil
}

// GormPurchaseRepository implements PurchaseRepository
type GormPurchaseRepository struct {
	db *gorm.DB
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id")
	})
}

func (r *GormPurchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	defer prometheus.TrackDBOperation("purchase_get")(time.Now())

	var purchase model.Purchase
	if err := preloadItems(r.db.WithContext(ctx)).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get purchase %s: %w", id, translate(err))
	}
	return &purchase, nil
}

func (r *GormPurchaseRepository) ListByUser(ctx context.Context, userID uuid.UUID, q model.PageQuery) ([]model.Purchase, int64, error) {
	defer prometheus.TrackDBOperation("purchase_list_user")(time.Now())

	query := r.db.WithContext(ctx).Model(&model.Purchase{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	var purchases []model.Purchase
	err := preloadItems(query).
		Clauses(orderBy(q, purchaseColumns)).
		Limit(q.Limit).
		Offset(q.Offset()).
		Find(&purchases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, total, nil
}

func (r *GormPurchaseRepository) ListAll(ctx context.Context, q model.PageQuery) ([]model.Purchase, int64, error) {
	defer prometheus.TrackDBOperation("purchase_list_all")(time.Now())

	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.Purchase{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	var purchases []model.Purchase
	err := preloadItems(db).
		Preload("Purchaser").
		Clauses(orderBy(q, purchaseColumns)).
		Limit(q.Limit).
		Offset(q.Offset()).
		Find(&purchases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}

	if err := r.attachEmails(db, purchases); err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}

// attachEmails fills the purchaser email, which lives on the user row
func (r *GormPurchaseRepository) attachEmails(db *gorm.DB, purchases []model.Purchase) error {
	ids := lo.Uniq(lo.Map(purchases, func(p model.Purchase, _ int) uuid.UUID { return p.UserID }))
	if len(ids) == 0 {
		return nil
	}

	var users []model.User
	if err := db.Select("id", "email").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return fmt.Errorf("load purchaser emails: %w", err)
	}
	emails := lo.SliceToMap(users, func(u model.User) (uuid.UUID, string) { return u.ID, u.Email })

	for i := range purchases {
		if purchases[i].Purchaser != nil {
			purchases[i].Purchaser.Email = emails[purchases[i].UserID]
		}
	}
	return nil
}

// GormUserRepository implements UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

func (r *GormUserRepository) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	defer prometheus.TrackDBOperation("user_create")(time.Now())

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return translate(err)
		}
		profile.ID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return translate(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create user %s: %w", user.Email, err)
	}
	profile.Email = user.Email
	return nil
}

func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer prometheus.TrackDBOperation("user_get_by_email")(time.Now())

	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, fmt.Errorf("get user by email: %w", translate(err))
	}
	return &user, nil
}

func (r *GormUserRepository) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	defer prometheus.TrackDBOperation("profile_get")(time.Now())

	db := r.db.WithContext(ctx)

	var profile model.Profile
	if err := db.First(&profile, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, translate(err))
	}

	var user model.User
	if err := db.Select("email").First(&user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, translate(err))
	}
	profile.Email = user.Email
	return &profile, nil
}

func (r *GormUserRepository) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	defer prometheus.TrackDBOperation("profile_update")(time.Now())

	result := r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", profile.ID).Updates(map[string]interface{}{
		"name":         profile.Name,
		"phone_number": profile.Phone,
		"address":      profile.Address,
		"updated_at":   time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("update profile %s: %w", profile.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update profile %s: %w", profile.ID, ErrNotFound)
	}
	return nil
}

func (r *GormUserRepository) SetRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	defer prometheus.TrackDBOperation("profile_set_role")(time.Now())

	result := r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("set role %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("set role %s: %w", id, ErrNotFound)
	}
	return nil
}

// GormTokenRepository implements TokenRepository
type GormTokenRepository struct {
	db *gorm.DB
}

func (r *GormTokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	defer prometheus.TrackDBOperation("token_revoke")(time.Now())

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.RevokedToken{JTI: jti, ExpiresAt: expiresAt}).Error
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *GormTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	defer prometheus.TrackDBOperation("token_check")(time.Now())

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.RevokedToken{}).Where("jti = ?", jti).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return count > 0, nil
}

func (r *GormTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.RevokedToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GormInventory implements Inventory with one database transaction per
// operation and row locks taken in ascending id order
type GormInventory struct {
	db *gorm.DB
}

func (r *GormInventory) PlaceOrder(ctx context.Context, req OrderRequest) (*model.Purchase, error) {
	defer prometheus.TrackDBOperation("place_order")(time.Now())

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ids := lo.Map(req.Lines, func(l OrderLine, _ int) uuid.UUID { return l.SweetID })

	var purchase *model.Purchase
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sweets []model.Sweet
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id").
			Find(&sweets).Error
		if err != nil {
			return fmt.Errorf("lock sweets: %w", err)
		}

		items, total, err := priceLines(req, lo.KeyBy(sweets, func(s model.Sweet) uuid.UUID { return s.ID }))
		if err != nil {
			return err
		}

		// Decrement in the same order the rows were locked
		for _, sweet := range sweets {
			line, _ := lo.Find(req.Lines, func(l OrderLine) bool { return l.SweetID == sweet.ID })
			if err := tryDecrement(tx, sweet, line.Quantity); err != nil {
				return err
			}
		}

		purchase = &model.Purchase{
			UserID:        req.UserID,
			CustomerName:  req.CustomerName,
			Address:       req.Address,
			ContactNumber: req.ContactNumber,
			Items:         items,
			TotalCents:    total,
			Status:        model.PurchaseStatusPending,
		}
		if err := tx.Create(purchase).Error; err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// tryDecrement lowers stock only when enough is left. Zero affected rows
// means another writer got there first.
func tryDecrement(tx *gorm.DB, sweet model.Sweet, quantity int) error {
	result := tx.Model(&model.Sweet{}).
		Where("id = ? AND quantity >= ?", sweet.ID, quantity).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", quantity),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("decrement stock of %s: %w", sweet.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &StockError{SweetID: sweet.ID, Name: sweet.Name, Requested: quantity, Available: sweet.Quantity}
	}
	return nil
}

func (r *GormInventory) Restock(ctx context.Context, id uuid.UUID, quantity int) (*model.Sweet, error) {
	defer prometheus.TrackDBOperation("restock")(time.Now())

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var sweet model.Sweet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Sweet{}).Where("id = ?", id).Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", quantity),
			"updated_at": time.Now(),
		})
		if result.Error != nil {
			return fmt.Errorf("restock %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("restock %s: %w", id, ErrNotFound)
		}
		return tx.First(&sweet, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &sweet, nil
}

// priceLines checks every line against the locked sweets and snapshots
// name, image and unit price. Nothing has been written when it fails.
func priceLines(req OrderRequest, sweets map[uuid.UUID]model.Sweet) ([]model.PurchaseItem, int64, error) {
	items := make([]model.PurchaseItem, 0, len(req.Lines))
	var total int64
	for _, line := range req.Lines {
		sweet, ok := sweets[line.SweetID]
		if !ok {
			return nil, 0, fmt.Errorf("sweet %s: %w", line.SweetID, ErrNotFound)
		}
		if sweet.Quantity < line.Quantity {
			return nil, 0, &StockError{
				SweetID:   sweet.ID,
				Name:      sweet.Name,
				Requested: line.Quantity,
				Available: sweet.Quantity,
			}
		}
		lineTotal, ok := mulCents(sweet.PriceCents, line.Quantity)
		if !ok {
			return nil, 0, fmt.Errorf("price %d x %d of %s: %w", sweet.PriceCents, line.Quantity, sweet.ID, ErrAmountOverflow)
		}
		items = append(items, model.PurchaseItem{
			SweetID:        sweet.ID,
			Name:           sweet.Name,
			ImageURL:       sweet.ImageURL,
			Quantity:       line.Quantity,
			UnitPriceCents: sweet.PriceCents,
			LineTotalCents: lineTotal,
		})
		if total > math.MaxInt64-lineTotal {
			return nil, 0, fmt.Errorf("order total: %w", ErrAmountOverflow)
		}
		total += lineTotal
	}

	if req.ExpectedTotal != nil && *req.ExpectedTotal != total {
		return nil, 0, &TotalError{Expected: *req.ExpectedTotal, Actual: total}
	}
	return items, total, nil
}

// mulCents multiplies a unit price by a quantity, reporting false when the
// product is negative or does not fit in int64
func mulCents(price int64, quantity int) (int64, bool) {
	if price < 0 || quantity < 0 {
		return 0, false
	}
	if quantity > 0 && price > math.MaxInt64/int64(quantity) {
		return 0, false
	}
	return price * int64(quantity), true
}
