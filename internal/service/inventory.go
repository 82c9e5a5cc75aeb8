package service

import (
	"context"
	"errors"

	"sweetshop/internal/apperror"
	"sweetshop/internal/model"
	"sweetshop/internal/repository"
	"sweetshop/pkg/logger"
	"sweetshop/prometheus"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// CheckoutRequest is a cart submitted for checkout. Empty shipping fields
// are filled from the caller's profile.
type CheckoutRequest struct {
	CustomerName  string
	Address       string
	ContactNumber string
	Items         []repository.OrderLine
	// TotalCents is the total the client saw, if it sent one
	TotalCents *int64
}

// InventoryService runs every stock-changing operation through the
// repository's atomic primitives
type InventoryService struct {
	inventory repository.Inventory
	sweets    repository.SweetRepository
}

// NewInventoryService creates the inventory service
func NewInventoryService(inventory repository.Inventory, sweets repository.SweetRepository) *InventoryService {
	return &InventoryService{inventory: inventory, sweets: sweets}
}

// Purchase buys quantity units of one sweet for the caller
func (s *InventoryService) Purchase(ctx context.Context, id Identity, sweetID uuid.UUID, quantity int) (*model.Purchase, error) {
	if err := id.RequireUser(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, quantityError()
	}

	profile := id.Profile
	purchase, err := s.inventory.PlaceOrder(ctx, repository.OrderRequest{
		UserID:        profile.ID,
		CustomerName:  profile.Name,
		Address:       profile.Address,
		ContactNumber: profile.Phone,
		Lines:         []repository.OrderLine{{SweetID: sweetID, Quantity: quantity}},
	})
	if err != nil {
		return nil, s.orderFailed(ctx, "purchase", err)
	}

	s.recordOrder(ctx, "purchase", purchase)
	return purchase, nil
}

// Checkout buys every line of a cart atomically
func (s *InventoryService) Checkout(ctx context.Context, id Identity, req CheckoutRequest) (*model.Purchase, error) {
	if err := id.RequireUser(); err != nil {
		return nil, err
	}

	if len(req.Items) == 0 {
		return nil, apperror.Validation([]apperror.FieldError{{Field: "items", Message: "must contain at least 1 entries"}})
	}
	if lo.SomeBy(req.Items, func(l repository.OrderLine) bool { return l.Quantity < 1 }) {
		return nil, quantityError()
	}
	lines := mergeLines(req.Items)

	profile := id.Profile
	order := repository.OrderRequest{
		UserID:        profile.ID,
		CustomerName:  lo.Ternary(req.CustomerName != "", req.CustomerName, profile.Name),
		Address:       lo.Ternary(req.Address != "", req.Address, profile.Address),
		ContactNumber: lo.Ternary(req.ContactNumber != "", req.ContactNumber, profile.Phone),
		Lines:         lines,
		ExpectedTotal: req.TotalCents,
	}

	var missing []string
	if order.CustomerName == "" {
		missing = append(missing, "customer_name")
	}
	if order.Address == "" {
		missing = append(missing, "address")
	}
	if order.ContactNumber == "" {
		missing = append(missing, "contact_number")
	}
	if len(missing) > 0 {
		prometheus.RecordInventoryOperation("checkout", "profile_incomplete")
		return nil, apperror.New(apperror.CodeProfileIncomplete, "shipping details are missing; complete your profile or provide them with the order").
			WithDetails(map[string]interface{}{"missing": missing})
	}

	purchase, err := s.inventory.PlaceOrder(ctx, order)
	if err != nil {
		return nil, s.orderFailed(ctx, "checkout", err)
	}

	s.recordOrder(ctx, "checkout", purchase)
	return purchase, nil
}

// Restock adds quantity units to a sweet's stock
func (s *InventoryService) Restock(ctx context.Context, id Identity, sweetID uuid.UUID, quantity int) (*model.Sweet, error) {
	if err := id.RequireAdmin(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, quantityError()
	}

	sweet, err := s.inventory.Restock(ctx, sweetID, quantity)
	if err != nil {
		return nil, s.orderFailed(ctx, "restock", err)
	}

	prometheus.RecordInventoryOperation("restock", "success")
	prometheus.UpdateSweetStock(sweet.ID.String(), string(sweet.Category), sweet.Quantity)
	logger.FromStdContext(ctx).Info("Sweet restocked",
		zap.String("sweet_id", sweet.ID.String()),
		zap.Int("added", quantity),
		zap.Int("quantity", sweet.Quantity),
		zap.String("admin_id", id.UserID().String()))
	return sweet, nil
}

// mergeLines folds repeated sweets into one line, keeping first-seen order
func mergeLines(lines []repository.OrderLine) []repository.OrderLine {
	totals := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		totals[l.SweetID] += l.Quantity
	}
	return lo.Map(lo.Uniq(lo.Map(lines, func(l repository.OrderLine, _ int) uuid.UUID { return l.SweetID })),
		func(sweetID uuid.UUID, _ int) repository.OrderLine {
			return repository.OrderLine{SweetID: sweetID, Quantity: totals[sweetID]}
		})
}

func quantityError() error {
	return apperror.Validation([]apperror.FieldError{{Field: "quantity", Message: "must be at least 1"}})
}

// orderFailed translates a primitive's error and counts the outcome
func (s *InventoryService) orderFailed(ctx context.Context, operation string, err error) error {
	var stockErr *repository.StockError
	var totalErr *repository.TotalError

	switch {
	case errors.As(err, &stockErr):
		prometheus.RecordInventoryOperation(operation, "insufficient_stock")
		return apperror.New(apperror.CodeInsufficientStock, "insufficient stock for "+stockErr.Name).
			WithDetails(map[string]interface{}{
				"sweet_id":  stockErr.SweetID,
				"requested": stockErr.Requested,
				"available": stockErr.Available,
			})
	case errors.As(err, &totalErr):
		prometheus.RecordInventoryOperation(operation, "total_mismatch")
		return apperror.Conflict("prices have changed; review your cart and try again").
			WithDetails(map[string]interface{}{
				"expected_total_cents": totalErr.Expected,
				"current_total_cents":  totalErr.Actual,
			})
	case errors.Is(err, repository.ErrAmountOverflow):
		prometheus.RecordInventoryOperation(operation, "amount_overflow")
		return apperror.New(apperror.CodeValidation, "order total exceeds the maximum supported amount")
	case errors.Is(err, repository.ErrNotFound):
		prometheus.RecordInventoryOperation(operation, "not_found")
		return apperror.NotFound("sweet not found")
	}

	prometheus.RecordInventoryOperation(operation, "failed")
	logger.FromStdContext(ctx).Error("Inventory transaction failed",
		zap.String("operation", operation),
		zap.Error(err))
	return apperror.TransactionFailed(err)
}

// recordOrder counts a completed order and refreshes the stock gauges
func (s *InventoryService) recordOrder(ctx context.Context, operation string, purchase *model.Purchase) {
	log := logger.FromStdContext(ctx)

	prometheus.RecordInventoryOperation(operation, "success")
	prometheus.RecordSale(purchase.UnitCount(), purchase.TotalCents)

	for _, item := range purchase.Items {
		sweet, err := s.sweets.GetByID(ctx, item.SweetID)
		if err != nil {
			log.Debug("Stock gauge not refreshed", zap.String("sweet_id", item.SweetID.String()), zap.Error(err))
			continue
		}
		prometheus.UpdateSweetStock(sweet.ID.String(), string(sweet.Category), sweet.Quantity)
	}

	log.Info("Order placed",
		zap.String("operation", operation),
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("user_id", purchase.UserID.String()),
		zap.Int("units", purchase.UnitCount()),
		zap.Int64("total_cents", purchase.TotalCents))
}
