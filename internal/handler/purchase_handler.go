package handler

import (
	"net/http"

	mid "sweetshop/internal/middleware"
	"sweetshop/internal/model"
	"sweetshop/internal/repository"
	"sweetshop/internal/service"
	"sweetshop/internal/validation"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// PurchaseHandler serves checkout and purchase history
type PurchaseHandler struct {
	history   *service.HistoryService
	inventory *service.InventoryService
	limits    validation.Limits
}

// NewPurchaseHandler creates the purchase handler
func NewPurchaseHandler(history *service.HistoryService, inventory *service.InventoryService, limits validation.Limits) *PurchaseHandler {
	return &PurchaseHandler{history: history, inventory: inventory, limits: limits}
}

// Checkout handles the atomic multi-item order
func (h *PurchaseHandler) Checkout(c echo.Context) error {
	var req validation.CheckoutInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	purchase, err := h.inventory.Checkout(c.Request().Context(), mid.IdentityFrom(c), service.CheckoutRequest{
		CustomerName:  req.CustomerName,
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		// Ids were validated as UUIDs
		Items: lo.Map(req.Items, func(item validation.CheckoutItemInput, _ int) repository.OrderLine {
			return repository.OrderLine{SweetID: uuid.MustParse(item.SweetID), Quantity: item.Quantity}
		}),
		TotalCents: req.TotalPriceCents,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, purchase)
}

// ListMyPurchases handles the caller's own history
func (h *PurchaseHandler) ListMyPurchases(c echo.Context) error {
	q, err := validation.ParsePageQuery(c.QueryParams(), h.limits, model.PurchaseSortKeys)
	if err != nil {
		return err
	}

	page, err := h.history.ListMine(c.Request().Context(), mid.IdentityFrom(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// ListAllPurchases handles the admin view of every purchase
func (h *PurchaseHandler) ListAllPurchases(c echo.Context) error {
	q, err := validation.ParsePageQuery(c.QueryParams(), h.limits, model.PurchaseSortKeys)
	if err != nil {
		return err
	}

	page, err := h.history.ListAll(c.Request().Context(), mid.IdentityFrom(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GetPurchase handles a single purchase for its owner or an admin
func (h *PurchaseHandler) GetPurchase(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	purchase, err := h.history.Get(c.Request().Context(), mid.IdentityFrom(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, purchase)
}
