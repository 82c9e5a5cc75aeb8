package handler

import (
	"net/http"

	mid "sweetshop/internal/middleware"
	"sweetshop/internal/service"
	"sweetshop/internal/validation"
	"sweetshop/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SweetHandler serves the catalog and the per-sweet stock operations
type SweetHandler struct {
	catalog   *service.CatalogService
	inventory *service.InventoryService
	limits    validation.Limits
}

// NewSweetHandler creates the sweet handler
func NewSweetHandler(catalog *service.CatalogService, inventory *service.InventoryService, limits validation.Limits) *SweetHandler {
	return &SweetHandler{catalog: catalog, inventory: inventory, limits: limits}
}

// ListSweets handles catalog browsing with filters, sorting and pagination
func (h *SweetHandler) ListSweets(c echo.Context) error {
	log := logger.FromContext(c)

	q, err := validation.ParseSweetQuery(c.QueryParams(), h.limits)
	if err != nil {
		return err
	}

	page, err := h.catalog.List(c.Request().Context(), q)
	if err != nil {
		return err
	}

	log.Debug("Sweets listed",
		zap.Int("page", page.Page),
		zap.Int("count", len(page.Data)),
		zap.Int64("total", page.Total))
	return c.JSON(http.StatusOK, page)
}

// GetSweet handles retrieving a single sweet by ID
func (h *SweetHandler) GetSweet(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	sweet, err := h.catalog.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sweet)
}

// CreateSweet handles adding a sweet to the catalog
func (h *SweetHandler) CreateSweet(c echo.Context) error {
	var req validation.SweetInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sweet, err := h.catalog.Create(c.Request().Context(), mid.IdentityFrom(c), req.Sweet())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sweet)
}

// UpdateSweet handles replacing a sweet's fields
func (h *SweetHandler) UpdateSweet(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req validation.SweetInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sweet, err := h.catalog.Update(c.Request().Context(), mid.IdentityFrom(c), id, req.Sweet())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sweet)
}

// DeleteSweet handles removing a sweet
func (h *SweetHandler) DeleteSweet(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.catalog.Delete(c.Request().Context(), mid.IdentityFrom(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// PurchaseSweet handles the atomic single-item purchase
func (h *SweetHandler) PurchaseSweet(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req validation.QuantityInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	purchase, err := h.inventory.Purchase(c.Request().Context(), mid.IdentityFrom(c), id, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, purchase)
}

// RestockSweet handles the atomic stock increment
func (h *SweetHandler) RestockSweet(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req validation.QuantityInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sweet, err := h.inventory.Restock(c.Request().Context(), mid.IdentityFrom(c), id, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sweet)
}
