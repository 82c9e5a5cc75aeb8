package handler

import (
	"net/http"

	mid "sweetshop/internal/middleware"
	"sweetshop/internal/service"
	"sweetshop/internal/validation"

	"github.com/labstack/echo/v4"
)

// ProfileHandler serves the caller's own profile
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler creates the profile handler
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile handles reading the caller's profile
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	profile, err := h.profiles.Get(c.Request().Context(), mid.IdentityFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile handles self-service edits
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	var req validation.ProfileInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.profiles.Update(c.Request().Context(), mid.IdentityFrom(c), service.ProfileUpdate{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}
