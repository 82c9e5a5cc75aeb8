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

// AuthHandler serves registration, login and logout
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register handles account creation
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromContext(c)

	var req validation.RegisterInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.auth.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}

	log.Info("User registered successfully", zap.String("user_id", profile.ID.String()))
	return c.JSON(http.StatusCreated, profile)
}

// Login handles credential exchange for a bearer token
func (h *AuthHandler) Login(c echo.Context) error {
	var req validation.LoginInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// Logout revokes the token used for the request
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), mid.IdentityFrom(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
