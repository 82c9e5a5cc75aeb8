package middleware

import (
	"context"
	"strings"

	"sweetshop/internal/apperror"
	"sweetshop/internal/service"
	"sweetshop/pkg/logger"
	"sweetshop/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// IdentityKey is the echo.Context key holding the resolved service.Identity
const IdentityKey = "identity"

// TokenResolver turns a bearer token into an identity
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (service.Identity, error)
}

// Authenticate resolves the caller once per request. Requests without an
// Authorization header continue as Anonymous; any other failure is final.
func Authenticate(resolver TokenResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				c.Set(IdentityKey, service.AnonymousIdentity)
				return next(c)
			}

			log := logger.FromContext(c)

			// Check if it's a Bearer token
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				log.Warn("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return apperror.Unauthorized("invalid authorization format, expected Bearer token")
			}

			id, err := resolver.Resolve(c.Request().Context(), parts[1])
			if err != nil {
				return err
			}

			c.Set(IdentityKey, id)
			// Requests are traced by user from here on
			scoped := log.With(zap.String("user_id", id.UserID().String()), zap.Stringer("role", id.Kind))
			c.Set(logger.EchoKey, scoped)
			c.SetRequest(c.Request().WithContext(logger.WithLogger(c.Request().Context(), scoped)))

			return next(c)
		}
	}
}

// IdentityFrom returns the identity resolved for the request, Anonymous if none
func IdentityFrom(c echo.Context) service.Identity {
	if id, ok := c.Get(IdentityKey).(service.Identity); ok {
		return id
	}
	return service.AnonymousIdentity
}

// RequireUser rejects anonymous callers
func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := IdentityFrom(c).RequireUser(); err != nil {
			return err
		}
		return next(c)
	}
}

// RequireAdmin rejects anonymous callers and non-admins
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := IdentityFrom(c)
		if err := id.RequireAdmin(); err != nil {
			if id.Kind == service.User {
				logger.FromContext(c).Warn("Admin route refused", zap.String("user_id", id.UserID().String()))
			}
			return err
		}
		return next(c)
	}
}
