package handler

import (
	"context"

	"sweetshop/internal/apperror"
	mid "sweetshop/internal/middleware"
	"sweetshop/internal/service"
	"sweetshop/internal/validation"
	"sweetshop/pkg/logger"
	"sweetshop/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Services is everything the HTTP layer calls into
type Services struct {
	Auth      *service.AuthService
	Catalog   *service.CatalogService
	Inventory *service.InventoryService
	History   *service.HistoryService
	Profiles  *service.ProfileService
	Ping      func(ctx context.Context) error
	Limits    validation.Limits
}

// NewServer builds the echo instance with the error envelope, the validator
// and the middleware chain installed, and every route registered
func NewServer(s Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler
	e.Validator = validation.New()

	// Middleware
	e.Use(mid.RequestIDMiddleware)
	e.Use(prometheus.MetricsMiddleware())
	e.Use(logger.Middleware())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	}))
	e.Use(middleware.BodyLimit("1M"))

	Register(e, s)
	return e
}

// Register wires every route onto e
func Register(e *echo.Echo, s Services) {
	authHandler := NewAuthHandler(s.Auth)
	sweetHandler := NewSweetHandler(s.Catalog, s.Inventory, s.Limits)
	purchaseHandler := NewPurchaseHandler(s.History, s.Inventory, s.Limits)
	profileHandler := NewProfileHandler(s.Profiles)
	healthHandler := NewHealthHandler(s.Ping)

	// Operational endpoints
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))
	e.GET("/health", healthHandler.HealthCheck)

	// Everything below resolves the caller first
	api := e.Group("", mid.Authenticate(s.Auth))

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout, mid.RequireUser)

	sweets := api.Group("/sweets")
	sweets.GET("", sweetHandler.ListSweets)
	sweets.GET("/:id", sweetHandler.GetSweet)
	sweets.POST("", sweetHandler.CreateSweet, mid.RequireAdmin)
	sweets.PUT("/:id", sweetHandler.UpdateSweet, mid.RequireAdmin)
	sweets.DELETE("/:id", sweetHandler.DeleteSweet, mid.RequireAdmin)
	sweets.POST("/:id/purchase", sweetHandler.PurchaseSweet, mid.RequireUser)
	sweets.POST("/:id/restock", sweetHandler.RestockSweet, mid.RequireAdmin)

	api.POST("/checkout", purchaseHandler.Checkout, mid.RequireUser)

	purchases := api.Group("/purchases", mid.RequireUser)
	purchases.GET("", purchaseHandler.ListAllPurchases, mid.RequireAdmin)
	purchases.GET("/me", purchaseHandler.ListMyPurchases)
	purchases.GET("/:id", purchaseHandler.GetPurchase)

	profile := api.Group("/profile", mid.RequireUser)
	profile.GET("", profileHandler.GetProfile)
	profile.PUT("", profileHandler.UpdateProfile)
}
