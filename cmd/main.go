package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"sweetshop/internal/handler"
	"sweetshop/internal/model"
	"sweetshop/internal/repository"
	"sweetshop/internal/service"
	"sweetshop/internal/validation"
	"sweetshop/pkg/config"
	"sweetshop/pkg/database"
	"sweetshop/pkg/jwtutil"
	"sweetshop/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(appConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting "+config.ServiceName, appConfig.LogConfig()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize store", zap.Error(err))
	}
	log.Info("Store initialized", zap.String("driver", appConfig.Store.Driver))

	// Initialize JWT utility
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      appConfig.JWT.SigningKey,
		ExpirationHours: appConfig.JWT.ExpirationHours,
		Issuer:          appConfig.JWT.Issuer,
	})

	auth := service.NewAuthService(store.Users, store.Tokens, jwt, appConfig.Auth.BcryptCost)
	if appConfig.Auth.AdminEmail != "" {
		email := validation.NormalizeEmail(appConfig.Auth.AdminEmail)
		if err := auth.EnsureAdmin(ctx, email, appConfig.Auth.AdminPassword, appConfig.Auth.AdminName); err != nil {
			log.Fatal("Failed to bootstrap admin account", zap.Error(err))
		}
	}

	e := handler.NewServer(handler.Services{
		Auth:      auth,
		Catalog:   service.NewCatalogService(store.Sweets),
		Inventory: service.NewInventoryService(store.Inventory, store.Sweets),
		History:   service.NewHistoryService(store.Purchases),
		Profiles:  service.NewProfileService(store.Users),
		Ping:      store.Ping,
		Limits: validation.Limits{
			DefaultLimit: appConfig.Pagination.DefaultLimit,
			MaxLimit:     appConfig.Pagination.MaxLimit,
		},
	})

	go purgeRevokedTokens(ctx, auth, log)

	// Start server
	port := appConfig.Server.Port
	go func() {
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// openStore connects the configured backend and migrates the schema
func openStore(cfg *config.Config) (*repository.Store, error) {
	if cfg.Store.Driver == "memory" {
		logger.GetLogger().Warn("Using the in-process store; data is lost on restart and stock locking is process-local")
		return repository.NewMemoryStore(), nil
	}

	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		return nil, err
	}
	err = database.MigrateModels(db,
		&model.User{},
		&model.Profile{},
		&model.Sweet{},
		&model.Purchase{},
		&model.PurchaseItem{},
		&model.RevokedToken{},
	)
	if err != nil {
		return nil, err
	}
	return repository.NewGormStore(db), nil
}

// purgeRevokedTokens periodically forgets revocations of expired tokens
func purgeRevokedTokens(ctx context.Context, auth *service.AuthService, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := auth.PurgeRevoked(ctx)
			if err != nil {
				log.Warn("Failed to purge revoked tokens", zap.Error(err))
				continue
			}
			if purged > 0 {
				log.Info("Purged revoked tokens", zap.Int64("count", purged))
			}
		}
	}
}
