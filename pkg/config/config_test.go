package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 100, cfg.Pagination.MaxLimit)
	assert.Equal(t, 24, cfg.JWT.ExpirationHours)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=password dbname=sweetshop sslmode=disable", cfg.DB.GetDSN())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("PAGINATION_MAX_LIMIT", "50")
	t.Setenv("PAGINATION_DEFAULT_LIMIT", "5")
	t.Setenv("DB_CONN_MAX_LIFETIME", "15m")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("ADMIN_EMAIL", "boss@example.com")
	t.Setenv("ADMIN_PASSWORD", "supersecret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 50, cfg.Pagination.MaxLimit)
	assert.Equal(t, 5, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 15*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.Equal(t, "boss@example.com", cfg.Auth.AdminEmail)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("DB_CONN_MAX_LIFETIME", "forever")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.DB.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.DB.ConnMaxLifetime)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"zero max limit", func(c *Config) { c.Pagination.MaxLimit = 0 }},
		{"default above max", func(c *Config) { c.Pagination.DefaultLimit = 500 }},
		{"empty signing key", func(c *Config) { c.JWT.SigningKey = "" }},
		{"admin email without password", func(c *Config) { c.Auth.AdminEmail = "a@b.c" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
