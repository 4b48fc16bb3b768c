package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "DATABASE_URL", "JWT_SECRET", "TOKEN_TTL", "APP_ENV", "DB_MAX_CONNS", "MIGRATE_ON_START"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, 8*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "production", cfg.App.Env)
	assert.False(t, cfg.App.Dev())
	assert.False(t, cfg.App.MigrateOnStart)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("SERVER_IDLE_TIMEOUT", "120")
	t.Setenv("APP_ENV", "Development")
	t.Setenv("MIGRATE_ON_START", "true")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.True(t, cfg.App.Dev())
	assert.True(t, cfg.App.MigrateOnStart)
	assert.Equal(t, int32(10), cfg.Database.MaxConns, "invalid int falls back to default")
}

func TestValidate(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{MaxConns: 5}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.Database.URL = "postgres://localhost/db"
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}
