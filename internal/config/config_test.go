package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "billing-pos", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "5000", cfg.App.Port)
		assert.Equal(t, "mysql", cfg.Database.Driver)
		assert.Equal(t, 3306, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Reconcile.MaxAttempts)
		assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
		assert.Empty(t, cfg.Redis.Addr)
	})

	t.Run("loads values from environment variables with BILLING prefix", func(t *testing.T) {
		t.Setenv("BILLING_APP_PORT", "9000")
		t.Setenv("BILLING_DATABASE_DRIVER", "sqlite")
		t.Setenv("BILLING_DATABASE_PATH", "test.db")
		t.Setenv("BILLING_REDIS_ADDR", "cache:6379")
		t.Setenv("BILLING_RECONCILE_MAX_ATTEMPTS", "3")
		t.Setenv("BILLING_AUTH_TOKEN_TTL", "2h")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "test.db", cfg.Database.Path)
		assert.Equal(t, "cache:6379", cfg.Redis.Addr)
		assert.Equal(t, 3, cfg.Reconcile.MaxAttempts)
		assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		t.Setenv("BILLING_DATABASE_DRIVER", "mongo")

		_, err := Load()
		assert.ErrorContains(t, err, "database.driver")
	})

	t.Run("requires a long jwt secret in production", func(t *testing.T) {
		t.Setenv("BILLING_APP_ENV", "production")
		t.Setenv("BILLING_AUTH_JWT_SECRET", "short")

		_, err := Load()
		assert.ErrorContains(t, err, "jwt_secret")
	})
}

func TestMySQLDSN(t *testing.T) {
	d := DatabaseConfig{User: "pos", Password: "secret", Host: "db", Port: 3307, Name: "shop"}
	assert.Equal(t, "pos:secret@tcp(db:3307)/shop?charset=utf8mb4&parseTime=True&loc=Local", d.MySQLDSN())

	d.DSN = "explicit"
	assert.Equal(t, "explicit", d.MySQLDSN())
}
