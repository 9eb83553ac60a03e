package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5432")
		t.Setenv("APP_PORT", "8080")
		t.Setenv("APP_ENV", "test")
		t.Setenv("JWT_ACCESS_SECRET", "access")
		t.Setenv("JWT_REFRESH_SECRET", "refresh")
		t.Setenv("ACCESS_TOKEN_TTL", "10m")
		t.Setenv("PAYSTACK_SECRET_KEY", "sk_test")
		t.Setenv("PAYSTACK_MIN_AMOUNT", "50.5")
		t.Setenv("SESSION_POLICY", "REPLACE")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "access", cfg.JWTAccessSecret)
		assert.Equal(t, "refresh", cfg.JWTRefreshSecret)
		assert.Equal(t, 10*time.Minute, cfg.AccessTokenTTL)
		assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
		assert.Equal(t, "sk_test", cfg.PaystackSecretKey)
		assert.True(t, decimal.RequireFromString("50.5").Equal(cfg.PaystackMinAmount))
		assert.Equal(t, SessionPolicyReplace, cfg.SessionPolicy)
		assert.False(t, cfg.CookieSecure)
	})

	t.Run("Defaults and invalid values", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("APP_ENV", "production")
		t.Setenv("ACCESS_TOKEN_TTL", "soon")
		t.Setenv("SESSION_POLICY", "many")
		t.Setenv("PAYSTACK_MAX_AMOUNT", "lots")

		cfg := LoadConfig()

		assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
		assert.Equal(t, SessionPolicySingle, cfg.SessionPolicy)
		assert.True(t, decimal.NewFromInt(10_000_000).Equal(cfg.PaystackMaxAmount))
		assert.Equal(t, "https://api.paystack.co", cfg.PaystackBaseURL)
		assert.True(t, cfg.IsProduction())
		assert.True(t, cfg.CookieSecure)
	})
}
