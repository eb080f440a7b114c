package config

import (
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"JWT_SECRET_KEY":      "jwt",
		"RAZORPAY_KEY_ID":     "rzp_test_key",
		"RAZORPAY_KEY_SECRET": "rzp_secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []byte("jwt"), cfg.JWTSecret)
	assert.Equal(t, "INR", cfg.Razorpay.Currency)
	assert.Equal(t, "https://api.razorpay.com", cfg.Razorpay.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Razorpay.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.MenuCacheTTL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PORT":                ":9000",
		"DB_DRIVER":           "sqlite",
		"SQLITE_PATH":         "/tmp/preorder.db",
		"JWT_SECRET_KEY":      "jwt",
		"RAZORPAY_KEY_ID":     "k",
		"RAZORPAY_KEY_SECRET": "s",
		"PAYMENT_CURRENCY":    "usd",
		"MENU_CACHE_TTL":      "90s",
		"LOG_FORMAT":          "json",
		"LOG_LEVEL":           "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/preorder.db", cfg.Database.SQLitePath)
	assert.Equal(t, "USD", cfg.Razorpay.Currency)
	assert.Equal(t, 90*time.Second, cfg.MenuCacheTTL)
}

func TestFromEnv_ReportsEveryProblem(t *testing.T) {
	_, err := FromEnv(env(map[string]string{
		"DB_DRIVER":       "mysql",
		"GATEWAY_TIMEOUT": "soon",
		"LOG_FORMAT":      "xml",
	}))
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 6)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY is required")
	assert.Contains(t, err.Error(), "RAZORPAY_KEY_SECRET is required")
	assert.Contains(t, err.Error(), "GATEWAY_TIMEOUT")
}
