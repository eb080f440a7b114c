package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/preorder/database"
)

type Config struct {
	Port     string
	Database database.Credentials

	JWTSecret []byte

	Razorpay RazorpayConfig

	RedisAddr     string
	RedisPassword string
	MenuCacheTTL  time.Duration

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Currency  string
	Timeout   time.Duration
}

// Load reads .env when present, then the environment. Every problem is
// reported in one multierror.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from lookup, which returns "" for unset keys.
func FromEnv(lookup func(string) string) (*Config, error) {
	var result *multierror.Error

	get := func(key, fallback string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return fallback
	}
	required := func(key string) string {
		v := get(key, "")
		if v == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required", key))
		}
		return v
	}
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			result = multierror.Append(result, fmt.Errorf("%s: invalid duration %q", key, raw))
			return fallback
		}
		return d
	}

	cfg := &Config{
		Port: get("PORT", "8080"),
		Database: database.Credentials{
			Driver:     get("DB_DRIVER", database.DriverPostgres),
			Host:       get("DB_HOST", "localhost"),
			Port:       get("DB_PORT", "5432"),
			User:       get("DB_USER", "postgres"),
			Password:   get("DB_PASSWORD", ""),
			Name:       get("DB_NAME", "preorder"),
			SSLMode:    get("DB_SSLMODE", "disable"),
			SQLitePath: get("SQLITE_PATH", "preorder.db"),
		},
		JWTSecret: []byte(required("JWT_SECRET_KEY")),
		Razorpay: RazorpayConfig{
			KeyID:     required("RAZORPAY_KEY_ID"),
			KeySecret: required("RAZORPAY_KEY_SECRET"),
			BaseURL:   get("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
			Currency:  strings.ToUpper(get("PAYMENT_CURRENCY", "INR")),
			Timeout:   duration("GATEWAY_TIMEOUT", 10*time.Second),
		},
		RedisAddr:       get("REDIS_ADDR", ""),
		RedisPassword:   get("REDIS_PASSWORD", ""),
		MenuCacheTTL:    duration("MENU_CACHE_TTL", 5*time.Minute),
		LogLevel:        get("LOG_LEVEL", "info"),
		LogFormat:       get("LOG_FORMAT", "text"),
		ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	switch cfg.Database.Driver {
	case database.DriverPostgres, database.DriverSQLite:
	default:
		result = multierror.Append(result, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.Database.Driver))
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		result = multierror.Append(result, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		result = multierror.Append(result, fmt.Errorf("LOG_FORMAT: must be text or json, got %q", cfg.LogFormat))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
