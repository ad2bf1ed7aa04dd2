package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	HTTPAddr        string
	PostgresDSN     string // empty selects the in-memory store
	LogLevel        string
	AppEnv          string
	ShutdownTimeout time.Duration
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function and reports every invalid
// value at once.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		HTTPAddr:        or(getenv("HTTP_ADDR"), ":8080"),
		PostgresDSN:     getenv("POSTGRES_DSN"),
		LogLevel:        or(getenv("LOG_LEVEL"), "info"),
		AppEnv:          or(getenv("APP_ENV"), "production"),
		ShutdownTimeout: 5 * time.Second,
	}

	var err error
	if raw := getenv("SHUTDOWN_TIMEOUT"); raw != "" {
		d, perr := time.ParseDuration(raw)
		switch {
		case perr != nil:
			err = multierr.Append(err, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", perr))
		case d <= 0:
			err = multierr.Append(err, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", d))
		default:
			cfg.ShutdownTimeout = d
		}
	}
	if _, lerr := zapcore.ParseLevel(cfg.LogLevel); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("LOG_LEVEL: %w", lerr))
	}
	switch cfg.AppEnv {
	case "production", "development":
	default:
		err = multierr.Append(err, fmt.Errorf("APP_ENV must be production or development, got %q", cfg.AppEnv))
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
