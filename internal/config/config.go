// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmynk/tenancydeposit/internal/models"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds every setting of cmd/server.
type Config struct {
	Addr        string
	DBDriver    string
	DBPath      string
	DatabaseURL string

	Landlord           models.Address
	AllowPropertyReuse bool
	BlockedPayees      []models.Address

	JWTSecret string
	TokenTTL  time.Duration

	RelayInterval time.Duration
	RateLimit     float64
	RateBurst     int

	LogLevel string
	LogFile  string
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Load reads the named .env files (".env" when none are given; a missing
// file is fine) and then the process environment. Values already in the
// environment win over the files.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var errs []error
	cfg := &Config{
		Addr:        getEnv("ADDR", ":8080"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:      getEnv("DB_PATH", "./data/deposits.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Landlord:    models.ParseAddress(getEnv("LANDLORD_ADDRESS", "")),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
	}

	var err error
	if cfg.AllowPropertyReuse, err = strconv.ParseBool(getEnv("ALLOW_PROPERTY_REUSE", "false")); err != nil {
		errs = append(errs, fmt.Errorf("ALLOW_PROPERTY_REUSE: %w", err))
	}
	if cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "24h")); err != nil {
		errs = append(errs, fmt.Errorf("TOKEN_TTL: %w", err))
	}
	if cfg.RelayInterval, err = time.ParseDuration(getEnv("RELAY_INTERVAL", "5s")); err != nil {
		errs = append(errs, fmt.Errorf("RELAY_INTERVAL: %w", err))
	}
	if cfg.RateLimit, err = strconv.ParseFloat(getEnv("RATE_LIMIT", "20"), 64); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT: %w", err))
	}
	if cfg.RateBurst, err = strconv.Atoi(getEnv("RATE_BURST", "40")); err != nil {
		errs = append(errs, fmt.Errorf("RATE_BURST: %w", err))
	}
	for _, p := range strings.Split(getEnv("BLOCKED_PAYEES", ""), ",") {
		if addr := models.ParseAddress(p); !addr.IsZero() {
			cfg.BlockedPayees = append(cfg.BlockedPayees, addr)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Validate reports missing or inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Landlord.IsZero() {
		errs = append(errs, errors.New("LANDLORD_ADDRESS is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of sqlite, memory, postgres", c.DBDriver))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.RelayInterval <= 0 {
		errs = append(errs, errors.New("RELAY_INTERVAL must be positive"))
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT and RATE_BURST must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
