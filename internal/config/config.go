package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDBPath          = ":memory:"
	defaultPort            = "8080"
	defaultEnv             = "development"
	defaultLogLevel        = "info"
	defaultCacheTTL        = 10 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env             string
	Port            string
	DBPath          string
	LogLevel        string
	RedisURL        string
	CacheTTL        time.Duration
	Seed            bool
	ShutdownTimeout time.Duration

	// Warnings collects non-fatal problems found while loading, to be logged
	// once a logger exists.
	Warnings []string
}

// IsDev reports whether the server runs in a local development environment.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == defaultEnv
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: production should use real env injection.
	var warnings []string
	if err := loadDotEnv(".env"); err != nil {
		warnings = append(warnings, fmt.Sprintf("could not read .env: %v", err))
	}

	cfg := Config{
		Env:      strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))),
		Port:     os.Getenv("PORT"),
		DBPath:   os.Getenv("DB_PATH"),
		LogLevel: os.Getenv("LOG_LEVEL"),
		RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),
		Warnings: warnings,
	}

	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	cfg.CacheTTL = cfg.duration("CACHE_TTL", defaultCacheTTL)
	cfg.ShutdownTimeout = cfg.duration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	cfg.Seed = cfg.boolean("SEED", true)

	if cfg.DBPath != defaultDBPath {
		cfg.Warnings = append(cfg.Warnings, "DB_PATH points to a file; data outlives the process")
	}

	return cfg
}

func (c *Config) duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a positive duration, using %s", key, raw, fallback))
		return fallback
	}
	return value
}

func (c *Config) boolean(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a boolean, using %t", key, raw, fallback))
		return fallback
	}
	return value
}
