package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// StoreConfig selects the storage backend.
type StoreConfig struct {
	Driver     string // "sqlite" or "bolt"
	SQLitePath string
	BoltPath   string
}

// CacheConfig configures the schedule cache.
type CacheConfig struct {
	RedisAddr string // empty selects the in-process cache
	TTL       time.Duration
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string
	Format string
}

// Config is the process configuration.
type Config struct {
	HTTPPort      int
	Store         StoreConfig
	Cache         CacheConfig
	Log           LogConfig
	SummaryTotals string
	ServiceName   string
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() Config {
	return Config{
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		Store: StoreConfig{
			Driver:     getEnv("STORE_DRIVER", "sqlite"),
			SQLitePath: getEnv("SQLITE_PATH", "./repayplan.db"),
			BoltPath:   getEnv("BOLT_PATH", "./repayplan.bolt"),
		},
		Cache: CacheConfig{
			RedisAddr: getEnv("REDIS_ADDR", ""),
			TTL:       getEnvDuration("CACHE_TTL", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		SummaryTotals: getEnv("SUMMARY_TOTALS", "literal"),
		ServiceName:   "repayplan",
	}
}

// Validate reports configuration that cannot be started.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "bolt":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTPPort)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	return nil
}

// HTTPAddr is the listen address of the API server.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
