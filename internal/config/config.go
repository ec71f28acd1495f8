package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	SQLiteDBPath      string
	SQLiteBusyTimeout time.Duration

	// AMQP, optional: an empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Transfer engine
	LockWaitTimeout      time.Duration
	LockMaxAttempts      int
	LockRetryBackoff     time.Duration
	IdempotencyTTL       time.Duration
	IdempotencyCacheSize int

	// Worker
	ReconcileInterval    time.Duration
	ReconcileConcurrency int
	CleanupInterval      time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		SQLiteBusyTimeout: getEnvDuration("SQLITE_BUSY_TIMEOUT", 5*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_committed"),

		LockWaitTimeout:      getEnvDuration("LOCK_WAIT_TIMEOUT", 2*time.Second),
		LockMaxAttempts:      getEnvInt("LOCK_MAX_ATTEMPTS", 3),
		LockRetryBackoff:     getEnvDuration("LOCK_RETRY_BACKOFF", 50*time.Millisecond),
		IdempotencyTTL:       getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		IdempotencyCacheSize: getEnvInt("IDEMPOTENCY_CACHE_SIZE", 10000),

		ReconcileInterval:    getEnvDuration("RECONCILE_INTERVAL", 5*time.Minute),
		ReconcileConcurrency: getEnvInt("RECONCILE_CONCURRENCY", 4),
		CleanupInterval:      getEnvDuration("CLEANUP_INTERVAL", time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}
	if c.SQLiteBusyTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid SQLite busy timeout %v: must not be negative", c.SQLiteBusyTimeout))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.LockWaitTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid lock wait timeout %v: must be positive", c.LockWaitTimeout))
	} else if c.LockWaitTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid lock wait timeout %v: must be at most 1 minute", c.LockWaitTimeout))
	}
	if c.LockMaxAttempts < 1 || c.LockMaxAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid lock max attempts %d: must be between 1 and 10", c.LockMaxAttempts))
	}
	if c.LockRetryBackoff < 0 {
		errors = append(errors, fmt.Sprintf("invalid lock retry backoff %v: must not be negative", c.LockRetryBackoff))
	}

	if c.IdempotencyTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid idempotency TTL %v: must be at least 1 minute", c.IdempotencyTTL))
	}
	if c.IdempotencyCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid idempotency cache size %d: must not be negative", c.IdempotencyCacheSize))
	}

	if c.ReconcileInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 second", c.ReconcileInterval))
	} else if c.ReconcileInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at most 24 hours", c.ReconcileInterval))
	}
	if c.ReconcileConcurrency < 1 || c.ReconcileConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid reconcile concurrency %d: must be between 1 and 64", c.ReconcileConcurrency))
	}
	if c.CleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cleanup interval %v: must be at least 1 second", c.CleanupInterval))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
