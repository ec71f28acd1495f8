package backend

import (
	"fmt"

	"bankledger/internal/config"
	"bankledger/internal/services"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	return Config{
		SQLiteDBPath:      appConfig.SQLiteDBPath,
		SQLiteBusyTimeout: appConfig.SQLiteBusyTimeout,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Engine: services.EngineConfig{
			LockWaitTimeout:  appConfig.LockWaitTimeout,
			LockMaxAttempts:  appConfig.LockMaxAttempts,
			LockRetryBackoff: appConfig.LockRetryBackoff,
			IdempotencyTTL:   appConfig.IdempotencyTTL,
			CacheSize:        appConfig.IdempotencyCacheSize,
		},
		Processor: services.ReconcileProcessorConfig{
			ReconcileInterval: appConfig.ReconcileInterval,
			CleanupInterval:   appConfig.CleanupInterval,
			IdempotencyTTL:    appConfig.IdempotencyTTL,
		},
		ReconcileConcurrency: appConfig.ReconcileConcurrency,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required")
	}
	if c.Engine.LockMaxAttempts < 1 {
		return fmt.Errorf("lock max attempts must be at least 1")
	}
	if c.Engine.LockWaitTimeout <= 0 {
		return fmt.Errorf("lock wait timeout must be positive")
	}
	if c.Engine.IdempotencyTTL <= 0 {
		return fmt.Errorf("idempotency TTL must be positive")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}
