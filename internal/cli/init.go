// Package cli provides common command initialization utilities shared by
// cmd/ledgerctl and cmd/ledger-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bankledger/internal/backend"
	"bankledger/internal/config"
	"bankledger/internal/log"
)

// SetupLogger builds the process logger at the given level and installs it
// as the slog default.
func SetupLogger(level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenLedger wires the full service graph from application config.
func OpenLedger(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.Result, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger at %s: %w", cfg.SQLiteDBPath, err)
	}
	return result, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. A second
// signal, or the timeout elapsing after the first, exits the process.
func GracefulShutdown(logger *log.Logger, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			return
		}
		cancel()

		select {
		case sig := <-sigChan:
			logger.Warn("Second signal received, exiting", "signal", sig.String())
			os.Exit(1)
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached, exiting")
			os.Exit(1)
		}
	}()

	return ctx, cancel
}
