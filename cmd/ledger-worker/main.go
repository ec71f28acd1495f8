package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bankledger/internal/cli"
	"bankledger/internal/log"
	"bankledger/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger, shutdownTimeout)
	defer cancel()
	ctx = log.WithContext(ctx, logger)

	result, err := cli.OpenLedger(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Cleanup failed", log.FieldError, err)
		}
	}()
	ledger := result.Ledger

	g, gctx := errgroup.WithContext(ctx)

	// Periodic reconciliation and idempotency cleanup
	g.Go(func() error {
		if err := ledger.Processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		return ledger.Processor.Stop(log.WithContext(stopCtx, logger))
	})

	if ledger.AMQP != nil {
		reconciler := worker.NewReconcileWorker(ledger.Budgets)
		g.Go(func() error {
			err := ledger.AMQP.ConsumeTransactionCommitted(gctx, reconciler.HandleCommittedMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, budgets are reconciled on the periodic pass only",
			"interval", cfg.ReconcileInterval)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
