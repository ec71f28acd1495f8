package backend

import (
	"context"
	"errors"
	"fmt"

	"bankledger/internal/amqp"
	"bankledger/internal/cache"
	"bankledger/internal/locks"
	"bankledger/internal/log"
	"bankledger/internal/services"
	"bankledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new ledger factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// Create implements Factory.Create
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.SQLiteBusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional: without it reconciliation only runs periodically.
	var amqpClient *amqp.Client
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		} else {
			publisher = amqpClient
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	runner := services.NewSQLiteRunner(repo)
	lockManager := locks.NewManager()
	tracker := services.NewBudgetTracker(repo.Budgets(), repo.Accounts(), runner, config.ReconcileConcurrency)
	engine := services.NewTransferEngine(runner, lockManager, tracker, publisher, config.Engine)

	janitor := cache.NewJanitor()
	janitor.Register("idempotency_replay", engine.ReplayCache())

	ledger := &Ledger{
		Repository: repo,
		Engine:     engine,
		Budgets:    tracker,
		Query:      services.NewQueryService(repo.Accounts(), repo.Ledger()),
		Accounts:   services.NewAccountService(runner, lockManager, publisher, config.Engine.LockWaitTimeout),
		Processor:  services.NewReconcileProcessor(tracker, repo.Idempotency(), janitor, config.Processor),
		Janitor:    janitor,
		AMQP:       amqpClient,
	}

	f.logger.InfoContext(ctx, "Initialized ledger",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	return &Result{
		Ledger:  ledger,
		Cleanup: ledger.Close,
	}, nil
}

// Close releases the broker connection and the database.
func (l *Ledger) Close() error {
	var errs []error
	if l.AMQP != nil {
		if err := l.AMQP.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp client: %w", err))
		}
	}
	if err := l.Repository.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close repository: %w", err))
	}
	return errors.Join(errs...)
}
