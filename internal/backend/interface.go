package backend

import (
	"context"
	"time"

	"bankledger/internal/amqp"
	"bankledger/internal/cache"
	"bankledger/internal/services"
	"bankledger/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Ledger bundles the wired service graph over one SQLite database.
type Ledger struct {
	Repository *storage.SQLiteRepository
	Engine     *services.TransferEngine
	Budgets    *services.BudgetTracker
	Query      *services.QueryService
	Accounts   *services.AccountService
	Processor  *services.ReconcileProcessor
	Janitor    *cache.Janitor

	// AMQP is nil when no broker is configured or the connection failed.
	AMQP *amqp.Client
}

// Result contains the ledger and its cleanup function
type Result struct {
	Ledger  *Ledger
	Cleanup CleanupFunc
}

// Factory builds a ledger from configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for ledger creation
type Config struct {
	SQLiteDBPath      string
	SQLiteBusyTimeout time.Duration

	// AMQP is optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Engine               services.EngineConfig
	Processor            services.ReconcileProcessorConfig
	ReconcileConcurrency int
}
