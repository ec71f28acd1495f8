package services

import (
	"context"
	"iter"
	"time"

	"bankledger/internal/core"
	"bankledger/internal/storage"
)

// LedgerTx is the storage surface available inside one atomic unit of work.
// Every write made through it commits or rolls back together.
type LedgerTx interface {
	CreateAccount(ctx context.Context) (core.Account, error)
	AccountExists(ctx context.Context, id int64) (bool, error)
	AdjustBalance(ctx context.Context, id int64, delta int64) (core.Money, error)
	SetAccountActive(ctx context.Context, id int64, active bool) error

	AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	SumBudgetSpending(ctx context.Context, budgetID int64) (core.Money, error)

	OwnedBudget(ctx context.Context, budgetID, ownerID int64) (core.Budget, error)
	AddBudgetSpent(ctx context.Context, budgetID int64, amount core.Money) error
	StoreReconciledSpent(ctx context.Context, budgetID int64, spent core.Money) error

	LookupIdempotency(ctx context.Context, key string, notBefore time.Time) (storage.IdempotencyRecord, bool, error)
	SaveIdempotency(ctx context.Context, rec storage.IdempotencyRecord, expiredBefore time.Time) error
}

// TxRunner executes fn as a single all-or-nothing unit.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// EventPublisher announces committed ledger entries. Publishing happens after
// commit and is best effort.
type EventPublisher interface {
	PublishTransactionCommitted(ctx context.Context, t core.Transaction) error
}

type AccountReader interface {
	Get(ctx context.Context, id int64) (core.Account, error)
	Balance(ctx context.Context, id int64) (core.Money, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type LedgerReader interface {
	Get(ctx context.Context, id int64) (core.Transaction, error)
	Query(ctx context.Context, accountID int64, f core.TransactionFilter, p core.Page) iter.Seq2[core.Transaction, error]
	List(ctx context.Context, accountID int64, f core.TransactionFilter, p core.Page) ([]core.Transaction, error)
}

type BudgetRepository interface {
	Create(ctx context.Context, b core.Budget) (core.Budget, error)
	GetOwned(ctx context.Context, id, ownerID int64) (core.Budget, error)
	Update(ctx context.Context, b core.Budget) (core.Budget, error)
	Delete(ctx context.Context, id, ownerID int64) (core.Budget, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]core.Budget, error)
	IDs(ctx context.Context) ([]int64, error)
}

// IdempotencyPurger drops idempotency records older than the retention window.
type IdempotencyPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
