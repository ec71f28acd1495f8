package services

import (
	"context"
	"time"

	"bankledger/internal/core"
	"bankledger/internal/storage"
)

// SQLiteRunner adapts storage.SQLiteRepository to TxRunner.
type SQLiteRunner struct {
	repo *storage.SQLiteRepository
}

func NewSQLiteRunner(repo *storage.SQLiteRepository) *SQLiteRunner {
	return &SQLiteRunner{repo: repo}
}

func (r *SQLiteRunner) InTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	return r.repo.InTx(ctx, func(tx *storage.Tx) error {
		return fn(sqliteTx{tx})
	})
}

type sqliteTx struct {
	tx *storage.Tx
}

func (s sqliteTx) CreateAccount(ctx context.Context) (core.Account, error) {
	return s.tx.Accounts.Create(ctx)
}

func (s sqliteTx) AccountExists(ctx context.Context, id int64) (bool, error) {
	return s.tx.Accounts.Exists(ctx, id)
}

func (s sqliteTx) AdjustBalance(ctx context.Context, id int64, delta int64) (core.Money, error) {
	return s.tx.Accounts.Adjust(ctx, id, delta)
}

func (s sqliteTx) SetAccountActive(ctx context.Context, id int64, active bool) error {
	return s.tx.Accounts.SetActive(ctx, id, active)
}

func (s sqliteTx) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return s.tx.Ledger.Append(ctx, t)
}

func (s sqliteTx) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.tx.Ledger.Get(ctx, id)
}

func (s sqliteTx) SumBudgetSpending(ctx context.Context, budgetID int64) (core.Money, error) {
	return s.tx.Ledger.SumForBudget(ctx, budgetID)
}

func (s sqliteTx) OwnedBudget(ctx context.Context, budgetID, ownerID int64) (core.Budget, error) {
	return s.tx.Budgets.GetOwned(ctx, budgetID, ownerID)
}

func (s sqliteTx) AddBudgetSpent(ctx context.Context, budgetID int64, amount core.Money) error {
	return s.tx.Budgets.AddSpent(ctx, budgetID, amount)
}

func (s sqliteTx) StoreReconciledSpent(ctx context.Context, budgetID int64, spent core.Money) error {
	return s.tx.Budgets.StoreReconciled(ctx, budgetID, spent)
}

func (s sqliteTx) LookupIdempotency(ctx context.Context, key string, notBefore time.Time) (storage.IdempotencyRecord, bool, error) {
	return s.tx.Idempotency.Lookup(ctx, key, notBefore)
}

func (s sqliteTx) SaveIdempotency(ctx context.Context, rec storage.IdempotencyRecord, expiredBefore time.Time) error {
	return s.tx.Idempotency.Save(ctx, rec, expiredBefore)
}
