package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"bankledger/internal/core"
)

type BudgetStore struct {
	q   *Queries
	now func() time.Time
}

func toBudget(b Budget) core.Budget {
	return core.Budget{
		ID:              b.ID,
		OwnerAccountID:  b.OwnerAccountID,
		Category:        b.Category,
		Label:           b.Label,
		AllocatedAmount: core.Money{Cents: b.AllocatedAmount},
		SpentAmount:     core.Money{Cents: b.SpentAmount},
		CreatedAt:       fromUnixNano(b.CreatedAt),
	}
}

func budgetResult(op string, b Budget, err error) (core.Budget, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, core.NewStorageError(op, err)
	}
	return toBudget(b), nil
}

// Create stores a new budget with zero spending. The owner must exist.
func (s *BudgetStore) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	row, err := s.q.CreateBudget(ctx, CreateBudgetParams{
		OwnerAccountID:  b.OwnerAccountID,
		Category:        strings.TrimSpace(b.Category),
		Label:           b.Label,
		AllocatedAmount: b.AllocatedAmount.Cents,
		CreatedAt:       s.now().UnixNano(),
	})
	return budgetResult("create budget", row, err)
}

func (s *BudgetStore) Get(ctx context.Context, id int64) (core.Budget, error) {
	row, err := s.q.GetBudget(ctx, id)
	return budgetResult("get budget", row, err)
}

// GetOwned returns the budget only if ownerID owns it; otherwise it reports
// ErrBudgetNotFound so callers cannot probe other owners' budgets.
func (s *BudgetStore) GetOwned(ctx context.Context, id, ownerID int64) (core.Budget, error) {
	row, err := s.q.GetOwnedBudget(ctx, GetOwnedBudgetParams{ID: id, OwnerAccountID: ownerID})
	return budgetResult("get budget", row, err)
}

func (s *BudgetStore) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	row, err := s.q.UpdateBudget(ctx, UpdateBudgetParams{
		ID:              b.ID,
		OwnerAccountID:  b.OwnerAccountID,
		Category:        strings.TrimSpace(b.Category),
		Label:           b.Label,
		AllocatedAmount: b.AllocatedAmount.Cents,
	})
	return budgetResult("update budget", row, err)
}

func (s *BudgetStore) Delete(ctx context.Context, id, ownerID int64) (core.Budget, error) {
	row, err := s.q.DeleteBudget(ctx, DeleteBudgetParams{ID: id, OwnerAccountID: ownerID})
	return budgetResult("delete budget", row, err)
}

func (s *BudgetStore) ListByOwner(ctx context.Context, ownerID int64) ([]core.Budget, error) {
	rows, err := s.q.ListBudgetsByOwner(ctx, ownerID)
	if err != nil {
		return nil, core.NewStorageError("list budgets", err)
	}
	out := make([]core.Budget, len(rows))
	for i, b := range rows {
		out[i] = toBudget(b)
	}
	return out, nil
}

func (s *BudgetStore) IDs(ctx context.Context) ([]int64, error) {
	ids, err := s.q.ListBudgetIDs(ctx)
	if err != nil {
		return nil, core.NewStorageError("list budget ids", err)
	}
	return ids, nil
}

// AddSpent increments the running spent amount of a budget.
func (s *BudgetStore) AddSpent(ctx context.Context, id int64, amount core.Money) error {
	n, err := s.q.IncrementBudgetSpent(ctx, IncrementBudgetSpentParams{ID: id, Amount: amount.Cents})
	if err != nil {
		return core.NewStorageError("increment budget spending", err)
	}
	if n == 0 {
		return core.ErrBudgetNotFound
	}
	return nil
}

// StoreReconciled overwrites the spent amount with a value recomputed from
// the ledger. It is the only path that sets spending directly.
func (s *BudgetStore) StoreReconciled(ctx context.Context, id int64, spent core.Money) error {
	n, err := s.q.StoreReconciledBudgetSpent(ctx, StoreReconciledBudgetSpentParams{ID: id, SpentAmount: spent.Cents})
	if err != nil {
		return core.NewStorageError("store reconciled spending", err)
	}
	if n == 0 {
		return core.ErrBudgetNotFound
	}
	return nil
}
