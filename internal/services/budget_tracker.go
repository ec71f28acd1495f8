package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"bankledger/internal/core"
	"bankledger/internal/log"
)

// BudgetTracker maintains per-budget spending derived from the ledger.
//
// Spending is incremented inside the same atomic unit that records a ledger
// entry, so it is never ahead of or behind committed entries. Reconcile
// recomputes the figure from the ledger and is the only other writer.
type BudgetTracker struct {
	budgets     BudgetRepository
	accounts    AccountReader
	runner      TxRunner
	concurrency int
}

func NewBudgetTracker(budgets BudgetRepository, accounts AccountReader, runner TxRunner, concurrency int) *BudgetTracker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BudgetTracker{
		budgets:     budgets,
		accounts:    accounts,
		runner:      runner,
		concurrency: concurrency,
	}
}

func (t *BudgetTracker) logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentBudget)
}

// CreateBudget allocates a new budget for ownerID with zero spending.
func (t *BudgetTracker) CreateBudget(ctx context.Context, ownerID int64, category, label string, allocated core.Money) (core.Budget, error) {
	b := core.Budget{
		OwnerAccountID:  ownerID,
		Category:        strings.TrimSpace(category),
		Label:           label,
		AllocatedAmount: allocated,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	exists, err := t.accounts.Exists(ctx, ownerID)
	if err != nil {
		return core.Budget{}, err
	}
	if !exists {
		return core.Budget{}, core.ErrAccountNotFound
	}

	created, err := t.budgets.Create(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}

	t.logger(ctx).InfoContext(ctx, "Budget created",
		log.FieldBudgetID, created.ID,
		log.FieldAccountID, ownerID,
		"category", created.Category)
	return created, nil
}

// UpdateBudget applies owner-editable changes. Spending cannot be set here.
func (t *BudgetTracker) UpdateBudget(ctx context.Context, ownerID, budgetID int64, changes core.BudgetChanges) (core.Budget, error) {
	if err := changes.Validate(); err != nil {
		return core.Budget{}, err
	}
	current, err := t.budgets.GetOwned(ctx, budgetID, ownerID)
	if err != nil {
		return core.Budget{}, err
	}
	updated, err := t.budgets.Update(ctx, changes.Apply(current))
	if err != nil {
		return core.Budget{}, err
	}

	t.logger(ctx).InfoContext(ctx, "Budget updated", log.FieldBudgetID, budgetID)
	return updated, nil
}

// DeleteBudget removes the budget. Ledger entries keep their reference to it.
func (t *BudgetTracker) DeleteBudget(ctx context.Context, ownerID, budgetID int64) error {
	if _, err := t.budgets.Delete(ctx, budgetID, ownerID); err != nil {
		return err
	}
	t.logger(ctx).InfoContext(ctx, "Budget deleted", log.FieldBudgetID, budgetID)
	return nil
}

func (t *BudgetTracker) GetBudget(ctx context.Context, ownerID, budgetID int64) (core.Budget, error) {
	return t.budgets.GetOwned(ctx, budgetID, ownerID)
}

// ListBudgets returns the owner's budgets, newest first.
func (t *BudgetTracker) ListBudgets(ctx context.Context, ownerID int64) ([]core.Budget, error) {
	return t.budgets.ListByOwner(ctx, ownerID)
}

// CheckRef verifies inside tx that budgetID exists and belongs to ownerID.
func (t *BudgetTracker) CheckRef(ctx context.Context, tx LedgerTx, budgetID, ownerID int64) error {
	_, err := tx.OwnedBudget(ctx, budgetID, ownerID)
	return err
}

// OnTransactionCommitted adds a committed entry's amount to the budget it
// references. It must run in the same tx that appended the entry.
func (t *BudgetTracker) OnTransactionCommitted(ctx context.Context, tx LedgerTx, entry core.Transaction) error {
	if entry.BudgetRef == nil || entry.Status != core.StatusCommitted {
		return nil
	}
	return tx.AddBudgetSpent(ctx, *entry.BudgetRef, entry.Amount)
}

// Reconcile recomputes a budget's spending from the ledger and stores it.
// Running it twice yields the same result.
func (t *BudgetTracker) Reconcile(ctx context.Context, budgetID int64) (core.Money, error) {
	var spent core.Money
	err := t.runner.InTx(ctx, func(tx LedgerTx) error {
		sum, err := tx.SumBudgetSpending(ctx, budgetID)
		if err != nil {
			return err
		}
		if err := tx.StoreReconciledSpent(ctx, budgetID, sum); err != nil {
			return err
		}
		spent = sum
		return nil
	})
	if err != nil {
		return core.Money{}, err
	}

	t.logger(ctx).DebugContext(ctx, "Budget reconciled",
		log.FieldBudgetID, budgetID,
		log.FieldAmountCents, spent.Cents)
	return spent, nil
}

// ReconcileAll reconciles every budget with bounded parallelism. Budgets
// deleted mid-run are skipped. It returns how many budgets were reconciled.
func (t *BudgetTracker) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := t.budgets.IDs(ctx)
	if err != nil {
		return 0, err
	}

	reconciled := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			_, err := t.Reconcile(gctx, id)
			if errors.Is(err, core.ErrBudgetNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reconcile budget %d: %w", id, err)
			}
			reconciled[i] = true
			return nil
		})
	}
	err = g.Wait()

	n := 0
	for _, ok := range reconciled {
		if ok {
			n++
		}
	}
	return n, err
}
