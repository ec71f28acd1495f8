package services

import (
	"context"
	"errors"
	"testing"

	"bankledger/internal/core"
)

func TestBudget_TransferIncrementsSpending(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.open(t, 1000)
	b := env.open(t, 0)

	budget, err := env.tracker.CreateBudget(ctx, a, "Rent", "monthly", core.Money{Cents: 150})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}

	for _, amount := range []int64{100, 80} {
		if _, err := env.engine.Transfer(ctx, TransferRequest{
			FromAccountID: a,
			ToAccountID:   b,
			Amount:        core.Money{Cents: amount},
			BudgetRef:     &budget.ID,
		}); err != nil {
			t.Fatalf("transfer: %v", err)
		}
	}

	got, err := env.tracker.GetBudget(ctx, a, budget.ID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if got.SpentAmount.Cents != 180 {
		t.Fatalf("spent = %d, want 180", got.SpentAmount.Cents)
	}
	if !got.OverBudget() {
		t.Fatal("expected over budget to be reported")
	}

	spent, err := env.tracker.Reconcile(ctx, budget.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if spent.Cents != 180 {
		t.Fatalf("reconciled spent = %d, want 180", spent.Cents)
	}
}

func TestBudget_RefMustBelongToDebitedAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.open(t, 1000)
	b := env.open(t, 0)

	othersBudget, err := env.tracker.CreateBudget(ctx, b, "Food", "", core.Money{Cents: 100})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}

	_, err = env.engine.Transfer(ctx, TransferRequest{FromAccountID: a, ToAccountID: b, Amount: core.Money{Cents: 10}, BudgetRef: &othersBudget.ID})
	if !errors.Is(err, core.ErrBudgetNotFound) {
		t.Fatalf("expected ErrBudgetNotFound, got %v", err)
	}
	if got := env.balance(t, a); got != 1000 {
		t.Fatalf("balance changed to %d", got)
	}

	missing := int64(424242)
	if _, err := env.engine.Withdraw(ctx, WithdrawRequest{AccountID: a, Amount: core.Money{Cents: 10}, BudgetRef: &missing}); !errors.Is(err, core.ErrBudgetNotFound) {
		t.Fatalf("expected ErrBudgetNotFound for missing budget, got %v", err)
	}
}

func TestBudget_ReconcileRepairsDrift(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.open(t, 1000)

	budget, err := env.tracker.CreateBudget(ctx, a, "Travel", "", core.Money{Cents: 500})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if _, err := env.engine.Withdraw(ctx, WithdrawRequest{AccountID: a, Amount: core.Money{Cents: 120}, BudgetRef: &budget.ID}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if _, err := env.repo.DB().ExecContext(ctx, `UPDATE budgets SET spent_amount = 999 WHERE id = ?`, budget.ID); err != nil {
		t.Fatalf("corrupt budget: %v", err)
	}

	for i := 0; i < 2; i++ {
		spent, err := env.tracker.Reconcile(ctx, budget.ID)
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if spent.Cents != 120 {
			t.Fatalf("pass %d: spent = %d, want 120", i, spent.Cents)
		}
	}

	if _, err := env.tracker.Reconcile(ctx, 987654); !errors.Is(err, core.ErrBudgetNotFound) {
		t.Fatalf("expected ErrBudgetNotFound, got %v", err)
	}
}

func TestBudget_ReconcileAll(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.open(t, 1000)

	var ids []int64
	for _, category := range []string{"a", "b", "c"} {
		b, err := env.tracker.CreateBudget(ctx, a, category, "", core.Money{Cents: 100})
		if err != nil {
			t.Fatalf("create budget: %v", err)
		}
		ids = append(ids, b.ID)
		if _, err := env.engine.Withdraw(ctx, WithdrawRequest{AccountID: a, Amount: core.Money{Cents: 10}, BudgetRef: &b.ID}); err != nil {
			t.Fatalf("withdraw: %v", err)
		}
	}
	if _, err := env.repo.DB().ExecContext(ctx, `UPDATE budgets SET spent_amount = 0`); err != nil {
		t.Fatalf("reset spending: %v", err)
	}

	n, err := env.tracker.ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("reconcile all: %v", err)
	}
	if n != 3 {
		t.Fatalf("reconciled %d budgets, want 3", n)
	}
	for _, id := range ids {
		b, err := env.tracker.GetBudget(ctx, a, id)
		if err != nil {
			t.Fatalf("get budget: %v", err)
		}
		if b.SpentAmount.Cents != 10 {
			t.Errorf("budget %d spent = %d, want 10", id, b.SpentAmount.Cents)
		}
	}
}

func TestBudget_CRUD(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.open(t, 1000)
	stranger := env.open(t, 0)

	if _, err := env.tracker.CreateBudget(ctx, 9999, "x", "", core.Money{Cents: 1}); !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := env.tracker.CreateBudget(ctx, owner, "  ", "", core.Money{Cents: 1}); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if _, err := env.tracker.CreateBudget(ctx, owner, "x", "", core.Money{}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	b, err := env.tracker.CreateBudget(ctx, owner, "Groceries", "weekly", core.Money{Cents: 300})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.tracker.UpdateBudget(ctx, owner, b.ID, core.BudgetChanges{}); !errors.Is(err, core.ErrNoBudgetChanges) {
		t.Fatalf("expected ErrNoBudgetChanges, got %v", err)
	}
	newAlloc := core.Money{Cents: 500}
	updated, err := env.tracker.UpdateBudget(ctx, owner, b.ID, core.BudgetChanges{AllocatedAmount: &newAlloc})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.AllocatedAmount.Cents != 500 || updated.Category != "Groceries" || updated.Label != "weekly" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if _, err := env.tracker.UpdateBudget(ctx, stranger, b.ID, core.BudgetChanges{AllocatedAmount: &newAlloc}); !errors.Is(err, core.ErrBudgetNotFound) {
		t.Fatalf("expected ErrBudgetNotFound for stranger, got %v", err)
	}

	list, err := env.tracker.ListBudgets(ctx, owner)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v, %d budgets", err, len(list))
	}

	// Spend against the budget, then delete it: the ledger keeps the reference.
	res, err := env.engine.Withdraw(ctx, WithdrawRequest{AccountID: owner, Amount: core.Money{Cents: 40}, BudgetRef: &b.ID})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := env.tracker.DeleteBudget(ctx, stranger, b.ID); !errors.Is(err, core.ErrBudgetNotFound) {
		t.Fatalf("expected ErrBudgetNotFound deleting as stranger, got %v", err)
	}
	if err := env.tracker.DeleteBudget(ctx, owner, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entry, err := env.query.GetTransaction(ctx, owner, res.Transaction.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if entry.BudgetRef == nil || *entry.BudgetRef != b.ID {
		t.Fatalf("ledger lost budget reference: %+v", entry.BudgetRef)
	}
}
