package services

import (
	"context"
	"testing"
	"time"

	"bankledger/internal/cache"
	"bankledger/internal/core"
)

func TestDefaultReconcileProcessorConfig(t *testing.T) {
	config := DefaultReconcileProcessorConfig()

	if config.ReconcileInterval != 5*time.Minute {
		t.Errorf("expected ReconcileInterval 5m, got %v", config.ReconcileInterval)
	}
	if config.CleanupInterval != time.Hour {
		t.Errorf("expected CleanupInterval 1h, got %v", config.CleanupInterval)
	}
	if config.IdempotencyTTL != 24*time.Hour {
		t.Errorf("expected IdempotencyTTL 24h, got %v", config.IdempotencyTTL)
	}
}

func TestReconcileProcessor_StartStop(t *testing.T) {
	env := newTestEnv(t)
	config := DefaultReconcileProcessorConfig()
	config.ReconcileInterval = 10 * time.Millisecond
	config.CleanupInterval = 10 * time.Millisecond
	processor := NewReconcileProcessor(env.tracker, env.repo.Idempotency(), cache.NewJanitor(), config)

	if processor.IsRunning() {
		t.Fatal("processor should not be running initially")
	}

	ctx := context.Background()
	if err := processor.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !processor.IsRunning() {
		t.Fatal("processor should be running after Start")
	}
	if err := processor.Start(ctx); err == nil {
		t.Fatal("expected error when starting already running processor")
	}

	time.Sleep(30 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if processor.IsRunning() {
		t.Fatal("processor should not be running after Stop")
	}
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("stopping a stopped processor should be a no-op: %v", err)
	}
}

func TestReconcileProcessor_Passes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.open(t, 500)

	budget, err := env.tracker.CreateBudget(ctx, a, "Fun", "", core.Money{Cents: 100})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if _, err := env.engine.Withdraw(ctx, WithdrawRequest{AccountID: a, Amount: core.Money{Cents: 30}, BudgetRef: &budget.ID, IdempotencyKey: "w-1"}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := env.repo.DB().ExecContext(ctx, `UPDATE budgets SET spent_amount = 0`); err != nil {
		t.Fatalf("reset: %v", err)
	}

	config := DefaultReconcileProcessorConfig()
	config.IdempotencyTTL = time.Hour
	processor := NewReconcileProcessor(env.tracker, env.repo.Idempotency(), nil, config)

	if n := processor.ReconcileOnce(ctx); n != 1 {
		t.Fatalf("reconciled %d budgets, want 1", n)
	}
	b, err := env.tracker.GetBudget(ctx, a, budget.ID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if b.SpentAmount.Cents != 30 {
		t.Fatalf("spent = %d, want 30", b.SpentAmount.Cents)
	}

	processor.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	processor.CleanupOnce(ctx)
	var keys int
	if err := env.repo.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM idempotency_keys`).Scan(&keys); err != nil {
		t.Fatalf("count keys: %v", err)
	}
	if keys != 0 {
		t.Fatalf("expected expired keys to be purged, %d left", keys)
	}
}
