package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bankledger/internal/core"
	"bankledger/internal/locks"
	"bankledger/internal/storage"
)

type testEnv struct {
	repo     *storage.SQLiteRepository
	runner   TxRunner
	locks    *locks.Manager
	tracker  *BudgetTracker
	engine   *TransferEngine
	query    *QueryService
	accounts *AccountService
	events   *recordingPublisher
}

func testEngineConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.LockWaitTimeout = 10 * time.Second
	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, testEngineConfig(), nil)
}

// newTestEnvWith builds the full service graph over a fresh SQLite file.
// wrap, when set, decorates the runner used by the engine.
func newTestEnvWith(t *testing.T, cfg EngineConfig, wrap func(TxRunner) TxRunner) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), 5*time.Second)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	runner := TxRunner(NewSQLiteRunner(repo))
	engineRunner := runner
	if wrap != nil {
		engineRunner = wrap(runner)
	}

	lockManager := locks.NewManager()
	events := &recordingPublisher{}
	tracker := NewBudgetTracker(repo.Budgets(), repo.Accounts(), runner, 4)
	return &testEnv{
		repo:     repo,
		runner:   runner,
		locks:    lockManager,
		tracker:  tracker,
		engine:   NewTransferEngine(engineRunner, lockManager, tracker, events, cfg),
		query:    NewQueryService(repo.Accounts(), repo.Ledger()),
		accounts: NewAccountService(runner, lockManager, events, time.Second),
		events:   events,
	}
}

func (e *testEnv) open(t *testing.T, cents int64) int64 {
	t.Helper()
	a, err := e.accounts.OpenAccount(context.Background(), core.Money{Cents: cents})
	if err != nil {
		t.Fatalf("open account: %v", err)
	}
	return a.ID
}

func (e *testEnv) balance(t *testing.T, id int64) int64 {
	t.Helper()
	bal, err := e.query.GetBalance(context.Background(), id)
	if err != nil {
		t.Fatalf("get balance %d: %v", id, err)
	}
	return bal.Cents
}

func (e *testEnv) history(t *testing.T, id int64) []core.Transaction {
	t.Helper()
	list, err := e.query.ListTransactions(context.Background(), id, core.TransactionFilter{}, core.Page{Limit: core.MaxPageSize})
	if err != nil {
		t.Fatalf("list transactions %d: %v", id, err)
	}
	return list
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Transaction
	err    error
}

func (p *recordingPublisher) PublishTransactionCommitted(ctx context.Context, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, t)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

var errInjected = errors.New("injected credit failure")

// faultyRunner fails every credit (positive adjustment) to exercise rollback.
type faultyRunner struct {
	inner TxRunner
}

func (r faultyRunner) InTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	return r.inner.InTx(ctx, func(tx LedgerTx) error {
		return fn(faultyCreditTx{tx})
	})
}

type faultyCreditTx struct {
	LedgerTx
}

func (f faultyCreditTx) AdjustBalance(ctx context.Context, id int64, delta int64) (core.Money, error) {
	if delta > 0 {
		return core.Money{}, core.NewStorageError("adjust balance", errInjected)
	}
	return f.LedgerTx.AdjustBalance(ctx, id, delta)
}
