package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bankledger/internal/cache"
	"bankledger/internal/core"
	"bankledger/internal/locks"
	"bankledger/internal/log"
	"bankledger/internal/storage"
)

// EngineConfig tunes lock waiting and idempotency retention.
type EngineConfig struct {
	// LockWaitTimeout bounds a single attempt to lock the accounts (default: 2s)
	LockWaitTimeout time.Duration

	// LockMaxAttempts is how many lock attempts are made before giving up (default: 3)
	LockMaxAttempts int

	// LockRetryBackoff is the pause before the second attempt; it doubles each time (default: 50ms)
	LockRetryBackoff time.Duration

	// IdempotencyTTL is how long a key replays its first result (default: 24h)
	IdempotencyTTL time.Duration

	// CacheSize bounds the in-memory replay cache; 0 disables it (default: 10000)
	CacheSize int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LockWaitTimeout:  2 * time.Second,
		LockMaxAttempts:  3,
		LockRetryBackoff: 50 * time.Millisecond,
		IdempotencyTTL:   24 * time.Hour,
		CacheSize:        10000,
	}
}

type TransferRequest struct {
	FromAccountID  int64
	ToAccountID    int64
	Amount         core.Money
	Description    string
	IdempotencyKey string
	BudgetRef      *int64
}

type DepositRequest struct {
	AccountID      int64
	Amount         core.Money
	Description    string
	IdempotencyKey string
}

type WithdrawRequest struct {
	AccountID      int64
	Amount         core.Money
	Description    string
	IdempotencyKey string
	BudgetRef      *int64
}

// Result is the outcome of a committed movement. Replayed is set when the
// idempotency key matched an earlier request and nothing new was written.
type Result struct {
	Transaction core.Transaction
	Replayed    bool
}

// replayEntry caches a result under its idempotency key. storedAt is when
// the key was first recorded, so the window is never extended by a replay.
type replayEntry struct {
	hash     string
	tx       core.Transaction
	storedAt time.Time
}

// movement is the common shape of transfers, deposits and withdrawals.
type movement struct {
	typ         core.TransactionType
	from, to    *int64
	amount      core.Money
	description string
	key         string
	budgetRef   *int64
}

func (m movement) accountIDs() []int64 {
	ids := make([]int64, 0, 2)
	if m.from != nil {
		ids = append(ids, *m.from)
	}
	if m.to != nil {
		ids = append(ids, *m.to)
	}
	return ids
}

func formatRef(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

// requestHash fingerprints the arguments bound to an idempotency key.
func (m movement) requestHash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s|%s",
		m.typ, formatRef(m.from), formatRef(m.to), m.amount.Cents, m.description, formatRef(m.budgetRef))
	return hex.EncodeToString(h.Sum(nil))
}

// TransferEngine moves money between accounts. Every movement runs as one
// atomic unit: balances, the ledger entry, budget spending and the
// idempotency record are committed together or not at all.
type TransferEngine struct {
	runner    TxRunner
	locks     *locks.Manager
	tracker   *BudgetTracker
	publisher EventPublisher
	replays   *cache.LRUCache[string, replayEntry]
	config    EngineConfig
	now       func() time.Time
}

// NewTransferEngine wires the engine. publisher may be nil.
func NewTransferEngine(runner TxRunner, lockManager *locks.Manager, tracker *BudgetTracker, publisher EventPublisher, config EngineConfig) *TransferEngine {
	if config.LockMaxAttempts < 1 {
		config.LockMaxAttempts = 1
	}
	return &TransferEngine{
		runner:    runner,
		locks:     lockManager,
		tracker:   tracker,
		publisher: publisher,
		replays:   cache.NewLRUCache[string, replayEntry](config.CacheSize, config.IdempotencyTTL),
		config:    config,
		now:       time.Now,
	}
}

// ReplayCache exposes the replay cache so callers can register it for
// periodic cleanup.
func (e *TransferEngine) ReplayCache() cache.Cleaner {
	return e.replays
}

// Transfer moves amount from one account to another.
func (e *TransferEngine) Transfer(ctx context.Context, req TransferRequest) (Result, error) {
	if req.Description == "" {
		req.Description = core.DefaultTransferDescription
	}
	return e.execute(ctx, movement{
		typ:         core.TypeTransfer,
		from:        core.AccountRef(req.FromAccountID),
		to:          core.AccountRef(req.ToAccountID),
		amount:      req.Amount,
		description: req.Description,
		key:         req.IdempotencyKey,
		budgetRef:   req.BudgetRef,
	})
}

// Deposit adds external funds to an account.
func (e *TransferEngine) Deposit(ctx context.Context, req DepositRequest) (Result, error) {
	return e.execute(ctx, movement{
		typ:         core.TypeDeposit,
		to:          core.AccountRef(req.AccountID),
		amount:      req.Amount,
		description: req.Description,
		key:         req.IdempotencyKey,
	})
}

// Withdraw removes funds from an account. It obeys the same balance floor as
// the debit side of a transfer.
func (e *TransferEngine) Withdraw(ctx context.Context, req WithdrawRequest) (Result, error) {
	return e.execute(ctx, movement{
		typ:         core.TypeWithdrawal,
		from:        core.AccountRef(req.AccountID),
		amount:      req.Amount,
		description: req.Description,
		key:         req.IdempotencyKey,
		budgetRef:   req.BudgetRef,
	})
}

func validateMovement(m movement) error {
	if err := m.amount.Validate(); err != nil {
		return err
	}
	if m.from != nil && m.to != nil && *m.from == *m.to {
		return core.ErrSameAccountTransfer
	}
	if m.budgetRef != nil && m.from == nil {
		return core.ErrBudgetRefNotAllowed
	}
	entry := core.Transaction{
		FromAccountID: m.from,
		ToAccountID:   m.to,
		Amount:        m.amount,
		Description:   m.description,
		Type:          m.typ,
	}
	return entry.Validate()
}

// stateTracker records the engine's progress through a movement.
type stateTracker struct {
	state  core.TransferState
	logger *log.Logger
	ctx    context.Context
}

func (s *stateTracker) advance(next core.TransferState) {
	if !s.state.CanTransition(next) {
		s.logger.WarnContext(s.ctx, "Unexpected transfer state transition",
			"from_state", s.state.String(), "to_state", next.String())
	}
	s.state = next
	s.logger.DebugContext(s.ctx, "Transfer state", log.FieldState, next.String())
}

func (e *TransferEngine) execute(ctx context.Context, m movement) (Result, error) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentTransfer).
		WithFields(log.NewFields().
			WithOperation(string(m.typ)).
			WithMovement(m.from, m.to, m.amount.Cents)).
		With("has_idempotency_key", m.key != "")
	st := &stateTracker{state: core.StateInitiated, logger: logger, ctx: ctx}

	if err := validateMovement(m); err != nil {
		st.advance(core.StateRolledBack)
		logger.InfoContext(ctx, "Movement rejected", log.FieldErrorKind, core.Kind(err))
		return Result{}, err
	}
	st.advance(core.StateValidated)

	hash := ""
	if m.key != "" {
		hash = m.requestHash()
		if cached, ok := e.replays.Get(m.key); ok && e.withinWindow(cached.storedAt) {
			if cached.hash != hash {
				st.advance(core.StateRolledBack)
				return Result{}, core.ErrIdempotencyConflict
			}
			logger.InfoContext(ctx, "Idempotent replay", log.FieldTransactionID, cached.tx.ID)
			return Result{Transaction: cached.tx, Replayed: true}, nil
		}
	}

	release, err := e.acquire(ctx, logger, m.accountIDs())
	if err != nil {
		st.advance(core.StateRolledBack)
		logger.WarnContext(ctx, "Could not lock accounts", log.FieldErrorKind, core.Kind(err))
		return Result{}, err
	}
	defer release()
	st.advance(core.StateLocked)

	start := time.Now()
	var (
		result   Result
		storedAt time.Time
	)
	err = e.runWithRetry(ctx, logger, st, func(tx LedgerTx) error {
		result = Result{}
		now := e.now()
		storedAt = now

		if m.key != "" {
			rec, ok, err := tx.LookupIdempotency(ctx, m.key, now.Add(-e.config.IdempotencyTTL))
			if err != nil {
				return err
			}
			if ok {
				if rec.RequestHash != hash {
					return core.ErrIdempotencyConflict
				}
				prior, err := tx.GetTransaction(ctx, rec.TransactionID)
				if err != nil {
					return err
				}
				result = Result{Transaction: prior, Replayed: true}
				storedAt = rec.CreatedAt
				return nil
			}
		}

		for _, id := range m.accountIDs() {
			ok, err := tx.AccountExists(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return core.ErrAccountNotFound
			}
		}

		if m.budgetRef != nil {
			if err := e.tracker.CheckRef(ctx, tx, *m.budgetRef, *m.from); err != nil {
				return err
			}
		}

		if m.from != nil {
			if _, err := tx.AdjustBalance(ctx, *m.from, -m.amount.Cents); err != nil {
				return err
			}
			st.advance(core.StateDebited)
		}
		if m.to != nil {
			if _, err := tx.AdjustBalance(ctx, *m.to, m.amount.Cents); err != nil {
				return err
			}
			st.advance(core.StateCredited)
		}

		entry, err := tx.AppendTransaction(ctx, core.Transaction{
			FromAccountID: m.from,
			ToAccountID:   m.to,
			Amount:        m.amount,
			Description:   m.description,
			Type:          m.typ,
			Status:        core.StatusCommitted,
			BudgetRef:     m.budgetRef,
		})
		if err != nil {
			return err
		}
		st.advance(core.StateRecorded)

		if err := e.tracker.OnTransactionCommitted(ctx, tx, entry); err != nil {
			return err
		}

		if m.key != "" {
			if err := tx.SaveIdempotency(ctx, storage.IdempotencyRecord{
				Key:           m.key,
				RequestHash:   hash,
				TransactionID: entry.ID,
				CreatedAt:     now,
			}, now.Add(-e.config.IdempotencyTTL)); err != nil {
				return err
			}
		}

		result = Result{Transaction: entry}
		return nil
	})
	if err != nil {
		st.advance(core.StateRolledBack)
		kind := core.Kind(err)
		if kind == core.KindStorageFailure || kind == core.KindInternal || kind == core.KindLockTimeout {
			logger.ErrorContext(ctx, "Movement rolled back", log.FieldError, causeOf(err), log.FieldErrorKind, kind)
		} else {
			logger.InfoContext(ctx, "Movement rolled back", log.FieldErrorKind, kind)
		}
		return Result{}, err
	}

	if m.key != "" {
		e.replays.Set(m.key, replayEntry{hash: hash, tx: result.Transaction, storedAt: storedAt})
	}

	if result.Replayed {
		logger.InfoContext(ctx, "Idempotent replay", log.FieldTransactionID, result.Transaction.ID)
		return result, nil
	}

	st.advance(core.StateCommitted)
	logger.InfoContext(ctx, "Movement committed",
		log.FieldTransactionID, result.Transaction.ID,
		log.FieldDuration, time.Since(start).Milliseconds())

	e.publish(ctx, logger, result.Transaction)
	return result, nil
}

// acquire locks the accounts, retrying lock timeouts with doubling backoff.
func (e *TransferEngine) acquire(ctx context.Context, logger *log.Logger, ids []int64) (func(), error) {
	backoff := e.config.LockRetryBackoff
	for attempt := 1; ; attempt++ {
		release, err := e.locks.Acquire(ctx, e.config.LockWaitTimeout, ids...)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, locks.ErrTimeout) {
			return nil, err
		}
		if attempt >= e.config.LockMaxAttempts {
			return nil, core.ErrLockTimeout
		}

		logger.DebugContext(ctx, "Lock wait timed out, retrying", log.FieldAttempt, attempt)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
}

// runWithRetry runs fn in one transaction, retrying while another process
// holds the database write lock. The account locks stay held throughout.
func (e *TransferEngine) runWithRetry(ctx context.Context, logger *log.Logger, st *stateTracker, fn func(LedgerTx) error) error {
	backoff := e.config.LockRetryBackoff
	for attempt := 1; ; attempt++ {
		st.state = core.StateLocked
		err := e.runner.InTx(ctx, fn)
		if !errors.Is(err, core.ErrLockTimeout) || attempt >= e.config.LockMaxAttempts {
			return err
		}

		logger.DebugContext(ctx, "Database busy, retrying", log.FieldAttempt, attempt, log.FieldError, causeOf(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func (e *TransferEngine) withinWindow(storedAt time.Time) bool {
	return !storedAt.Before(e.now().Add(-e.config.IdempotencyTTL))
}

// causeOf digs out the driver error behind a StorageError for server-side logs.
func causeOf(err error) error {
	var se *core.StorageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err
	}
	var le *core.LockTimeoutError
	if errors.As(err, &le) && le.Err != nil {
		return le.Err
	}
	return err
}

func (e *TransferEngine) publish(ctx context.Context, logger *log.Logger, t core.Transaction) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishTransactionCommitted(ctx, t); err != nil {
		// The ledger is already committed; reconciliation covers missed events.
		logger.WarnContext(ctx, "Failed to publish committed transaction",
			log.FieldTransactionID, t.ID, log.FieldError, err)
	}
}
