package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"bankledger/internal/core"
)

// SQLiteRepository owns the connection pool and hands out stores bound either
// to the pool or to a single write transaction.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// dsn builds a modernc.org/sqlite connection string. Writers take the
// database lock at BEGIN so concurrent transactions queue on busy_timeout
// instead of failing on lock upgrade.
func dsn(path string, busyTimeout time.Duration) string {
	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	if busyTimeout > 0 {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	}
	params.Set("_txlock", "immediate")
	return "file:" + path + "?" + params.Encode()
}

func NewSQLiteRepository(dbPath string, busyTimeout time.Duration) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool opens so every pooled connection sees the schema
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite ledger opened", "path", dbPath, "busy_timeout", busyTimeout)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the pool for health checks and tests.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// SetClock replaces the wall clock used for new rows.
func (r *SQLiteRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *SQLiteRepository) Accounts() *AccountStore {
	return &AccountStore{q: r.queries, now: r.now}
}

func (r *SQLiteRepository) Ledger() *LedgerStore {
	return &LedgerStore{q: r.queries, now: r.now}
}

func (r *SQLiteRepository) Budgets() *BudgetStore {
	return &BudgetStore{q: r.queries, now: r.now}
}

func (r *SQLiteRepository) Idempotency() *IdempotencyStore {
	return &IdempotencyStore{q: r.queries}
}

// Tx groups the stores of one database transaction. Everything written
// through it becomes visible atomically on commit or not at all.
type Tx struct {
	Accounts    *AccountStore
	Ledger      *LedgerStore
	Budgets     *BudgetStore
	Idempotency *IdempotencyStore
}

// InTx runs fn inside a single write transaction. Any error returned by fn
// rolls the transaction back and is returned unchanged, except that a busy
// or locked database is reported as core.ErrLockTimeout.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
			}
		}
	}()

	q := r.queries.WithTx(sqlTx)
	if err = fn(&Tx{
		Accounts:    &AccountStore{q: q, now: r.now},
		Ledger:      &LedgerStore{q: q, now: r.now},
		Budgets:     &BudgetStore{q: q, now: r.now},
		Idempotency: &IdempotencyStore{q: q},
	}); err != nil {
		if isBusy(err) && !errors.Is(err, core.ErrLockTimeout) {
			err = &core.LockTimeoutError{Op: "write transaction", Err: err}
		}
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return storageError("commit transaction", err)
	}
	return nil
}

// isBusy reports whether err comes from another connection holding the
// database lock past busy_timeout.
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func storageError(op string, err error) error {
	if isBusy(err) {
		return &core.LockTimeoutError{Op: op, Err: err}
	}
	return core.NewStorageError(op, err)
}

func fromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return core.AccountRef(n.Int64)
}
