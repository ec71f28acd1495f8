package core

import (
	"context"
	"errors"
)

// Terminal validation and business errors. They are returned as-is to callers
// and are never retried by the engine.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrSameAccountTransfer    = errors.New("cannot transfer to the same account")
	ErrAccountNotFound        = errors.New("account not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrBudgetNotFound         = errors.New("budget not found")
	ErrIdempotencyConflict    = errors.New("idempotency key reused with different arguments")
	ErrInvalidParties         = errors.New("invalid transaction parties")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidDateRange       = errors.New("invalid date range")
	ErrDescriptionTooLong     = errors.New("description too long (max 500 characters)")
	ErrEmptyCategory          = errors.New("empty budget category")
	ErrNoBudgetChanges        = errors.New("at least one budget field must be provided")
	ErrBudgetRefNotAllowed    = errors.New("deposits cannot reference a budget")
)

// ErrLockTimeout is transient: the caller may retry the same request.
var ErrLockTimeout = errors.New("timed out waiting for account lock")

// LockTimeoutError reports a bounded wait for a lock held outside this
// process, such as the database write lock. The cause stays available to
// logging through Unwrap.
type LockTimeoutError struct {
	Op  string
	Err error
}

func (e *LockTimeoutError) Error() string {
	return ErrLockTimeout.Error() + ": " + e.Op
}

func (e *LockTimeoutError) Unwrap() error {
	return e.Err
}

func (e *LockTimeoutError) Is(target error) bool {
	return target == ErrLockTimeout
}

// ErrStorageFailure is the kind reported for any unexpected storage error.
var ErrStorageFailure = errors.New("storage failure")

// StorageError hides driver and query details from callers while keeping the
// cause available to server-side logging through Unwrap.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage failure: " + e.Op
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

// NewStorageError wraps err unless it already carries a known kind.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

const (
	KindInvalidAmount       = "invalid_amount"
	KindSameAccountTransfer = "same_account_transfer"
	KindAccountNotFound     = "account_not_found"
	KindInsufficientFunds   = "insufficient_funds"
	KindLockTimeout         = "lock_timeout"
	KindTransactionNotFound = "transaction_not_found"
	KindBudgetNotFound      = "budget_not_found"
	KindIdempotencyConflict = "idempotency_conflict"
	KindValidation          = "validation_error"
	KindCanceled            = "canceled"
	KindStorageFailure      = "storage_failure"
	KindInternal            = "internal_error"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrSameAccountTransfer, KindSameAccountTransfer},
	{ErrAccountNotFound, KindAccountNotFound},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrLockTimeout, KindLockTimeout},
	{ErrTransactionNotFound, KindTransactionNotFound},
	{ErrBudgetNotFound, KindBudgetNotFound},
	{ErrIdempotencyConflict, KindIdempotencyConflict},
	{ErrInvalidParties, KindValidation},
	{ErrInvalidTransactionType, KindValidation},
	{ErrInvalidDateRange, KindValidation},
	{ErrDescriptionTooLong, KindValidation},
	{ErrEmptyCategory, KindValidation},
	{ErrNoBudgetChanges, KindValidation},
	{ErrBudgetRefNotAllowed, KindValidation},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
	{ErrStorageFailure, KindStorageFailure},
}

// Kind maps an error to a stable, caller-facing kind string.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Retryable reports whether the caller may retry the same request unchanged.
func Retryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
