package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bankledger/internal/core"
)

// AccountStore keeps the current balance of every account. Balances only
// change through Adjust, which refuses to take a balance below zero.
type AccountStore struct {
	q   *Queries
	now func() time.Time
}

func toAccount(a Account) core.Account {
	return core.Account{
		ID:        a.ID,
		Balance:   core.Money{Cents: a.Balance},
		Version:   a.Version,
		Active:    a.Active == 1,
		CreatedAt: fromUnixNano(a.CreatedAt),
	}
}

func (s *AccountStore) Create(ctx context.Context) (core.Account, error) {
	a, err := s.q.CreateAccount(ctx, s.now().UnixNano())
	if err != nil {
		return core.Account{}, core.NewStorageError("create account", err)
	}
	return toAccount(a), nil
}

// Get returns an active account. Deactivated accounts are reported as missing.
func (s *AccountStore) Get(ctx context.Context, id int64) (core.Account, error) {
	a, err := s.q.GetAccount(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, core.NewStorageError("get account", err)
	}
	if a.Active != 1 {
		return core.Account{}, core.ErrAccountNotFound
	}
	return toAccount(a), nil
}

// Balance reads the committed balance of an active account.
func (s *AccountStore) Balance(ctx context.Context, id int64) (core.Money, error) {
	cents, err := s.q.GetAccountBalance(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Money{}, core.NewStorageError("get balance", err)
	}
	return core.Money{Cents: cents}, nil
}

func (s *AccountStore) Exists(ctx context.Context, id int64) (bool, error) {
	ok, err := s.q.ActiveAccountExists(ctx, id)
	if err != nil {
		return false, core.NewStorageError("check account", err)
	}
	return ok, nil
}

// Adjust adds delta to the balance and returns the new balance. A debit that
// would overdraw the account fails with ErrInsufficientFunds and leaves the
// row untouched.
func (s *AccountStore) Adjust(ctx context.Context, id int64, delta int64) (core.Money, error) {
	row, err := s.q.AdjustAccountBalance(ctx, AdjustAccountBalanceParams{ID: id, Delta: delta})
	if errors.Is(err, sql.ErrNoRows) {
		exists, existsErr := s.Exists(ctx, id)
		if existsErr != nil {
			return core.Money{}, existsErr
		}
		if !exists {
			return core.Money{}, core.ErrAccountNotFound
		}
		return core.Money{}, core.ErrInsufficientFunds
	}
	if err != nil {
		return core.Money{}, core.NewStorageError("adjust balance", err)
	}
	return core.Money{Cents: row.Balance}, nil
}

func (s *AccountStore) SetActive(ctx context.Context, id int64, active bool) error {
	var flag int64
	if active {
		flag = 1
	}
	n, err := s.q.SetAccountActive(ctx, SetAccountActiveParams{ID: id, Active: flag})
	if err != nil {
		return core.NewStorageError("set account active", err)
	}
	if n == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

// TotalBalance sums every balance, active or not.
func (s *AccountStore) TotalBalance(ctx context.Context) (core.Money, error) {
	total, err := s.q.SumAccountBalances(ctx)
	if err != nil {
		return core.Money{}, core.NewStorageError("sum balances", err)
	}
	return core.Money{Cents: total}, nil
}
