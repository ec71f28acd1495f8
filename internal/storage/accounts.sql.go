package storage

import (
	"context"
)

const createAccount = `
INSERT INTO accounts (balance, version, active, created_at)
VALUES (0, 0, 1, ?)
RETURNING id, balance, version, active, created_at
`

func (q *Queries) CreateAccount(ctx context.Context, createdAt int64) (Account, error) {
	row := q.db.QueryRowContext(ctx, createAccount, createdAt)
	var i Account
	err := row.Scan(&i.ID, &i.Balance, &i.Version, &i.Active, &i.CreatedAt)
	return i, err
}

const getAccount = `
SELECT id, balance, version, active, created_at
FROM accounts
WHERE id = ?
`

func (q *Queries) GetAccount(ctx context.Context, id int64) (Account, error) {
	row := q.db.QueryRowContext(ctx, getAccount, id)
	var i Account
	err := row.Scan(&i.ID, &i.Balance, &i.Version, &i.Active, &i.CreatedAt)
	return i, err
}

const getAccountBalance = `
SELECT balance FROM accounts WHERE id = ? AND active = 1
`

func (q *Queries) GetAccountBalance(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, getAccountBalance, id)
	var balance int64
	err := row.Scan(&balance)
	return balance, err
}

const activeAccountExists = `
SELECT EXISTS (SELECT 1 FROM accounts WHERE id = ? AND active = 1)
`

func (q *Queries) ActiveAccountExists(ctx context.Context, id int64) (bool, error) {
	row := q.db.QueryRowContext(ctx, activeAccountExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

// The balance guard makes the floor check and the write a single statement.
const adjustAccountBalance = `
UPDATE accounts
SET balance = balance + ?,
    version = version + 1
WHERE id = ?
  AND active = 1
  AND balance + ? >= 0
RETURNING balance, version
`

type AdjustAccountBalanceParams struct {
	ID    int64
	Delta int64
}

type AdjustAccountBalanceRow struct {
	Balance int64
	Version int64
}

func (q *Queries) AdjustAccountBalance(ctx context.Context, arg AdjustAccountBalanceParams) (AdjustAccountBalanceRow, error) {
	row := q.db.QueryRowContext(ctx, adjustAccountBalance, arg.Delta, arg.ID, arg.Delta)
	var i AdjustAccountBalanceRow
	err := row.Scan(&i.Balance, &i.Version)
	return i, err
}

const setAccountActive = `
UPDATE accounts
SET active = ?,
    version = version + 1
WHERE id = ?
`

type SetAccountActiveParams struct {
	ID     int64
	Active int64
}

func (q *Queries) SetAccountActive(ctx context.Context, arg SetAccountActiveParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setAccountActive, arg.Active, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const sumAccountBalances = `
SELECT COALESCE(SUM(balance), 0) FROM accounts
`

func (q *Queries) SumAccountBalances(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumAccountBalances)
	var total int64
	err := row.Scan(&total)
	return total, err
}
