package storage

import (
	"context"
	"database/sql"
)

const insertTransaction = `
INSERT INTO transactions (
    from_account_id,
    to_account_id,
    amount,
    description,
    type,
    status,
    created_at,
    budget_ref
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertTransactionParams struct {
	FromAccountID sql.NullInt64
	ToAccountID   sql.NullInt64
	Amount        int64
	Description   string
	Type          string
	Status        string
	CreatedAt     int64
	BudgetRef     sql.NullInt64
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertTransaction,
		arg.FromAccountID,
		arg.ToAccountID,
		arg.Amount,
		arg.Description,
		arg.Type,
		arg.Status,
		arg.CreatedAt,
		arg.BudgetRef,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const lastTransactionCreatedAt = `
SELECT COALESCE(MAX(created_at), 0) FROM transactions
`

func (q *Queries) LastTransactionCreatedAt(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, lastTransactionCreatedAt)
	var createdAt int64
	err := row.Scan(&createdAt)
	return createdAt, err
}

const transactionColumns = `id, from_account_id, to_account_id, amount, description, type, status, created_at, budget_ref`

const getTransaction = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	return scanTransaction(row)
}

// Every filter is a bound parameter; an empty/NULL value disables it.
// Types are passed as a comma-delimited list such as ",deposit,transfer,".
const listAccountTransactionsWhere = `
FROM transactions
WHERE (from_account_id = ? OR to_account_id = ?)
  AND status = 'committed'
  AND (? IS NULL OR created_at >= ?)
  AND (? IS NULL OR created_at <= ?)
  AND (? = '' OR instr(lower(description), lower(?)) > 0)
  AND (? = '' OR instr(?, ',' || type || ',') > 0)
`

const listAccountTransactionsDesc = `
SELECT ` + transactionColumns + `
` + listAccountTransactionsWhere + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

const listAccountTransactionsAsc = `
SELECT ` + transactionColumns + `
` + listAccountTransactionsWhere + `
ORDER BY created_at ASC, id ASC
LIMIT ? OFFSET ?
`

type ListAccountTransactionsParams struct {
	AccountID     int64
	CreatedAfter  sql.NullInt64
	CreatedBefore sql.NullInt64
	Text          string
	Types         string
	Ascending     bool
	Limit         int64 // negative means no limit
	Offset        int64
}

// ListAccountTransactions returns open rows; the caller must close them.
func (q *Queries) ListAccountTransactions(ctx context.Context, arg ListAccountTransactionsParams) (*sql.Rows, error) {
	query := listAccountTransactionsDesc
	if arg.Ascending {
		query = listAccountTransactionsAsc
	}
	return q.db.QueryContext(ctx, query,
		arg.AccountID, arg.AccountID,
		arg.CreatedAfter, arg.CreatedAfter,
		arg.CreatedBefore, arg.CreatedBefore,
		arg.Text, arg.Text,
		arg.Types, arg.Types,
		arg.Limit, arg.Offset,
	)
}

const sumCommittedForBudget = `
SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE budget_ref = ?
  AND status = 'committed'
`

func (q *Queries) SumCommittedForBudget(ctx context.Context, budgetRef int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumCommittedForBudget, budgetRef)
	var total int64
	err := row.Scan(&total)
	return total, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.FromAccountID,
		&i.ToAccountID,
		&i.Amount,
		&i.Description,
		&i.Type,
		&i.Status,
		&i.CreatedAt,
		&i.BudgetRef,
	)
	return i, err
}
