package storage

import (
	"context"
)

const budgetColumns = `id, owner_account_id, category, label, allocated_amount, spent_amount, created_at`

const createBudget = `
INSERT INTO budgets (owner_account_id, category, label, allocated_amount, spent_amount, created_at)
VALUES (?, ?, ?, ?, 0, ?)
RETURNING ` + budgetColumns

type CreateBudgetParams struct {
	OwnerAccountID  int64
	Category        string
	Label           string
	AllocatedAmount int64
	CreatedAt       int64
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, createBudget,
		arg.OwnerAccountID,
		arg.Category,
		arg.Label,
		arg.AllocatedAmount,
		arg.CreatedAt,
	)
	return scanBudget(row)
}

const getBudget = `
SELECT ` + budgetColumns + `
FROM budgets
WHERE id = ?
`

func (q *Queries) GetBudget(ctx context.Context, id int64) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getBudget, id)
	return scanBudget(row)
}

const getOwnedBudget = `
SELECT ` + budgetColumns + `
FROM budgets
WHERE id = ? AND owner_account_id = ?
`

type GetOwnedBudgetParams struct {
	ID             int64
	OwnerAccountID int64
}

func (q *Queries) GetOwnedBudget(ctx context.Context, arg GetOwnedBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getOwnedBudget, arg.ID, arg.OwnerAccountID)
	return scanBudget(row)
}

const updateBudget = `
UPDATE budgets
SET category = ?,
    label = ?,
    allocated_amount = ?
WHERE id = ? AND owner_account_id = ?
RETURNING ` + budgetColumns

type UpdateBudgetParams struct {
	ID              int64
	OwnerAccountID  int64
	Category        string
	Label           string
	AllocatedAmount int64
}

func (q *Queries) UpdateBudget(ctx context.Context, arg UpdateBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, updateBudget,
		arg.Category,
		arg.Label,
		arg.AllocatedAmount,
		arg.ID,
		arg.OwnerAccountID,
	)
	return scanBudget(row)
}

const deleteBudget = `
DELETE FROM budgets
WHERE id = ? AND owner_account_id = ?
RETURNING ` + budgetColumns

type DeleteBudgetParams struct {
	ID             int64
	OwnerAccountID int64
}

func (q *Queries) DeleteBudget(ctx context.Context, arg DeleteBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, deleteBudget, arg.ID, arg.OwnerAccountID)
	return scanBudget(row)
}

const listBudgetsByOwner = `
SELECT ` + budgetColumns + `
FROM budgets
WHERE owner_account_id = ?
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListBudgetsByOwner(ctx context.Context, ownerAccountID int64) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetsByOwner, ownerAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		i, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listBudgetIDs = `
SELECT id FROM budgets ORDER BY id
`

func (q *Queries) ListBudgetIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const incrementBudgetSpent = `
UPDATE budgets
SET spent_amount = spent_amount + ?
WHERE id = ?
`

type IncrementBudgetSpentParams struct {
	ID     int64
	Amount int64
}

func (q *Queries) IncrementBudgetSpent(ctx context.Context, arg IncrementBudgetSpentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, incrementBudgetSpent, arg.Amount, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const storeReconciledBudgetSpent = `
UPDATE budgets
SET spent_amount = ?
WHERE id = ?
`

type StoreReconciledBudgetSpentParams struct {
	ID          int64
	SpentAmount int64
}

func (q *Queries) StoreReconciledBudgetSpent(ctx context.Context, arg StoreReconciledBudgetSpentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, storeReconciledBudgetSpent, arg.SpentAmount, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanBudget(row rowScanner) (Budget, error) {
	var i Budget
	err := row.Scan(
		&i.ID,
		&i.OwnerAccountID,
		&i.Category,
		&i.Label,
		&i.AllocatedAmount,
		&i.SpentAmount,
		&i.CreatedAt,
	)
	return i, err
}
