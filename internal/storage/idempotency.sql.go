package storage

import (
	"context"
)

const getIdempotencyKey = `
SELECT key, request_hash, transaction_id, created_at
FROM idempotency_keys
WHERE key = ?
`

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKey, error) {
	row := q.db.QueryRowContext(ctx, getIdempotencyKey, key)
	var i IdempotencyKey
	err := row.Scan(&i.Key, &i.RequestHash, &i.TransactionID, &i.CreatedAt)
	return i, err
}

// Upsert so an expired key can be reused as a brand new request.
const saveIdempotencyKey = `
INSERT INTO idempotency_keys (key, request_hash, transaction_id, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE
SET request_hash = excluded.request_hash,
    transaction_id = excluded.transaction_id,
    created_at = excluded.created_at
WHERE idempotency_keys.created_at < ?
`

type SaveIdempotencyKeyParams struct {
	Key           string
	RequestHash   string
	TransactionID int64
	CreatedAt     int64
	ExpiredBefore int64
}

func (q *Queries) SaveIdempotencyKey(ctx context.Context, arg SaveIdempotencyKeyParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, saveIdempotencyKey,
		arg.Key,
		arg.RequestHash,
		arg.TransactionID,
		arg.CreatedAt,
		arg.ExpiredBefore,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpiredIdempotencyKeys = `
DELETE FROM idempotency_keys
WHERE created_at < ?
`

func (q *Queries) DeleteExpiredIdempotencyKeys(ctx context.Context, before int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredIdempotencyKeys, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
