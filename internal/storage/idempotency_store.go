package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bankledger/internal/core"
)

// IdempotencyRecord binds a client key to the transaction it produced.
type IdempotencyRecord struct {
	Key           string
	RequestHash   string
	TransactionID int64
	CreatedAt     time.Time
}

type IdempotencyStore struct {
	q *Queries
}

// Lookup returns the record for key if it was created at or after notBefore.
// Older records are treated as absent.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string, notBefore time.Time) (IdempotencyRecord, bool, error) {
	row, err := s.q.GetIdempotencyKey(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return IdempotencyRecord{}, false, core.NewStorageError("lookup idempotency key", err)
	}
	rec := IdempotencyRecord{
		Key:           row.Key,
		RequestHash:   row.RequestHash,
		TransactionID: row.TransactionID,
		CreatedAt:     fromUnixNano(row.CreatedAt),
	}
	if rec.CreatedAt.Before(notBefore) {
		return IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

// Save stores rec, replacing an expired record with the same key. A live
// record for the key is never overwritten and yields ErrIdempotencyConflict.
func (s *IdempotencyStore) Save(ctx context.Context, rec IdempotencyRecord, expiredBefore time.Time) error {
	n, err := s.q.SaveIdempotencyKey(ctx, SaveIdempotencyKeyParams{
		Key:           rec.Key,
		RequestHash:   rec.RequestHash,
		TransactionID: rec.TransactionID,
		CreatedAt:     rec.CreatedAt.UnixNano(),
		ExpiredBefore: expiredBefore.UnixNano(),
	})
	if err != nil {
		return core.NewStorageError("save idempotency key", err)
	}
	if n == 0 {
		return core.ErrIdempotencyConflict
	}
	return nil
}

// PurgeExpired deletes records created before cutoff and reports how many.
func (s *IdempotencyStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.q.DeleteExpiredIdempotencyKeys(ctx, cutoff.UnixNano())
	if err != nil {
		return 0, core.NewStorageError("purge idempotency keys", err)
	}
	return n, nil
}
