package storage

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"strings"
	"time"

	"bankledger/internal/core"
)

// LedgerStore is the append-only transaction log. Entries are never updated
// or deleted; the schema enforces this with triggers.
type LedgerStore struct {
	q   *Queries
	now func() time.Time
}

func toTransaction(t Transaction) core.Transaction {
	return core.Transaction{
		ID:            t.ID,
		FromAccountID: idPtr(t.FromAccountID),
		ToAccountID:   idPtr(t.ToAccountID),
		Amount:        core.Money{Cents: t.Amount},
		Description:   t.Description,
		Type:          core.TransactionType(t.Type),
		Status:        core.TransactionStatus(t.Status),
		CreatedAt:     fromUnixNano(t.CreatedAt),
		BudgetRef:     idPtr(t.BudgetRef),
	}
}

// Append records t and returns it with its assigned id and timestamp.
// Timestamps are strictly increasing across the whole ledger, so ordering by
// created_at matches commit order even if the wall clock steps backwards.
func (s *LedgerStore) Append(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.Status == "" {
		t.Status = core.StatusCommitted
	}

	last, err := s.q.LastTransactionCreatedAt(ctx)
	if err != nil {
		return core.Transaction{}, core.NewStorageError("read ledger clock", err)
	}
	ts := s.now().UnixNano()
	if ts <= last {
		ts = last + 1
	}

	id, err := s.q.InsertTransaction(ctx, InsertTransactionParams{
		FromAccountID: nullID(t.FromAccountID),
		ToAccountID:   nullID(t.ToAccountID),
		Amount:        t.Amount.Cents,
		Description:   t.Description,
		Type:          string(t.Type),
		Status:        string(t.Status),
		CreatedAt:     ts,
		BudgetRef:     nullID(t.BudgetRef),
	})
	if err != nil {
		return core.Transaction{}, core.NewStorageError("append transaction", err)
	}

	t.ID = id
	t.CreatedAt = fromUnixNano(ts)
	return t, nil
}

func (s *LedgerStore) Get(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := s.q.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, core.NewStorageError("get transaction", err)
	}
	return toTransaction(t), nil
}

func listParams(accountID int64, f core.TransactionFilter, p core.Page) ListAccountTransactionsParams {
	arg := ListAccountTransactionsParams{
		AccountID: accountID,
		Text:      strings.TrimSpace(f.Text),
		Ascending: f.Ascending,
		Limit:     -1,
		Offset:    int64(max(p.Offset, 0)),
	}
	if p.Limit > 0 {
		arg.Limit = int64(p.Limit)
	}
	if !f.From.IsZero() {
		arg.CreatedAfter = sql.NullInt64{Int64: f.From.UnixNano(), Valid: true}
	}
	if !f.To.IsZero() {
		arg.CreatedBefore = sql.NullInt64{Int64: f.To.UnixNano(), Valid: true}
	}
	if len(f.Types) > 0 {
		var b strings.Builder
		b.WriteByte(',')
		for _, t := range f.Types {
			b.WriteString(string(t))
			b.WriteByte(',')
		}
		arg.Types = b.String()
	}
	return arg
}

// Query lazily yields the committed entries involving accountID. A zero page
// limit means no limit. Iteration stops at the first error, which is yielded
// with a zero transaction.
func (s *LedgerStore) Query(ctx context.Context, accountID int64, f core.TransactionFilter, p core.Page) iter.Seq2[core.Transaction, error] {
	return func(yield func(core.Transaction, error) bool) {
		if err := f.Validate(); err != nil {
			yield(core.Transaction{}, err)
			return
		}
		rows, err := s.q.ListAccountTransactions(ctx, listParams(accountID, f, p))
		if err != nil {
			yield(core.Transaction{}, core.NewStorageError("query transactions", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTransaction(rows)
			if err != nil {
				yield(core.Transaction{}, core.NewStorageError("scan transaction", err))
				return
			}
			if !yield(toTransaction(t), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(core.Transaction{}, core.NewStorageError("iterate transactions", err))
		}
	}
}

// List collects one page of Query. The page is clamped with Page.Normalize.
func (s *LedgerStore) List(ctx context.Context, accountID int64, f core.TransactionFilter, p core.Page) ([]core.Transaction, error) {
	p = p.Normalize()
	out := make([]core.Transaction, 0, p.Limit)
	for t, err := range s.Query(ctx, accountID, f, p) {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// SumForBudget totals the committed entries tagged with budgetID.
func (s *LedgerStore) SumForBudget(ctx context.Context, budgetID int64) (core.Money, error) {
	total, err := s.q.SumCommittedForBudget(ctx, budgetID)
	if err != nil {
		return core.Money{}, core.NewStorageError("sum budget spending", err)
	}
	return core.Money{Cents: total}, nil
}
