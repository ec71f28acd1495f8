package services

import (
	"context"
	"iter"

	"bankledger/internal/core"
)

// QueryService is the read side of the ledger. It never writes, and because
// every mutation commits atomically it never observes a half-applied
// movement.
type QueryService struct {
	accounts AccountReader
	ledger   LedgerReader
}

func NewQueryService(accounts AccountReader, ledger LedgerReader) *QueryService {
	return &QueryService{accounts: accounts, ledger: ledger}
}

func (s *QueryService) GetBalance(ctx context.Context, accountID int64) (core.Money, error) {
	return s.accounts.Balance(ctx, accountID)
}

func (s *QueryService) GetAccount(ctx context.Context, accountID int64) (core.Account, error) {
	return s.accounts.Get(ctx, accountID)
}

func (s *QueryService) requireAccount(ctx context.Context, accountID int64) error {
	ok, err := s.accounts.Exists(ctx, accountID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAccountNotFound
	}
	return nil
}

// ListTransactions returns one page of the account's history, newest first
// unless the filter asks otherwise.
func (s *QueryService) ListTransactions(ctx context.Context, accountID int64, filter core.TransactionFilter, page core.Page) ([]core.Transaction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, accountID, filter, page)
}

// SearchTransactions matches text as a case-insensitive substring of the
// description within an optional date range.
func (s *QueryService) SearchTransactions(ctx context.Context, accountID int64, text string, dates core.DateRange, page core.Page) ([]core.Transaction, error) {
	return s.ListTransactions(ctx, accountID, core.TransactionFilter{DateRange: dates, Text: text}, page)
}

// Transactions streams the whole matching history without paging. Each call
// starts a fresh iteration.
func (s *QueryService) Transactions(ctx context.Context, accountID int64, filter core.TransactionFilter) iter.Seq2[core.Transaction, error] {
	return func(yield func(core.Transaction, error) bool) {
		if err := s.requireAccount(ctx, accountID); err != nil {
			yield(core.Transaction{}, err)
			return
		}
		for t, err := range s.ledger.Query(ctx, accountID, filter, core.Page{}) {
			if !yield(t, err) || err != nil {
				return
			}
		}
	}
}

// GetTransaction returns an entry only to one of its parties. Anyone else
// gets ErrTransactionNotFound, the same as for a missing id.
func (s *QueryService) GetTransaction(ctx context.Context, principalAccountID, transactionID int64) (core.Transaction, error) {
	t, err := s.ledger.Get(ctx, transactionID)
	if err != nil {
		return core.Transaction{}, err
	}
	if !t.Involves(principalAccountID) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return t, nil
}
