package core

import (
	"strings"
	"time"
)

const (
	TypeTransfer   TransactionType = "transfer"
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

const (
	StatusCommitted TransactionStatus = "committed"
	StatusFailed    TransactionStatus = "failed"
)

// DefaultTransferDescription is used when a transfer is submitted without one.
const DefaultTransferDescription = "Transfer"

const maxDescriptionLength = 500

type (
	TransactionType   string
	TransactionStatus string

	Money struct {
		Cents int64
	}

	Account struct {
		ID        int64
		Balance   Money
		Version   int64
		Active    bool
		CreatedAt time.Time
	}

	// Transaction is an immutable ledger entry. FromAccountID is nil for
	// deposits and ToAccountID is nil for withdrawals.
	Transaction struct {
		ID            int64
		FromAccountID *int64
		ToAccountID   *int64
		Amount        Money
		Description   string
		Type          TransactionType
		Status        TransactionStatus
		CreatedAt     time.Time
		BudgetRef     *int64
	}

	Budget struct {
		ID              int64
		OwnerAccountID  int64
		Category        string
		Label           string
		AllocatedAmount Money
		SpentAmount     Money
		CreatedAt       time.Time
	}

	// BudgetChanges holds the owner-editable fields of a budget. Nil fields are
	// left untouched. Spent amount is derived from the ledger and cannot be set.
	BudgetChanges struct {
		Category        *string
		Label           *string
		AllocatedAmount *Money
	}

	DateRange struct {
		From time.Time // inclusive, zero means unbounded
		To   time.Time // inclusive, zero means unbounded
	}

	TransactionFilter struct {
		DateRange
		Text      string            // case-insensitive substring of the description
		Types     []TransactionType // empty means all types
		Ascending bool              // default order is newest first
	}

	Page struct {
		Limit  int
		Offset int
	}
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeTransfer, TypeDeposit, TypeWithdrawal:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Involves reports whether accountID is one of the parties of the transaction.
func (t Transaction) Involves(accountID int64) bool {
	return (t.FromAccountID != nil && *t.FromAccountID == accountID) ||
		(t.ToAccountID != nil && *t.ToAccountID == accountID)
}

// Validate checks the shape invariants of a ledger entry before it is appended.
func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(t.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	switch t.Type {
	case TypeTransfer:
		if t.FromAccountID == nil || t.ToAccountID == nil {
			return ErrInvalidParties
		}
		if *t.FromAccountID == *t.ToAccountID {
			return ErrSameAccountTransfer
		}
	case TypeDeposit:
		if t.FromAccountID != nil || t.ToAccountID == nil {
			return ErrInvalidParties
		}
	case TypeWithdrawal:
		if t.FromAccountID == nil || t.ToAccountID != nil {
			return ErrInvalidParties
		}
	default:
		return ErrInvalidTransactionType
	}
	return nil
}

// OverBudget reports whether spending has exceeded the allocation. It is a
// reportable condition, never an error.
func (b Budget) OverBudget() bool {
	return b.SpentAmount.Cents > b.AllocatedAmount.Cents
}

// Remaining is negative when the budget is overspent.
func (b Budget) Remaining() Money {
	return Money{Cents: b.AllocatedAmount.Cents - b.SpentAmount.Cents}
}

func (b Budget) Validate() error {
	if b.OwnerAccountID <= 0 {
		return ErrAccountNotFound
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if len(b.Label) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return b.AllocatedAmount.Validate()
}

func (c BudgetChanges) Empty() bool {
	return c.Category == nil && c.Label == nil && c.AllocatedAmount == nil
}

func (c BudgetChanges) Validate() error {
	if c.Empty() {
		return ErrNoBudgetChanges
	}
	if c.Category != nil && strings.TrimSpace(*c.Category) == "" {
		return ErrEmptyCategory
	}
	if c.Label != nil && len(*c.Label) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if c.AllocatedAmount != nil {
		return c.AllocatedAmount.Validate()
	}
	return nil
}

// Apply returns a copy of b with the changes applied.
func (c BudgetChanges) Apply(b Budget) Budget {
	if c.Category != nil {
		b.Category = strings.TrimSpace(*c.Category)
	}
	if c.Label != nil {
		b.Label = *c.Label
	}
	if c.AllocatedAmount != nil {
		b.AllocatedAmount = *c.AllocatedAmount
	}
	return b
}

func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return ErrInvalidDateRange
	}
	return nil
}

func (f TransactionFilter) Validate() error {
	if err := f.DateRange.Validate(); err != nil {
		return err
	}
	for _, t := range f.Types {
		if !t.Valid() {
			return ErrInvalidTransactionType
		}
	}
	return nil
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// AccountRef is a small helper for building optional account references.
func AccountRef(id int64) *int64 {
	return &id
}
