package core

import (
	"errors"
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if err := (Money{Cents: -5}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	a, b := AccountRef(1), AccountRef(2)
	cases := []struct {
		name string
		tx   Transaction
		want error
	}{
		{"transfer ok", Transaction{FromAccountID: a, ToAccountID: b, Amount: Money{Cents: 10}, Type: TypeTransfer}, nil},
		{"deposit ok", Transaction{ToAccountID: b, Amount: Money{Cents: 10}, Type: TypeDeposit}, nil},
		{"withdrawal ok", Transaction{FromAccountID: a, Amount: Money{Cents: 10}, Type: TypeWithdrawal}, nil},
		{"zero amount", Transaction{FromAccountID: a, ToAccountID: b, Type: TypeTransfer}, ErrInvalidAmount},
		{"transfer missing to", Transaction{FromAccountID: a, Amount: Money{Cents: 1}, Type: TypeTransfer}, ErrInvalidParties},
		{"transfer same account", Transaction{FromAccountID: a, ToAccountID: AccountRef(1), Amount: Money{Cents: 1}, Type: TypeTransfer}, ErrSameAccountTransfer},
		{"deposit with from", Transaction{FromAccountID: a, ToAccountID: b, Amount: Money{Cents: 1}, Type: TypeDeposit}, ErrInvalidParties},
		{"withdrawal with to", Transaction{FromAccountID: a, ToAccountID: b, Amount: Money{Cents: 1}, Type: TypeWithdrawal}, ErrInvalidParties},
		{"both null", Transaction{Amount: Money{Cents: 1}, Type: TypeDeposit}, ErrInvalidParties},
		{"unknown type", Transaction{FromAccountID: a, ToAccountID: b, Amount: Money{Cents: 1}, Type: "refund"}, ErrInvalidTransactionType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tx.Validate()
			if tc.want == nil && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTransactionInvolves(t *testing.T) {
	tx := Transaction{FromAccountID: AccountRef(1), ToAccountID: AccountRef(2)}
	if !tx.Involves(1) || !tx.Involves(2) {
		t.Fatal("both parties should be involved")
	}
	if tx.Involves(3) {
		t.Fatal("third account should not be involved")
	}
	deposit := Transaction{ToAccountID: AccountRef(2)}
	if deposit.Involves(1) {
		t.Fatal("deposit has no sender")
	}
}

func TestBudgetOverBudget(t *testing.T) {
	b := Budget{AllocatedAmount: Money{Cents: 100}, SpentAmount: Money{Cents: 150}}
	if !b.OverBudget() {
		t.Fatal("expected over budget")
	}
	if got := b.Remaining().Cents; got != -50 {
		t.Fatalf("Remaining = %d, want -50", got)
	}
	b.SpentAmount = Money{Cents: 100}
	if b.OverBudget() {
		t.Fatal("spending equal to allocation is not over budget")
	}
}

func TestBudgetChanges(t *testing.T) {
	if err := (BudgetChanges{}).Validate(); !errors.Is(err, ErrNoBudgetChanges) {
		t.Fatalf("expected ErrNoBudgetChanges, got %v", err)
	}
	blank := " "
	if err := (BudgetChanges{Category: &blank}).Validate(); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	zero := Money{}
	if err := (BudgetChanges{AllocatedAmount: &zero}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	label := "Groceries"
	alloc := Money{Cents: 900}
	b := BudgetChanges{Label: &label, AllocatedAmount: &alloc}.Apply(Budget{Category: "Food", Label: "old", AllocatedAmount: Money{Cents: 100}, SpentAmount: Money{Cents: 40}})
	if b.Category != "Food" || b.Label != "Groceries" || b.AllocatedAmount.Cents != 900 || b.SpentAmount.Cents != 40 {
		t.Fatalf("unexpected budget after apply: %+v", b)
	}
}

func TestTransactionFilterValidate(t *testing.T) {
	now := time.Now()
	bad := TransactionFilter{DateRange: DateRange{From: now, To: now.Add(-time.Hour)}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if err := (TransactionFilter{Types: []TransactionType{"bogus"}}).Validate(); !errors.Is(err, ErrInvalidTransactionType) {
		t.Fatalf("expected ErrInvalidTransactionType, got %v", err)
	}
	if err := (TransactionFilter{Types: []TransactionType{TypeDeposit}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestPageNormalize(t *testing.T) {
	cases := []struct {
		in, want Page
	}{
		{Page{}, Page{Limit: DefaultPageSize}},
		{Page{Limit: 10, Offset: -3}, Page{Limit: 10}},
		{Page{Limit: MaxPageSize + 1, Offset: 20}, Page{Limit: MaxPageSize, Offset: 20}},
	}
	for i, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("case %d: got %+v want %+v", i, got, tc.want)
		}
	}
}
