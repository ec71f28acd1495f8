package worker

import (
	"context"
	"errors"
	"testing"

	"bankledger/internal/amqp"
	"bankledger/internal/core"
)

type fakeReconciler struct {
	calls []int64
	err   error
}

func (f *fakeReconciler) Reconcile(ctx context.Context, budgetID int64) (core.Money, error) {
	f.calls = append(f.calls, budgetID)
	if f.err != nil {
		return core.Money{}, f.err
	}
	return core.Money{Cents: 100}, nil
}

func budgetRef(id int64) *int64 { return &id }

func TestHandleCommittedMessage(t *testing.T) {
	tests := []struct {
		name      string
		msg       *amqp.TransactionCommittedMessage
		err       error
		wantErr   bool
		wantCalls int
	}{
		{
			name:      "no budget reference is acked without work",
			msg:       &amqp.TransactionCommittedMessage{TransactionID: 1},
			wantCalls: 0,
		},
		{
			name:      "referenced budget is reconciled",
			msg:       &amqp.TransactionCommittedMessage{TransactionID: 2, BudgetRef: budgetRef(9)},
			wantCalls: 1,
		},
		{
			name:      "deleted budget is acked",
			msg:       &amqp.TransactionCommittedMessage{TransactionID: 3, BudgetRef: budgetRef(9)},
			err:       core.ErrBudgetNotFound,
			wantCalls: 1,
		},
		{
			name:      "storage failure requeues",
			msg:       &amqp.TransactionCommittedMessage{TransactionID: 4, BudgetRef: budgetRef(9)},
			err:       &core.StorageError{Op: "sum", Err: errors.New("disk I/O error")},
			wantErr:   true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeReconciler{err: tt.err}
			w := NewReconcileWorker(fake)

			err := w.HandleCommittedMessage(context.Background(), tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleCommittedMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(fake.calls) != tt.wantCalls {
				t.Fatalf("expected %d reconcile calls, got %d", tt.wantCalls, len(fake.calls))
			}
			if tt.wantErr && !errors.Is(err, core.ErrStorageFailure) {
				t.Errorf("expected storage failure kind to be preserved, got %v", err)
			}
		})
	}
}
