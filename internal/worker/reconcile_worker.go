package worker

import (
	"context"
	"errors"
	"fmt"

	"bankledger/internal/amqp"
	"bankledger/internal/core"
	"bankledger/internal/log"
)

// BudgetReconciler recomputes budget spending from the ledger.
type BudgetReconciler interface {
	Reconcile(ctx context.Context, budgetID int64) (core.Money, error)
}

// ReconcileWorker reacts to committed-transaction events by reconciling the
// budget the entry references. Reconciliation is idempotent, so redelivered
// messages are harmless.
type ReconcileWorker struct {
	budgets BudgetReconciler
}

func NewReconcileWorker(budgets BudgetReconciler) *ReconcileWorker {
	return &ReconcileWorker{budgets: budgets}
}

// HandleCommittedMessage is an amqp.Handler. Errors requeue the message.
func (w *ReconcileWorker) HandleCommittedMessage(ctx context.Context, msg *amqp.TransactionCommittedMessage) error {
	if msg.BudgetRef == nil {
		return nil
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentWorker)
	spent, err := w.budgets.Reconcile(ctx, *msg.BudgetRef)
	if errors.Is(err, core.ErrBudgetNotFound) {
		// Deleted budgets keep their ledger references; nothing to update.
		logger.DebugContext(ctx, "Skipping reconcile for deleted budget",
			log.FieldBudgetID, *msg.BudgetRef,
			log.FieldTransactionID, msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reconcile budget %d: %w", *msg.BudgetRef, err)
	}

	logger.InfoContext(ctx, "Budget reconciled after commit",
		log.FieldBudgetID, *msg.BudgetRef,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldAmountCents, spent.Cents)
	return nil
}
