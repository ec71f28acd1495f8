package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldErrorKind     = "error_kind"
	FieldDuration      = "duration_ms"
	FieldAttempt       = "attempt"
	FieldTransactionID = "transaction_id"
	FieldTxType        = "tx_type"
	FieldFromAccount   = "from_account_id"
	FieldToAccount     = "to_account_id"
	FieldAccountID     = "account_id"
	FieldAmountCents   = "amount_cents"
	FieldBudgetID      = "budget_id"
	FieldIdempotency   = "idempotency_key"
	FieldState         = "state"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentTransfer  = "transfer"
	ComponentBudget    = "budget"
	ComponentQuery     = "query"
	ComponentAccount   = "account"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentLocks     = "locks"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
	ComponentReconcile = "reconcile"
)

// Operations defines standard operation names
const (
	OpTransfer  = "transfer"
	OpDeposit   = "deposit"
	OpWithdraw  = "withdraw"
	OpReconcile = "reconcile"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpCleanup   = "cleanup"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error text and its stable kind.
func (f LogFields) WithError(err error, kind string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorKind] = kind
	}
	return f
}

// WithMovement adds the parties and amount of a money movement. Nil parties
// are omitted.
func (f LogFields) WithMovement(from, to *int64, amountCents int64) LogFields {
	if from != nil {
		f[FieldFromAccount] = *from
	}
	if to != nil {
		f[FieldToAccount] = *to
	}
	f[FieldAmountCents] = amountCents
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
