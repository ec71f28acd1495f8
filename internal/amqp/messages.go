package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"bankledger/internal/core"
)

// TransactionCommittedMessage announces a committed ledger entry. It carries
// ids and the amount only; consumers read anything else from the ledger.
type TransactionCommittedMessage struct {
	MessageID     string    `json:"message_id"`
	TransactionID int64     `json:"transaction_id"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amount_cents"`
	BudgetRef     *int64    `json:"budget_ref,omitempty"`
	CommittedAt   time.Time `json:"committed_at"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionCommittedMessage(t core.Transaction) *TransactionCommittedMessage {
	return &TransactionCommittedMessage{
		MessageID:     uuid.NewString(),
		TransactionID: t.ID,
		Type:          string(t.Type),
		AmountCents:   t.Amount.Cents,
		BudgetRef:     t.BudgetRef,
		CommittedAt:   t.CreatedAt,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionCommittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

var errMissingTransactionID = errors.New("message has no transaction id")

// TransactionCommittedMessageFromJSON decodes and sanity-checks a message.
func TransactionCommittedMessageFromJSON(data []byte) (*TransactionCommittedMessage, error) {
	var msg TransactionCommittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID <= 0 {
		return nil, errMissingTransactionID
	}
	return &msg, nil
}
