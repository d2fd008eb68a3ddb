package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event actions carried on the bus.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
	ActionToggled = "toggled"
)

// TransactionEventMessage notifies the mirror worker that a transaction
// changed. It carries only the id and action; the worker reads the current
// row from the database, so a stale message is harmless.
type TransactionEventMessage struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionEventMessage creates an event for the given transaction id.
func NewTransactionEventMessage(id int64, action string) *TransactionEventMessage {
	return &TransactionEventMessage{
		ID:        id,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventMessageFromJSON parses a message from JSON bytes.
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
