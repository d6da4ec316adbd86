package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Operations carried by a LedgerChangedMessage.
const (
	OperationCreate = "create"
	OperationDelete = "delete"
	OperationReload = "reload"
)

// LedgerChangedMessage announces that a ledger collection changed.
// It carries no row data: consumers reload the whole snapshot.
type LedgerChangedMessage struct {
	Collection string    `json:"collection,omitempty"`
	Operation  string    `json:"operation"`
	ID         string    `json:"id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a message stamped with the current time
func NewLedgerChangedMessage(collection, operation, id string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Collection: collection,
		Operation:  operation,
		ID:         id,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Operation == "" {
		return nil, fmt.Errorf("ledger changed message without operation")
	}
	return &msg, nil
}
