package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordKind identifies which ledger table a sync message refers to.
type RecordKind string

const (
	KindExpense RecordKind = "expense"
	KindIncome  RecordKind = "income"
)

// IsValid returns true if the record kind is known.
func (k RecordKind) IsValid() bool {
	return k == KindExpense || k == KindIncome
}

// RecordSyncMessage represents a lightweight message for mirroring a ledger
// record to the spreadsheet mirror. It carries only the kind and ID, the
// worker fetches the full record from the database.
type RecordSyncMessage struct {
	Kind      RecordKind `json:"kind"`
	ID        int64      `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewRecordSyncMessage creates a new sync message for the given record.
func NewRecordSyncMessage(kind RecordKind, id int64) *RecordSyncMessage {
	return &RecordSyncMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// Validate checks the message fields before handing it to a worker.
func (m *RecordSyncMessage) Validate() error {
	if !m.Kind.IsValid() {
		return fmt.Errorf("unknown record kind: %q", m.Kind)
	}
	if m.ID <= 0 {
		return fmt.Errorf("invalid record id: %d", m.ID)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON creates a message from JSON bytes
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
