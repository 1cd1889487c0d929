package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionSyncMessage asks the export worker to sync one
// transaction to the spreadsheet. It carries only the ID and version;
// the worker fetches the current row from the database, so a stale
// message for an already-updated transaction is harmless.
type TransactionSyncMessage struct {
	ID        uuid.UUID `json:"id"`
	Version   int64     `json:"version"`
	Deleted   bool      `json:"deleted,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id uuid.UUID, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewTransactionDeleteMessage marks the transaction's spreadsheet row
// for removal.
func NewTransactionDeleteMessage(id uuid.UUID) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Deleted:   true,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
