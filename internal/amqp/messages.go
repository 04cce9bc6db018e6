package amqp

import (
	"encoding/json"
	"time"
)

// LedgerSyncMessage announces that a user's ledger reached a new revision.
// The worker loads the document itself, so the message stays small.
type LedgerSyncMessage struct {
	UserID    string    `json:"user_id"`
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(userID string, revision int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		UserID:    userID,
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
