package amqp

import (
	"encoding/json"
	"time"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseChangedMessage tells the export worker that the collection changed.
// It carries only the expense id and the action; the worker reloads the
// collection from storage before rebuilding the snapshot.
type ExpenseChangedMessage struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseChangedMessage(id, action string) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		ID:        id,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
