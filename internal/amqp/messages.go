package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"spendlog/internal/core"
)

// EventKind names what happened to an expense.
type EventKind string

const (
	EventCreated EventKind = "expense.created"
	EventUpdated EventKind = "expense.updated"
	EventDeleted EventKind = "expense.deleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// ExpenseEvent is published after every successful write. Created and
// updated events carry the stored snapshot; deleted events only the id.
type ExpenseEvent struct {
	ID        string        `json:"id"`
	Kind      EventKind     `json:"kind"`
	Expense   *core.Expense `json:"expense,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewExpenseEvent stamps an event for e.
func NewExpenseEvent(kind EventKind, e core.Expense) *ExpenseEvent {
	ev := &ExpenseEvent{
		ID:        e.ID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
	if kind != EventDeleted {
		snapshot := e
		ev.Expense = &snapshot
	}
	return ev
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and sanity-checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("event without expense id")
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.Kind != EventDeleted && msg.Expense == nil {
		return nil, fmt.Errorf("%s event without expense snapshot", msg.Kind)
	}
	return &msg, nil
}
