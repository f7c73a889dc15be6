package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StatementEventType names a stage in the execution of a statement.
type StatementEventType string

const (
	StatementStart   StatementEventType = "statement:start"
	StatementSuccess StatementEventType = "statement:success"
	StatementFailed  StatementEventType = "statement:failed"
)

// StatementEvent describes one stage of executing a rendered statement. The
// start, success and failure events of one execution share an ID.
type StatementEvent struct {
	ID           string             `json:"id"`
	Type         StatementEventType `json:"type"`
	Operation    string             `json:"operation"`
	SQL          string             `json:"sql"`
	Args         []any              `json:"args,omitempty"`
	RowsAffected *int64             `json:"rowsAffected,omitempty"`
	Error        *string            `json:"error,omitempty"`
	Duration     *int64             `json:"duration,omitempty"`
	Timestamp    int64              `json:"timestamp"`
}

// EventCallback receives statement events.
type EventCallback func(ctx context.Context, event StatementEvent) error

func newStatementID() string { return uuid.New().String() }

func createEvent(id string, eventType StatementEventType, operation, sqlText string, args []any, rows *int64, err error, startTime time.Time) StatementEvent {
	var duration *int64
	if eventType != StatementStart {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}
	var errStr *string
	if err != nil {
		s := err.Error()
		errStr = &s
	}
	return StatementEvent{
		ID:           id,
		Type:         eventType,
		Operation:    operation,
		SQL:          sqlText,
		Args:         args,
		RowsAffected: rows,
		Error:        errStr,
		Duration:     duration,
		Timestamp:    time.Now().UnixMilli(),
	}
}
