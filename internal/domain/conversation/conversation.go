// Package conversation holds the append-only dialogue log. Entries are never
// mutated after creation; they are the audit trail of what each side said.
package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry records a single processed webhook for a call: which step it hit,
// what the caller supplied and what the system answered.
type Entry struct {
	ID             uuid.UUID
	CallID         uuid.UUID
	Step           string
	RawInput       string
	SystemResponse string
	Timestamp      time.Time
}

// New constructs a log entry for the given call and step.
func New(callID uuid.UUID, step, rawInput, systemResponse string) *Entry {
	return &Entry{
		ID:             uuid.New(),
		CallID:         callID,
		Step:           step,
		RawInput:       rawInput,
		SystemResponse: systemResponse,
		Timestamp:      time.Now(),
	}
}

// Repository defines persistence for conversation entries.
type Repository interface {
	// Append persists a new entry. Entries are insert-only.
	Append(ctx context.Context, e *Entry) error

	// ListByCall returns all entries of a call in chronological order.
	ListByCall(ctx context.Context, callID uuid.UUID) ([]*Entry, error)
}
