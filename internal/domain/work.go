package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Work is one durable unit of requested, asynchronous processing. The
// payload is opaque and immutable once persisted. Completion state is
// derived from the completion ledger; the entity itself carries no
// status field.
type Work struct {
	ID          string
	Data        string
	RequestedAt time.Time
	CompletedAt *time.Time
}

const (
	StatePending   = "pending"
	StateCompleted = "completed"
)

// NewWork builds a Work with a fresh server-generated id and the
// current timestamp. Ids are never caller-supplied.
func NewWork(data string) Work {
	return Work{
		ID:          "wrk_" + uuid.NewString(),
		Data:        data,
		RequestedAt: time.Now().UTC(),
	}
}

func (w Work) Completed() bool { return w.CompletedAt != nil }

func (w Work) State() string {
	if w.Completed() {
		return StateCompleted
	}
	return StatePending
}

// CompleteResult is the outcome of a completion attempt. Duplicate
// delivery is a value, not an error: the queue is at-least-once and
// callers branch on it rather than unwrapping a sentinel.
type CompleteResult int

const (
	// Completed means this attempt durably recorded the completion.
	Completed CompleteResult = iota
	// AlreadyCompleted means a ledger entry already existed; the
	// attempt had no observable effect.
	AlreadyCompleted
)

// ErrMissingExecutionState reports a work row whose ledger entry is
// expected but absent. Unlike a duplicate completion this indicates
// storage inconsistency and is surfaced, never swallowed.
var ErrMissingExecutionState = errors.New("missing work execution state")
