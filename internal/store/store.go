package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"workpile/internal/domain"
)

var ErrNotFound = errors.New("work not found")

// Store is the durable side of the pipeline: the work table plus the
// completion ledger. The in-memory queue only ever holds transient
// copies; these two tables are the source of truth.
//
// Two interchangeable implementations exist. NewStatusStore writes the
// ledger row at submission and completes with a conditional update;
// NewOutboxStore writes the ledger row only at completion and lets the
// primary key reject duplicates. Same schema, same contract.
type Store interface {
	// SaveRequested persists a new work item. It must succeed before
	// the item is allowed anywhere near the queue.
	SaveRequested(ctx context.Context, w domain.Work) error

	// Complete durably records completion for id inside a single
	// transaction. A duplicate attempt reports AlreadyCompleted and
	// changes nothing. On SQLite the transaction serializes
	// concurrent completers; atomicity is bought at the cost of
	// horizontal throughput.
	Complete(ctx context.Context, id string, at time.Time) (domain.CompleteResult, error)

	// GetPending returns every persisted work item with no completion
	// recorded, the set the reconciliation loader re-enqueues.
	GetPending(ctx context.Context) ([]domain.Work, error)

	// Get returns one work item with its completion timestamp, if any.
	Get(ctx context.Context, id string) (domain.Work, error)
}

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS work (
  id           TEXT PRIMARY KEY,
  data         TEXT NOT NULL,
  requested_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS work_outbox (
  id           TEXT PRIMARY KEY,
  completed_at TEXT
);
`
	_, err := db.Exec(schema)
	return err
}
