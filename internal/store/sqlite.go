package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"workpile/internal/domain"

	"modernc.org/sqlite"
)

// https://www.sqlite.org/rescode.html
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

const timeLayout = time.RFC3339Nano

// pendingQuery is the anti-join computing the pending set. It covers
// both variants: status rows exist early with a NULL completed_at,
// outbox rows only ever exist completed.
const pendingQuery = `
SELECT w.id, w.data, w.requested_at
FROM work w
WHERE NOT EXISTS (
  SELECT 1 FROM work_outbox o WHERE o.id = w.id AND o.completed_at IS NOT NULL
)
ORDER BY w.requested_at ASC`

type sqliteStore struct{ db *sql.DB }

func (s sqliteStore) GetPending(ctx context.Context) ([]domain.Work, error) {
	rows, err := s.db.QueryContext(ctx, pendingQuery)
	if err != nil {
		return nil, fmt.Errorf("query pending work: %w", err)
	}
	defer rows.Close()

	var works []domain.Work
	for rows.Next() {
		var w domain.Work
		var requestedAt string
		if err := rows.Scan(&w.ID, &w.Data, &requestedAt); err != nil {
			return nil, err
		}
		w.RequestedAt, _ = time.Parse(timeLayout, requestedAt)
		works = append(works, w)
	}
	return works, rows.Err()
}

func (s sqliteStore) Get(ctx context.Context, id string) (domain.Work, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT w.id, w.data, w.requested_at, o.completed_at
FROM work w
LEFT JOIN work_outbox o ON o.id = w.id
WHERE w.id = ?`, id)

	var w domain.Work
	var requestedAt string
	var completedAt sql.NullString
	if err := row.Scan(&w.ID, &w.Data, &requestedAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Work{}, ErrNotFound
		}
		return domain.Work{}, err
	}
	w.RequestedAt, _ = time.Parse(timeLayout, requestedAt)
	if completedAt.Valid && completedAt.String != "" {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err == nil {
			w.CompletedAt = &t
		}
	}
	return w, nil
}

// statusStore writes the ledger row together with the work row at
// submission; completion flips its completed_at under a condition.
// Submission and completion compete for the same table, so this
// variant sees more lock contention than the outbox one.
type statusStore struct{ sqliteStore }

func NewStatusStore(db *sql.DB) Store { return statusStore{sqliteStore{db: db}} }

func (s statusStore) SaveRequested(ctx context.Context, w domain.Work) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO work (id, data, requested_at) VALUES (?, ?, ?)`,
		w.ID, w.Data, w.RequestedAt.UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("insert work %s: %w", w.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO work_outbox (id, completed_at) VALUES (?, NULL)`,
		w.ID); err != nil {
		return fmt.Errorf("insert work outbox %s: %w", w.ID, err)
	}
	return tx.Commit()
}

func (s statusStore) Complete(ctx context.Context, id string, at time.Time) (domain.CompleteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin complete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE work_outbox
   SET completed_at = ?
 WHERE id = ?
   AND completed_at IS NULL`,
		at.UTC().Format(timeLayout), id)
	if err != nil {
		return 0, fmt.Errorf("complete work %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// Zero rows means either a duplicate completion or a missing
		// ledger row. Only a present row makes this the benign case.
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(1) FROM work_outbox WHERE id = ?`, id).Scan(&n); err != nil {
			return 0, err
		}
		if n == 1 {
			return domain.AlreadyCompleted, nil
		}
		return 0, fmt.Errorf("work %s: %w", id, domain.ErrMissingExecutionState)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit completion %s: %w", id, err)
	}
	return domain.Completed, nil
}

// outboxStore writes only the work row at submission, no transaction,
// no ledger touch. Completion inserts the ledger row and relies on the
// primary key to reject duplicates, keeping submitters and completers
// off each other's locks.
type outboxStore struct{ sqliteStore }

func NewOutboxStore(db *sql.DB) Store { return outboxStore{sqliteStore{db: db}} }

func (s outboxStore) SaveRequested(ctx context.Context, w domain.Work) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO work (id, data, requested_at) VALUES (?, ?, ?)`,
		w.ID, w.Data, w.RequestedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert work %s: %w", w.ID, err)
	}
	return nil
}

func (s outboxStore) Complete(ctx context.Context, id string, at time.Time) (domain.CompleteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin complete: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO work_outbox (id, completed_at) VALUES (?, ?)`,
		id, at.UTC().Format(timeLayout))
	if err != nil {
		if isConstraintViolation(err) {
			return domain.AlreadyCompleted, nil
		}
		return 0, fmt.Errorf("complete work %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit completion %s: %w", id, err)
	}
	return domain.Completed, nil
}

func isConstraintViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqliteConstraintPrimaryKey || code == sqliteConstraintUnique
	}
	return false
}
