// Package execute provides unit-of-work implementations wired in by
// the composition root. They are plain functions so tests can swap in
// scripted success/failure sequences.
package execute

import (
	"context"
	"time"

	"workpile/internal/domain"
	"workpile/internal/worker"
)

// Sleep holds the worker for a fixed duration and succeeds. It stands
// in for a real external effect in local runs and load tests.
func Sleep(d time.Duration) worker.UnitOfWork {
	return func(ctx context.Context, w domain.Work, attempt int) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}
}
