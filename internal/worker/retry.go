package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"workpile/internal/domain"
	"workpile/internal/telemetry"
)

// UnitOfWork performs the external effect for one work item. Delivery
// is at-least-once, so implementations must tolerate being re-run for
// the same item; only completion is deduplicated.
type UnitOfWork func(ctx context.Context, w domain.Work, attempt int) error

// Policy bounds in-process retries for a single delivery. Once the
// attempt budget is spent the failure propagates to the worker, which
// drops the item and leaves recovery to the reconciliation loader.
type Policy struct {
	MaxAttempts int
	// Backoff maps a retry number (1-based) to the wait before it.
	Backoff func(retry int) time.Duration
}

const maxBackoff = 60 * time.Second

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Backoff: ExpBackoff(time.Second)}
}

// ExpBackoff doubles base per retry: base, 2*base, 4*base, capped.
func ExpBackoff(base time.Duration) func(int) time.Duration {
	return func(retry int) time.Duration {
		if retry < 1 {
			retry = 1
		}
		d := base << (retry - 1)
		if d > maxBackoff || d <= 0 {
			d = maxBackoff
		}
		return d
	}
}

// ExecuteWithRetry runs fn up to MaxAttempts times, sleeping per the
// backoff schedule between attempts. The attempt number is handed to
// fn so implementations can observe where they are in the budget.
func (p Policy) ExecuteWithRetry(ctx context.Context, w domain.Work, fn UnitOfWork) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := p.Backoff(attempt - 1)
			log.Debug().
				Str("work_id", w.ID).
				Int("retry", attempt-1).
				Dur("wait", wait).
				Msg("waiting before retry")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			telemetry.Retries.Inc()
		}

		if err = fn(ctx, w, attempt); err == nil {
			return nil
		}
		log.Debug().Err(err).Str("work_id", w.ID).Int("attempt", attempt).Msg("unit of work failed")
	}
	return fmt.Errorf("exhausted %d attempts: %w", attempts, err)
}
