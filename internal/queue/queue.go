// Package queue holds the process-lifetime scheduling buffer between
// submission and the worker pool. It is a hint, never the system of
// record: losing its contents is always recoverable from the store.
package queue

import (
	"context"

	"workpile/internal/domain"
	"workpile/internal/telemetry"
)

type Queue struct {
	items chan domain.Work
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Queue{items: make(chan domain.Work, capacity)}
}

// TryEnqueue adds w without blocking. It reports false when the queue
// is full; callers treat that as a skipped scheduling hint and rely on
// the reconciliation loader to pick the item up later.
func (q *Queue) TryEnqueue(w domain.Work) bool {
	select {
	case q.items <- w:
		telemetry.QueueDepth.Set(float64(len(q.items)))
		return true
	default:
		return false
	}
}

// Dequeue blocks until an item is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (domain.Work, error) {
	select {
	case <-ctx.Done():
		return domain.Work{}, ctx.Err()
	case w := <-q.items:
		telemetry.QueueDepth.Set(float64(len(q.items)))
		return w, nil
	}
}

// Drain removes whatever is currently queued and reports how many
// items it took. Concurrent consumers may claim items mid-drain, so a
// few can survive; that leaves at most a duplicate delivery, which
// completion deduplicates.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case <-q.items:
			n++
		default:
			telemetry.QueueDepth.Set(float64(len(q.items)))
			return n
		}
	}
}

func (q *Queue) Len() int { return len(q.items) }
