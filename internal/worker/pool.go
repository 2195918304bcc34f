package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"workpile/internal/domain"
	"workpile/internal/queue"
	"workpile/internal/store"
	"workpile/internal/telemetry"
)

// Pool runs a fixed number of workers draining the queue for the
// process lifetime. Each worker executes the unit of work under the
// retry policy, then records completion transactionally.
type Pool struct {
	store  store.Store
	queue  *queue.Queue
	do     UnitOfWork
	policy Policy
	size   int
	wg     sync.WaitGroup
}

func NewPool(st store.Store, q *queue.Queue, do UnitOfWork, policy Policy, size int) *Pool {
	if size <= 0 {
		size = 3
	}
	return &Pool{store: st, queue: q, do: do, policy: policy, size: size}
}

// Start launches the workers. They exit when ctx is cancelled, each
// finishing its in-flight item first.
func (p *Pool) Start(ctx context.Context) {
	for i := 1; i <= p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	log.Info().Int("workers", p.size).Msg("worker pool started")
}

// Stop blocks until all workers have exited.
func (p *Pool) Stop() {
	p.wg.Wait()
	log.Info().Msg("worker pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log.Debug().Int("worker_id", id).Msg("worker starting")

	for {
		w, err := p.queue.Dequeue(ctx)
		if err != nil {
			log.Debug().Int("worker_id", id).Msg("worker stopping")
			return
		}
		p.process(ctx, w, id)
	}
}

func (p *Pool) process(ctx context.Context, w domain.Work, workerID int) {
	lg := log.With().Str("work_id", w.ID).Int("worker_id", workerID).Logger()

	if err := p.policy.ExecuteWithRetry(ctx, w, p.do); err != nil {
		// The row is still pending in the store; a later loader cycle
		// re-enqueues it. Nothing is marked lost.
		telemetry.Exhausted.Inc()
		lg.Error().Err(err).Msg("dropping work after exhausting retries")
		return
	}

	res, err := p.store.Complete(ctx, w.ID, time.Now().UTC())
	switch {
	case errors.Is(err, domain.ErrMissingExecutionState):
		lg.Error().Err(err).Msg("work execution state missing")
	case err != nil:
		lg.Error().Err(err).Msg("failed to record completion")
	case res == domain.AlreadyCompleted:
		// At-least-once delivery makes duplicates routine, not errors.
		telemetry.Duplicates.Inc()
		lg.Debug().Msg("work already completed, ignoring duplicate delivery")
	default:
		telemetry.Completed.Inc()
		lg.Info().Msg("work completed")
	}
}
