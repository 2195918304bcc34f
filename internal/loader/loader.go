// Package loader re-discovers persisted-but-uncompleted work and feeds
// it back into the in-memory queue, at startup and on a fixed
// interval. It is the recovery path for crashed processes, full
// queues, and retry-exhausted items.
package loader

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"workpile/internal/queue"
	"workpile/internal/store"
	"workpile/internal/telemetry"
)

type Loader struct {
	store    store.Store
	queue    *queue.Queue
	interval time.Duration
	cron     *cron.Cron
}

func New(st store.Store, q *queue.Queue, interval time.Duration) *Loader {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Loader{store: st, queue: q, interval: interval, cron: cron.New()}
}

// Start runs one synchronous cycle, then schedules periodic cycles.
// A cycle still running when the next tick fires causes that tick to
// be skipped; two cycles never overlap.
func (l *Loader) Start(ctx context.Context) {
	l.run(ctx)

	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{})).
		Then(cron.FuncJob(func() { l.run(ctx) }))
	l.cron.Schedule(cron.Every(l.interval), job)
	l.cron.Start()

	log.Info().Dur("interval", l.interval).Msg("reconciliation loader started")
}

// Stop halts the schedule and waits for a running cycle to finish.
func (l *Loader) Stop() {
	<-l.cron.Stop().Done()
	log.Info().Msg("reconciliation loader stopped")
}

// run executes one reconciliation cycle. Every failure in here is
// logged and swallowed; the next tick simply tries again.
func (l *Loader) run(ctx context.Context) {
	telemetry.LoaderCycles.Inc()

	pending, err := l.store.GetPending(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load pending work")
		return
	}
	if len(pending) == 0 {
		log.Debug().Msg("no pending work")
		return
	}

	// Empty the queue before reloading so repeated cycles don't pile
	// up copies of the same still-pending items. Workers may claim a
	// few items mid-drain; those become duplicate deliveries at worst.
	cleared := l.queue.Drain()

	requeued := 0
	for _, w := range pending {
		if l.queue.TryEnqueue(w) {
			requeued++
		}
	}
	log.Debug().
		Int("pending", len(pending)).
		Int("cleared", cleared).
		Int("requeued", requeued).
		Msg("reconciled pending work")
}

// cronLogger adapts zerolog to cron's logging interface. Skipped
// ticks surface here.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	log.Debug().Fields(kv).Msg(msg)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	log.Error().Err(err).Fields(kv).Msg(msg)
}
