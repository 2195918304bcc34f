// Package work implements the submission side of the pipeline.
package work

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"workpile/internal/domain"
	"workpile/internal/queue"
	"workpile/internal/store"
	"workpile/internal/telemetry"
)

type Service struct {
	store store.Store
	queue *queue.Queue
}

func NewService(st store.Store, q *queue.Queue) *Service {
	return &Service{store: st, queue: q}
}

// Submit persists the payload as new Work and returns its id. The
// write must succeed before anything else happens; a failure here is
// the caller's to retry. Enqueueing afterwards is best-effort only:
// if it is skipped the reconciliation loader finds the row later.
func (s *Service) Submit(ctx context.Context, data string) (string, error) {
	w := domain.NewWork(data)
	if err := s.store.SaveRequested(ctx, w); err != nil {
		return "", fmt.Errorf("save requested work: %w", err)
	}
	telemetry.Submitted.Inc()

	if !s.queue.TryEnqueue(w) {
		log.Warn().Str("work_id", w.ID).Msg("queue full, work deferred to next reconciliation cycle")
	}
	return w.ID, nil
}
