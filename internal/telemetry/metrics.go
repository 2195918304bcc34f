package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	Submitted    = prometheus.NewCounter(prometheus.CounterOpts{Name: "work_submitted_total", Help: "Work items accepted and durably persisted"})
	Completed    = prometheus.NewCounter(prometheus.CounterOpts{Name: "work_completed_total", Help: "Work items completed for the first time"})
	Duplicates   = prometheus.NewCounter(prometheus.CounterOpts{Name: "work_duplicate_completions_total", Help: "Completion attempts rejected as already completed"})
	Retries      = prometheus.NewCounter(prometheus.CounterOpts{Name: "work_retries_total", Help: "Unit-of-work retry attempts"})
	Exhausted    = prometheus.NewCounter(prometheus.CounterOpts{Name: "work_retry_exhausted_total", Help: "Work items dropped back to pending after exhausting retries"})
	LoaderCycles = prometheus.NewCounter(prometheus.CounterOpts{Name: "work_loader_cycles_total", Help: "Reconciliation loader cycles run"})
	QueueDepth   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "work_queue_depth", Help: "Items currently in the in-memory queue"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			Submitted,
			Completed,
			Duplicates,
			Retries,
			Exhausted,
			LoaderCycles,
			QueueDepth,
		)
	})
	return promhttp.Handler()
}
