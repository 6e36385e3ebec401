// Package metrics instruments the reconciliation engine and sweep.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects reconciliation counters and sweep timings. All methods
// are nil-safe so tests can pass a nil collector.
type Metrics struct {
	reconciles    *prometheus.CounterVec
	sweepRuns     prometheus.Counter
	sweepDuration prometheus.Histogram
}

// New constructs and registers the reconcile metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simtrack_reconciles_total",
			Help: "Reconciliations by outcome.",
		}, []string{"outcome"}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simtrack_sweep_runs_total",
			Help: "Completed periodic sweep iterations.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simtrack_sweep_duration_seconds",
			Help:    "Duration of one full sweep iteration.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	reg.MustRegister(m.reconciles, m.sweepRuns, m.sweepDuration)
	return m
}

// Outcome labels for ObserveReconcile.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeError     = "authority_error"
	OutcomeNotFound  = "not_found"
)

func (m *Metrics) ObserveReconcile(outcome string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.sweepDuration.Observe(d.Seconds())
}
