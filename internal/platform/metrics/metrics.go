package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-wide Prometheus metrics. Feature modules with
// richer observability needs (reconcile) register their own metric structs.
type Metrics struct {
	HTTPLatency  *prometheus.HistogramVec
	CardsCreated prometheus.Counter
	ShopsCreated prometheus.Counter
}

// New creates all application-wide Prometheus metrics on the default
// registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg. Tests pass a fresh registry so
// repeated construction never collides.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "simtrack_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "status"}),

		CardsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "simtrack_cards_created_total",
			Help: "Total number of SIM cards registered in the system",
		}),

		ShopsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "simtrack_shops_created_total",
			Help: "Total number of shops registered in the system",
		}),
	}
}

// ObserveHTTPLatency records one request's duration.
func (m *Metrics) ObserveHTTPLatency(method, status string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(method, status).Observe(d.Seconds())
	}
}

// IncrementCardsCreated bumps the card creation counter by n.
func (m *Metrics) IncrementCardsCreated(n int) {
	if m != nil {
		m.CardsCreated.Add(float64(n))
	}
}

// IncrementShopsCreated bumps the shop creation counter.
func (m *Metrics) IncrementShopsCreated() {
	if m != nil {
		m.ShopsCreated.Inc()
	}
}
