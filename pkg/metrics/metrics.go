package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts auth operations by outcome and times them.
// A nil *Metrics is a no-op.
type Metrics struct {
	outcomes *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_operations_total",
				Help:      "Auth operations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "auth_operation_duration_seconds",
				Help:      "Auth operation latencies in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(m.outcomes, m.latency)
	return m
}

func (m *Metrics) Observe(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
