package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for provider queries.
type Metrics struct {
	Queries  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// New creates and registers the provider query metrics.
func New() *Metrics {
	return &Metrics{
		Queries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ibp_provider_queries_total",
			Help: "Provider queries by jurisdiction and outcome",
		}, []string{"jurisdiction", "outcome"}),
		Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ibp_provider_query_seconds",
			Help:    "Provider query latency by jurisdiction",
			Buckets: prometheus.DefBuckets,
		}, []string{"jurisdiction"}),
	}
}

// Observe records one finished provider query.
func (m *Metrics) Observe(jurisdiction string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Queries.WithLabelValues(jurisdiction, outcome).Inc()
	m.Duration.WithLabelValues(jurisdiction).Observe(elapsed.Seconds())
}
