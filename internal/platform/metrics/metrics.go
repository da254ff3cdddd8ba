package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics. Provider query metrics
// live next to the dispatcher in internal/provider/metrics.
type Metrics struct {
	InmatesReconciled prometheus.Counter
	LookupsRecorded   prometheus.Counter
}

// New creates and registers all process-level Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		InmatesReconciled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ibp_inmates_reconciled_total",
			Help: "Total number of provider records folded into the store",
		}),
		LookupsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ibp_lookups_recorded_total",
			Help: "Total number of inmate lookup events recorded",
		}),
	}
}

// AddInmatesReconciled counts records folded into the store. Safe on nil.
func (m *Metrics) AddInmatesReconciled(n int) {
	if m == nil {
		return
	}
	m.InmatesReconciled.Add(float64(n))
}

// IncLookupsRecorded counts one recorded lookup. Safe on nil.
func (m *Metrics) IncLookupsRecorded() {
	if m == nil {
		return
	}
	m.LookupsRecorded.Inc()
}
