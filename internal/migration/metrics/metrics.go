package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for migration passes.
type Metrics struct {
	RecordsMigrated *prometheus.CounterVec
	RecordsSkipped  *prometheus.CounterVec
	RecordFailures  *prometheus.CounterVec
	Runs            prometheus.Counter
}

// New creates and registers all migration metrics.
func New() *Metrics {
	return &Metrics{
		RecordsMigrated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "canonreg_migration_records_total",
			Help: "Records carried into the target schema, by entity kind",
		}, []string{"kind"}),
		RecordsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "canonreg_migration_skipped_total",
			Help: "Records skipped because an earlier pass already migrated them",
		}, []string{"kind"}),
		RecordFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "canonreg_migration_failures_total",
			Help: "Per-record migration failures, by entity kind",
		}, []string{"kind"}),
		Runs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "canonreg_migration_runs_total",
			Help: "Full migration passes triggered",
		}),
	}
}

func (m *Metrics) ObserveRecord(kind string, inserted bool) {
	if m == nil {
		return
	}
	if inserted {
		m.RecordsMigrated.WithLabelValues(kind).Inc()
		return
	}
	m.RecordsSkipped.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveFailure(kind string) {
	if m == nil {
		return
	}
	m.RecordFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRun() {
	if m == nil {
		return
	}
	m.Runs.Inc()
}
