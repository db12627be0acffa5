package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the lookup path.
type Metrics struct {
	Lookups    *prometheus.CounterVec
	CacheHits  prometheus.Counter
	CacheMiss  prometheus.Counter
	Validation *prometheus.CounterVec
}

// New creates and registers all lookup metrics.
func New() *Metrics {
	return &Metrics{
		Lookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "canonreg_lookups_total",
			Help: "Reverse lookups by outcome",
		}, []string{"outcome"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "canonreg_lookup_cache_hits_total",
			Help: "Lookups served from the Redis cache",
		}),
		CacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Name: "canonreg_lookup_cache_misses_total",
			Help: "Lookups that fell through to the store",
		}),
		Validation: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "canonreg_identifier_validations_total",
			Help: "Grammar validations by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveLookup(outcome string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMiss.Inc()
}

func (m *Metrics) ObserveValidation(result string) {
	if m == nil {
		return
	}
	m.Validation.WithLabelValues(result).Inc()
}
