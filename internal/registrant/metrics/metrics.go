package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the registration path.
type Metrics struct {
	IdentifiersSynthesized *prometheus.CounterVec
	CollisionsResolved     prometheus.Counter
	FallbackIdentifiers    prometheus.Counter
	Registrations          *prometheus.CounterVec
}

// New creates and registers all registration metrics.
func New() *Metrics {
	return &Metrics{
		IdentifiersSynthesized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "canonreg_identifiers_synthesized_total",
			Help: "Canonical identifiers synthesized, by encoding scheme",
		}, []string{"scheme"}),
		CollisionsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "canonreg_collisions_resolved_total",
			Help: "Registrations that needed a disambiguation counter",
		}),
		FallbackIdentifiers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "canonreg_fallback_identifiers_total",
			Help: "Identifiers issued through the unchecked timestamp fallback",
		}),
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "canonreg_registrations_total",
			Help: "Registrations accepted, by entity kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) ObserveSynthesis(scheme string) {
	if m == nil {
		return
	}
	m.IdentifiersSynthesized.WithLabelValues(scheme).Inc()
}

func (m *Metrics) ObserveResolution(attempts int, fallback bool) {
	if m == nil {
		return
	}
	if attempts > 0 {
		m.CollisionsResolved.Inc()
	}
	if fallback {
		m.FallbackIdentifiers.Inc()
	}
}

func (m *Metrics) ObserveRegistration(kind string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(kind).Inc()
}
