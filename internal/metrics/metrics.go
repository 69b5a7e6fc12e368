// Package metrics exposes prometheus counters for the session lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the service counters.
type Metrics struct {
	registry *prometheus.Registry

	SessionsCreated *prometheus.CounterVec
	ScansEnqueued   prometheus.Counter
	Derivations     prometheus.Counter
	Exports         prometheus.Counter
	QueueFailures   prometheus.Counter
}

// New creates a metric set on its own registry so test instances stay
// independent.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		SessionsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crispy_sessions_created_total",
			Help: "Sessions created, by source kind.",
		}, []string{"source"}),
		ScansEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "crispy_scans_enqueued_total",
			Help: "Scan jobs handed to the worker pool.",
		}),
		Derivations: factory.NewCounter(prometheus.CounterOpts{
			Name: "crispy_derivations_total",
			Help: "Child sessions produced by region derivation.",
		}),
		Exports: factory.NewCounter(prometheus.CounterOpts{
			Name: "crispy_exports_total",
			Help: "CSV exports generated.",
		}),
		QueueFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "crispy_queue_failures_total",
			Help: "Failed queue submissions.",
		}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
