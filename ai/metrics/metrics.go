// Package metrics exports pipeline metrics in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry collects the pipeline's operational metrics. A nil *Registry is
// valid and records nothing, so tests can run without one.
type Registry struct {
	registry *prometheus.Registry

	turns              *prometheus.CounterVec
	modelLatency       prometheus.Histogram
	failoverRotations  prometheus.Counter
	extractionFailures prometheus.Counter
	factsPersisted     prometheus.Counter
}

// NewRegistry creates a registry with all pipeline collectors registered.
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memorychat",
			Name:      "turns_total",
			Help:      "Chat turns by memory mode and outcome.",
		}, []string{"mode", "status"}),
		modelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "memorychat",
			Name:      "model_call_duration_seconds",
			Help:      "Latency of primary model calls.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		failoverRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "memorychat",
			Name:      "failover_rotations_total",
			Help:      "Credential rotations triggered by upstream rate limits.",
		}),
		extractionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "memorychat",
			Name:      "extraction_failures_total",
			Help:      "Soft memory-extraction failures (malformed output or upstream errors).",
		}),
		factsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "memorychat",
			Name:      "facts_persisted_total",
			Help:      "Facts committed to the long-term store.",
		}),
	}

	registry.MustRegister(
		r.turns,
		r.modelLatency,
		r.failoverRotations,
		r.extractionFailures,
		r.factsPersisted,
	)
	return r
}

// Handler serves the metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) TurnCompleted(mode, status string) {
	if r == nil {
		return
	}
	r.turns.WithLabelValues(mode, status).Inc()
}

func (r *Registry) ObserveModelLatency(seconds float64) {
	if r == nil {
		return
	}
	r.modelLatency.Observe(seconds)
}

func (r *Registry) FailoverRotation() {
	if r == nil {
		return
	}
	r.failoverRotations.Inc()
}

func (r *Registry) ExtractionFailure() {
	if r == nil {
		return
	}
	r.extractionFailures.Inc()
}

func (r *Registry) FactsPersisted(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.factsPersisted.Add(float64(count))
}
