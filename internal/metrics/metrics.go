// Package metrics exposes engine activity to Prometheus through lifecycle hooks.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatflow"

// Metrics holds the collectors fed by Hooks.
type Metrics struct {
	registry *prometheus.Registry

	nodeVisits       *prometheus.CounterVec
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	passes           *prometheus.CounterVec
}

// New creates the collectors on a private registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Total number of node executions.",
			},
			[]string{"template_id", "node_type"},
		),
		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Provider calls by outcome, retries included.",
			},
			[]string{"provider", "capability", "outcome"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_duration_seconds",
				Help:      "Duration of provider calls.",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "capability"},
		),
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_total",
				Help:      "Execution passes by the status the session ended in.",
			},
			[]string{"template_id", "status"},
		),
	}
	m.registry.MustRegister(
		m.nodeVisits, m.providerCalls, m.providerDuration, m.passes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks records engine events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.TemplateID, string(e.NodeType)).Inc()
		},
		OnProviderReturn: func(_ context.Context, e *domain.ProviderEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = "error"
			}
			m.providerCalls.WithLabelValues(e.Provider, e.Capability, outcome).Inc()
			m.providerDuration.WithLabelValues(e.Provider, e.Capability).Observe(e.Duration.Seconds())
		},
		OnSessionStatus: func(_ context.Context, e *domain.StatusEvent) {
			m.passes.WithLabelValues(e.TemplateID, string(e.Status)).Inc()
		},
	}
}
