package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/tally/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tally"

// Metrics collects calculator activity.
type Metrics struct {
	registry    *prometheus.Registry
	commands    *prometheus.CounterVec
	evaluations *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics creates and registers the collectors.
// With process set, Go runtime and process collectors are registered too.
func NewMetrics(process bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Commands dispatched, by kind.",
			},
			[]string{"kind"},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Evaluations by outcome (ok or the error kind).",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Time spent validating, parsing and computing an expression.",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),
	}
	m.registry.MustRegister(m.commands, m.evaluations, m.duration)
	if process {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommand: func(_ context.Context, e *domain.CommandEvent) {
			m.commands.WithLabelValues(string(e.Command.Kind)).Inc()
		},
		OnEvaluate: func(_ context.Context, e *domain.EvaluateEvent) {
			label := "ok"
			if e.Outcome.Err != nil {
				label = string(e.Outcome.Err.Kind)
			}
			m.evaluations.WithLabelValues(label).Inc()
			m.duration.Observe(e.Duration.Seconds())
		},
	}
}

// Registry exposes the underlying registry for custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
