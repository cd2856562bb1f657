package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "promptwright"

// Metrics holds the Prometheus collectors for one process. All Record
// methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	samplesGenerated  prometheus.Counter
	samplesFailed     *prometheus.CounterVec
	steps             *prometheus.CounterVec
	treeNodes         *prometheus.CounterVec
	completionLatency *prometheus.HistogramVec
	completionErrors  *prometheus.CounterVec
}

// NewMetrics registers collectors in a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		samplesGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "samples_generated_total",
			Help:      "Samples accepted into the dataset",
		}),
		samplesFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "samples_failed_total",
			Help:      "Failed samples by failure category",
		}, []string{"category"}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "steps_total",
			Help:      "Generation steps by outcome (ok, abandoned)",
		}, []string{"outcome"}),
		treeNodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "topictree",
			Name:      "nodes_expanded_total",
			Help:      "Expanded tree nodes by outcome (generated, fallback)",
		}, []string{"outcome"}),
		completionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "completion_duration_seconds",
			Help:      "Completion call latency",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider", "kind"}),
		completionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "completion_errors_total",
			Help:      "Failed completion calls",
		}, []string{"provider"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSample counts one accepted sample.
func (m *Metrics) RecordSample() {
	if m == nil {
		return
	}
	m.samplesGenerated.Inc()
}

// RecordFailure counts one rejected sample under its failure category.
func (m *Metrics) RecordFailure(category string) {
	if m == nil {
		return
	}
	m.samplesFailed.WithLabelValues(category).Inc()
}

// RecordStep counts a finished step as ok or abandoned.
func (m *Metrics) RecordStep(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "abandoned"
	}
	m.steps.WithLabelValues(outcome).Inc()
}

// RecordTreeNode counts one expanded node, noting when its subtopics fell back.
func (m *Metrics) RecordTreeNode(fallback bool) {
	if m == nil {
		return
	}
	outcome := "generated"
	if fallback {
		outcome = "fallback"
	}
	m.treeNodes.WithLabelValues(outcome).Inc()
}

// RecordCompletion observes one completion call. kind is "single" or "batch".
func (m *Metrics) RecordCompletion(provider, kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.completionLatency.WithLabelValues(provider, kind).Observe(d.Seconds())
	if err != nil {
		m.completionErrors.WithLabelValues(provider).Inc()
	}
}

// Push sends every collector to a Prometheus Pushgateway.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}

// Handler serves the collectors in the Prometheus exposition format, for
// scraping long runs while they are in progress.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
