// Package metrics holds the Prometheus collectors for the classification
// pipeline and the observer coordinator. All methods are safe on a nil
// *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "axon"

type Metrics struct {
	registry *prometheus.Registry

	classified        *prometheus.CounterVec
	score             prometheus.Histogram
	observers         prometheus.Gauge
	broadcastMessages prometheus.Counter
	broadcastFailures prometheus.Counter
	sinkErrors        *prometheus.CounterVec
}

// New registers every collector on a fresh registry. Process and Go runtime
// collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		classified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_classified_total",
			Help:      "Honeypot requests classified, by label.",
		}, []string{"label"}),
		score: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_score",
			Help:      "Heuristic score assigned to honeypot requests.",
			Buckets:   []float64{0, 10, 20, 30, 40, 60, 80, 100, 150, 200},
		}),
		observers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observers_connected",
			Help:      "Live dashboard observer sessions.",
		}),
		broadcastMessages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_messages_total",
			Help:      "Messages delivered to observers by broadcast.",
		}),
		broadcastFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_failures_total",
			Help:      "Broadcast sends that failed and pruned a session.",
		}),
		sinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Verdict sink write failures, by sink.",
		}, []string{"sink"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveVerdict(label string, score int) {
	if m == nil {
		return
	}
	m.classified.WithLabelValues(label).Inc()
	m.score.Observe(float64(score))
}

func (m *Metrics) SetObservers(n int) {
	if m == nil {
		return
	}
	m.observers.Set(float64(n))
}

func (m *Metrics) BroadcastDelivered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.broadcastMessages.Add(float64(n))
}

func (m *Metrics) BroadcastFailed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.broadcastFailures.Add(float64(n))
}

func (m *Metrics) SinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}
