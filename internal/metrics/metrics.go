// Package metrics exposes Prometheus collectors for the batching engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Batch triggers.
const (
	TriggerLatency = "latency"
	TriggerFlush   = "flush"
)

// Metrics groups the engine collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	itemsSubmitted   prometheus.Counter
	batches          *prometheus.CounterVec
	batchSize        prometheus.Histogram
	itemsClassified  *prometheus.CounterVec
	classifyFailures prometheus.Counter
	samplesPersisted prometheus.Counter
	sampleFailures   prometheus.Counter
	activeSessions   prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		itemsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seedsort_items_submitted_total",
			Help: "Items accepted into a session queue",
		}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seedsort_batches_total",
			Help: "Batches dispatched to the processing pipeline, by trigger",
		}, []string{"trigger"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seedsort_batch_size",
			Help:    "Distribution of items per dispatched batch",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		itemsClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seedsort_items_classified_total",
			Help: "Items labeled by the classifier, by outcome",
		}, []string{"outcome"}),
		classifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seedsort_classify_failures_total",
			Help: "Items the classifier failed to label",
		}),
		samplesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seedsort_samples_persisted_total",
			Help: "Sampled items written to the sample sink",
		}),
		sampleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seedsort_sample_failures_total",
			Help: "Sampled items that could not be persisted",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seedsort_active_sessions",
			Help: "Sessions with a running scheduler",
		}),
	}
	reg.MustRegister(
		m.itemsSubmitted,
		m.batches,
		m.batchSize,
		m.itemsClassified,
		m.classifyFailures,
		m.samplesPersisted,
		m.sampleFailures,
		m.activeSessions,
	)
	return m
}

// Handler serves the registered collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ItemSubmitted() {
	if m != nil {
		m.itemsSubmitted.Inc()
	}
}

// BatchDispatched records one batch of n items.
func (m *Metrics) BatchDispatched(trigger string, n int) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(trigger).Inc()
	m.batchSize.Observe(float64(n))
}

func (m *Metrics) ItemClassified(outcome string) {
	if m != nil {
		m.itemsClassified.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ClassifyFailed() {
	if m != nil {
		m.classifyFailures.Inc()
	}
}

func (m *Metrics) SamplePersisted() {
	if m != nil {
		m.samplesPersisted.Inc()
	}
}

func (m *Metrics) SampleFailed() {
	if m != nil {
		m.sampleFailures.Inc()
	}
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) SessionEnded() {
	if m != nil {
		m.activeSessions.Dec()
	}
}
