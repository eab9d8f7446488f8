// Package metrics exposes Prometheus-compatible operational metrics for the
// runtime: workflow throughput and latency, queue depth, replay/
// non-determinism counts, gossip probe latency, and hash-ring ownership
// churn. Grounded on the teacher's PrometheusMetrics (graph/metrics.go):
// same promauto-factory construction, gauge/histogram/counter shape, and
// enable/disable/reset lifecycle, renamed from the "langgraph" namespace to
// "durableflow" and re-pointed at this runtime's own observable events.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects every Prometheus series this runtime exposes. Safe for
// concurrent use.
type Metrics struct {
	inflightWorkflows prometheus.Gauge
	queueDepth        prometheus.Gauge

	workflowLatency  *prometheus.HistogramVec
	replaysTotal     *prometheus.CounterVec
	nonDeterministic *prometheus.CounterVec

	gossipProbeLatency *prometheus.HistogramVec
	ringChurnTotal     prometheus.Counter

	mu      sync.RWMutex
	enabled bool
}

// New creates and registers every metric with registry (use
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation).
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	m := &Metrics{enabled: true}

	m.inflightWorkflows = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "durableflow",
		Name:      "inflight_workflows",
		Help:      "Current number of workflow executions running concurrently on this node",
	})

	m.queueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "durableflow",
		Name:      "queue_depth",
		Help:      "Number of workflow executions waiting for a free worker slot",
	})

	m.workflowLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "durableflow",
		Name:      "workflow_duration_ms",
		Help:      "Workflow execution duration in milliseconds, from execute start to terminal status",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
	}, []string{"workflow_type", "status"})

	m.replaysTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "durableflow",
		Name:      "journal_replays_total",
		Help:      "Journal entries replayed (matched against an already-durable entry) rather than executed live",
	}, []string{"workflow_type"})

	m.nonDeterministic = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "durableflow",
		Name:      "non_deterministic_replays_total",
		Help:      "Replays aborted because the workflow body diverged from its recorded journal",
	}, []string{"workflow_type"})

	m.gossipProbeLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "durableflow",
		Name:      "gossip_probe_latency_ms",
		Help:      "Gossip probe round-trip duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"result"}) // result: direct, indirect, timeout

	m.ringChurnTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "durableflow",
		Name:      "ring_ownership_churn_total",
		Help:      "Hash ring rebuilds triggered by a membership change",
	})

	return m
}

// RecordWorkflowLatency records a terminal workflow execution's duration.
func (m *Metrics) RecordWorkflowLatency(workflowType, status string, d time.Duration) {
	if !m.isEnabled() {
		return
	}
	m.workflowLatency.WithLabelValues(workflowType, status).Observe(float64(d.Milliseconds()))
}

// IncrementReplays records one journal entry matched against the recorded
// log instead of executed live.
func (m *Metrics) IncrementReplays(workflowType string) {
	if !m.isEnabled() {
		return
	}
	m.replaysTotal.WithLabelValues(workflowType).Inc()
}

// IncrementNonDeterministic records one replay aborted by a divergence
// between the workflow body and its recorded journal.
func (m *Metrics) IncrementNonDeterministic(workflowType string) {
	if !m.isEnabled() {
		return
	}
	m.nonDeterministic.WithLabelValues(workflowType).Inc()
}

// UpdateInflightWorkflows sets the current concurrently-running count.
func (m *Metrics) UpdateInflightWorkflows(count int) {
	if !m.isEnabled() {
		return
	}
	m.inflightWorkflows.Set(float64(count))
}

// UpdateQueueDepth sets the current number of executions waiting for a
// worker slot.
func (m *Metrics) UpdateQueueDepth(depth int) {
	if !m.isEnabled() {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// RecordGossipProbeLatency records one probe round trip's duration, labeled
// by how it resolved ("direct", "indirect", or "timeout").
func (m *Metrics) RecordGossipProbeLatency(result string, d time.Duration) {
	if !m.isEnabled() {
		return
	}
	m.gossipProbeLatency.WithLabelValues(result).Observe(float64(d.Milliseconds()))
}

// IncrementRingChurn records one hash-ring rebuild triggered by a
// membership change.
func (m *Metrics) IncrementRingChurn() {
	if !m.isEnabled() {
		return
	}
	m.ringChurnTotal.Inc()
}

// Disable stops recording new observations (existing series remain
// registered). Useful for tests.
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

// Enable resumes recording after Disable.
func (m *Metrics) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

func (m *Metrics) isEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}
