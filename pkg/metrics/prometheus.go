// Package metrics provides Prometheus metrics for the competitive intelligence service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFallback  = "fallback"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// runs
	runsTotal     *prometheus.CounterVec
	runsDuplicate prometheus.Counter
	runDuration   prometheus.Histogram
	runStoreSize  prometheus.Gauge

	// stages and providers
	stageDuration     *prometheus.HistogramVec
	stageEvents       *prometheus.CounterVec
	providerCalls     *prometheus.CounterVec
	providerFallbacks *prometheus.CounterVec

	// queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// worker
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// http
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "compintel",
		subsystem:        "pipeline",
		histogramBuckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.runsTotal = m.counterVec("runs_total", "Pipeline runs by outcome", "outcome")
	m.runsDuplicate = m.counter("runs_duplicate_total", "Run submissions rejected as duplicates")
	m.runDuration = m.histogram("run_duration_milliseconds", "End to end pipeline run duration")
	m.runStoreSize = m.gauge("run_store_size", "Completed runs currently retained")

	m.stageDuration = m.histogramVec("stage_duration_milliseconds", "Stage execution time", "stage")
	m.stageEvents = m.counterVec("stage_events_total", "Events emitted by a stage", "stage")
	m.providerCalls = m.counterVec("provider_calls_total", "Capability calls by provider variant", "capability", "variant")
	m.providerFallbacks = m.counterVec("provider_fallbacks_total", "Fallbacks taken per capability", "capability", "reason")

	m.queueSize = m.gauge("queue_size", "Current number of queued runs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Runs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Runs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Rejected enqueues")

	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently executing a run")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker job latency")
	m.workerErrors = m.counter("worker_errors_total", "Jobs that finished with an error")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration",
		"endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
}

// RecordRun counts a finished run and observes its duration.
func (m *Manager) RecordRun(outcome string, durationMs float64) {
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(durationMs)
}

// RecordStage observes one stage execution and the number of events it produced.
func (m *Manager) RecordStage(stage string, durationMs float64, events int) {
	m.stageDuration.WithLabelValues(stage).Observe(durationMs)
	if events > 0 {
		m.stageEvents.WithLabelValues(stage).Add(float64(events))
	}
}

// RecordProviderCall counts a capability call served by the given variant.
func (m *Manager) RecordProviderCall(capability, variant string) {
	m.providerCalls.WithLabelValues(capability, variant).Inc()
}

// RecordProviderFallback counts a fallback and its reason.
func (m *Manager) RecordProviderFallback(capability, reason string) {
	m.providerFallbacks.WithLabelValues(capability, reason).Inc()
}

// RecordRun counts a finished run on the global manager.
func RecordRun(outcome string, durationMs float64) { globalManager.RecordRun(outcome, durationMs) }

// RecordRunDuplicate counts a duplicate submission.
func RecordRunDuplicate() { globalManager.runsDuplicate.Inc() }

// UpdateRunStoreSize sets the retained run count.
func UpdateRunStoreSize(n int) { globalManager.runStoreSize.Set(float64(n)) }

// RecordStage observes a stage execution on the global manager.
func RecordStage(stage string, durationMs float64, events int) {
	globalManager.RecordStage(stage, durationMs, events)
}

// RecordProviderCall counts a capability call on the global manager.
func RecordProviderCall(capability, variant string) {
	globalManager.RecordProviderCall(capability, variant)
}

// RecordProviderFallback counts a fallback on the global manager.
func RecordProviderFallback(capability, reason string) {
	globalManager.RecordProviderFallback(capability, reason)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
