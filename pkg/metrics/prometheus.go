// Package metrics provides Prometheus metrics for the laptop price service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Training pipeline
	trainingRuns       *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	rowsIngested       prometheus.Gauge
	rowsEngineered     prometheus.Gauge
	candidateR2        prometheus.Gauge
	incumbentR2        prometheus.Gauge
	modelsPublished    prometheus.Counter
	storeRetries       *prometheus.CounterVec
	lastRunTimestamp   prometheus.Gauge
	trainingJobsQueued prometheus.Gauge

	// Inference
	predictions       prometheus.Counter
	predictionErrors  *prometheus.CounterVec
	predictionLatency prometheus.Histogram
	predictorLoads    prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "lapprice",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) opts(name, help string) (string, string, string, string, prometheus.Labels) {
	return m.namespace, m.subsystem, name, help, m.customLabels
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	ns, ss, n, h, l := m.opts(name, help)
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{Namespace: ns, Subsystem: ss, Name: n, Help: h, ConstLabels: l})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	ns, ss, n, h, l := m.opts(name, help)
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{Namespace: ns, Subsystem: ss, Name: n, Help: h, ConstLabels: l})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	ns, ss, n, h, l := m.opts(name, help)
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{Namespace: ns, Subsystem: ss, Name: n, Help: h, ConstLabels: l}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.trainingRuns = m.counterVec("training_runs_total", "Training runs by outcome (published, rejected, failed)", "outcome")
	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_seconds",
		Help:        "Duration of each training pipeline stage",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"stage", "status"})
	m.rowsIngested = m.gauge("rows_ingested", "Rows fetched from the ingestion source in the last run")
	m.rowsEngineered = m.gauge("rows_engineered", "Training rows left after feature engineering in the last run")
	m.candidateR2 = m.gauge("candidate_r2", "R2 of the most recently trained candidate model")
	m.incumbentR2 = m.gauge("incumbent_r2", "R2 of the published model on the last evaluation set")
	m.modelsPublished = m.counter("models_published_total", "Model bundles written to the artifact store")
	m.storeRetries = m.counterVec("store_retries_total", "Retried calls against external stores", "store")
	m.lastRunTimestamp = m.gauge("last_run_timestamp_seconds", "Unix time the last training run finished")
	m.trainingJobsQueued = m.gauge("training_jobs_queued", "Training jobs waiting in the queue")

	m.predictions = m.counter("predictions_total", "Rows priced by the model predictor")
	m.predictionErrors = m.counterVec("prediction_errors_total", "Prediction failures by kind", "kind")
	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "prediction_latency_milliseconds",
		Help:        "End-to-end latency of a predict call in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		ConstLabels: m.customLabels,
	})
	m.predictorLoads = m.counter("predictor_loads_total", "Predictor bundles loaded from the artifact store")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = m.counterVec("http_errors_total", "HTTP errors by endpoint and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// RecordTrainingRun increments the training run counter for an outcome.
func RecordTrainingRun(outcome string) {
	globalManager.trainingRuns.WithLabelValues(outcome).Inc()
	globalManager.lastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordStageDuration observes how long a pipeline stage took.
func RecordStageDuration(stage, status string, d time.Duration) {
	globalManager.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// UpdateRowsIngested sets the ingested row count.
func UpdateRowsIngested(n int) { globalManager.rowsIngested.Set(float64(n)) }

// UpdateRowsEngineered sets the engineered training row count.
func UpdateRowsEngineered(n int) { globalManager.rowsEngineered.Set(float64(n)) }

// UpdateCandidateR2 sets the candidate model score.
func UpdateCandidateR2(r2 float64) { globalManager.candidateR2.Set(r2) }

// UpdateIncumbentR2 sets the incumbent model score.
func UpdateIncumbentR2(r2 float64) { globalManager.incumbentR2.Set(r2) }

// RecordModelPublished increments the published model counter.
func RecordModelPublished() { globalManager.modelsPublished.Inc() }

// RecordStoreRetry increments the retry counter for a store.
func RecordStoreRetry(store string) { globalManager.storeRetries.WithLabelValues(store).Inc() }

// UpdateTrainingJobsQueued sets the training job queue length.
func UpdateTrainingJobsQueued(n int) { globalManager.trainingJobsQueued.Set(float64(n)) }

// RecordPrediction records priced rows and the call latency.
func RecordPrediction(rows int, latencyMs float64) {
	globalManager.predictions.Add(float64(rows))
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordPredictionError increments the prediction error counter.
func RecordPredictionError(kind string) {
	globalManager.predictionErrors.WithLabelValues(kind).Inc()
}

// RecordPredictorLoad increments the predictor load counter.
func RecordPredictorLoad() { globalManager.predictorLoads.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
