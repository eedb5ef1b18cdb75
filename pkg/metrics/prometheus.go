// Package metrics provides Prometheus metrics for the glwatch pipeline and API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by glwatch.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer
	constLabels      prometheus.Labels

	// Pipeline
	accountsProcessed *prometheus.CounterVec
	accountsSkipped   *prometheus.CounterVec
	metricsCompared   *prometheus.CounterVec
	compareLatency    prometheus.Histogram
	runDuration       *prometheus.HistogramVec
	runsTotal         *prometheus.CounterVec
	watchlistRows     *prometheus.GaugeVec

	// Workers
	workerActive prometheus.Gauge

	// Storage
	repositoryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
	gcPause     prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry without Go runtime collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "glwatch",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(prometheus.WrapRegistererWith(m.constLabels, m.registry))

	m.accountsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "accounts_processed_total",
		Help:      "Accounts that produced a comparison row, by aggregation period",
	}, []string{"period"})

	m.accountsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "accounts_skipped_total",
		Help:      "Accounts skipped during comparison, by reason",
	}, []string{"reason"})

	m.metricsCompared = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "metrics_compared_total",
		Help:      "Per-account metric comparisons that passed the distinct-value gate",
	}, []string{"metric"})

	m.compareLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "account_compare_latency_milliseconds",
		Help:      "Time spent aggregating and comparing a single account",
		Buckets:   m.histogramBuckets,
	})

	m.runDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_duration_milliseconds",
		Help:      "End-to-end duration of a pipeline stage",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})

	m.runsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Pipeline runs by stage and outcome",
	}, []string{"stage", "status"})

	m.watchlistRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "watchlist_rows",
		Help:      "Rows in the most recent watchlist, by tier",
	}, []string{"tier"})

	m.workerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "workers_active",
		Help:      "Workers currently comparing accounts",
	})

	m.repositoryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_latency_milliseconds",
		Help:      "Run store operation latency",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and error type",
	}, []string{"component", "error_type"})

	m.memoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})

	m.goroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Number of goroutines",
	})

	m.gcPause = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_milliseconds",
		Help:      "Average GC pause time",
		Buckets:   m.histogramBuckets,
	})
}

// RecordAccountProcessed counts an account that produced a comparison row.
func RecordAccountProcessed(period string) {
	globalManager.accountsProcessed.WithLabelValues(period).Inc()
}

// RecordAccountSkipped counts a skipped account.
func RecordAccountSkipped(reason string) {
	globalManager.accountsSkipped.WithLabelValues(reason).Inc()
}

// RecordMetricCompared counts one metric comparison.
func RecordMetricCompared(metric string) {
	globalManager.metricsCompared.WithLabelValues(metric).Inc()
}

// RecordCompareLatency observes the latency of one account comparison.
func RecordCompareLatency(latencyMs float64) {
	globalManager.compareLatency.Observe(latencyMs)
}

// RecordRunDuration observes the duration of a pipeline stage.
func RecordRunDuration(stage string, durationMs float64) {
	globalManager.runDuration.WithLabelValues(stage).Observe(durationMs)
}

// RecordRun counts a finished pipeline stage.
func RecordRun(stage, status string) {
	globalManager.runsTotal.WithLabelValues(stage, status).Inc()
}

// UpdateWatchlistRows sets the row count for a tier.
func UpdateWatchlistRows(tier string, count int) {
	globalManager.watchlistRows.WithLabelValues(tier).Set(float64(count))
}

// AddWorkerActive moves the active worker gauge by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActive.Add(float64(delta))
}

// RecordRepositoryLatency observes a run store operation.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// UpdateSystemMemoryUsage sets the allocated heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.memoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.goroutines.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.gcPause.Observe(pauseMs)
}
