// Package metrics provides Prometheus metrics for the storepulse analytics service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the storepulse service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Baseline model
	baselineRecomputes        prometheus.Counter
	baselineRecomputeDuration prometheus.Histogram
	baselineEmpty             prometheus.Counter
	baselineDays              prometheus.Gauge

	// Live status and sales
	storeActive    prometheus.Gauge
	storeIdleSecs  prometheus.Gauge
	salesWindowUSD *prometheus.GaugeVec

	// Data source
	datasourceLatency *prometheus.HistogramVec
	datasourceErrors  *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// Backup job
	backupRuns        *prometheus.CounterVec
	backupDuration    prometheus.Histogram
	backupLastSuccess prometheus.Gauge

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "storepulse",
		subsystem:        "analytics",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.baselineRecomputes = auto.NewCounter(m.counterOpts(
		"baseline_recomputes_total", "Number of times the weekly demand baseline was rebuilt"))
	m.baselineRecomputeDuration = auto.NewHistogram(m.histogramOpts(
		"baseline_recompute_duration_milliseconds", "Time spent rebuilding the baseline, feed included", m.histogramBuckets))
	m.baselineEmpty = auto.NewCounter(m.counterOpts(
		"baseline_empty_total", "Baseline rebuilds that found no historical events"))
	m.baselineDays = auto.NewGauge(m.gaugeOpts(
		"baseline_days", "Weekdays present in the current baseline snapshot"))

	m.storeActive = auto.NewGauge(m.gaugeOpts(
		"store_active", "1 when the last live-status evaluation found the store active"))
	m.storeIdleSecs = auto.NewGauge(m.gaugeOpts(
		"store_idle_seconds", "Elapsed idle time reported by the last live-status evaluation"))
	m.salesWindowUSD = auto.NewGaugeVec(m.gaugeOpts(
		"sales_window_total_minor_units", "Completed-order total for the last queried calendar window"),
		[]string{"window"})

	m.datasourceLatency = auto.NewHistogramVec(m.histogramOpts(
		"datasource_query_latency_milliseconds", "Latency of data source operations", m.histogramBuckets),
		[]string{"operation"})
	m.datasourceErrors = auto.NewCounterVec(m.counterOpts(
		"datasource_errors_total", "Failed data source operations"),
		[]string{"operation", "reason"})
	m.breakerState = auto.NewGaugeVec(m.gaugeOpts(
		"datasource_breaker_state", "Circuit breaker state (0 closed, 1 half-open, 2 open)"),
		[]string{"breaker"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts(
		"http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})
	m.httpRateLimited = auto.NewCounterVec(m.counterOpts(
		"http_rate_limited_total", "Requests rejected by the per-route rate limiter"),
		[]string{"endpoint"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts(
		"errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts(
		"errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"})

	m.backupRuns = auto.NewCounterVec(m.counterOpts(
		"backup_runs_total", "Backup attempts by outcome"),
		[]string{"outcome"})
	m.backupDuration = auto.NewHistogram(m.histogramOpts(
		"backup_duration_seconds", "Wall time of completed backups", []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800}))
	m.backupLastSuccess = auto.NewGauge(m.gaugeOpts(
		"backup_last_success_unix", "Unix time of the last successful backup"))

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Baseline.

// RecordBaselineRecompute counts a rebuild and its duration.
func RecordBaselineRecompute(durationMs float64, days int) {
	globalManager.baselineRecomputes.Inc()
	globalManager.baselineRecomputeDuration.Observe(durationMs)
	globalManager.baselineDays.Set(float64(days))
}

// RecordBaselineEmpty counts a rebuild that found no events.
func RecordBaselineEmpty() {
	globalManager.baselineEmpty.Inc()
}

// Live status and sales.

// UpdateStoreActivity publishes the latest live-status verdict.
func UpdateStoreActivity(active bool, idleSeconds float64) {
	v := 0.0
	if active {
		v = 1
	}
	globalManager.storeActive.Set(v)
	globalManager.storeIdleSecs.Set(idleSeconds)
}

// UpdateSalesWindow publishes the total of the last queried window.
func UpdateSalesWindow(window string, minorUnits int64) {
	globalManager.salesWindowUSD.WithLabelValues(window).Set(float64(minorUnits))
}

// Data source.

// RecordDatasourceLatency records the latency of a data source operation.
func RecordDatasourceLatency(operation string, latencyMs float64) {
	globalManager.datasourceLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordDatasourceError counts a failed data source operation.
func RecordDatasourceError(operation, reason string) {
	globalManager.datasourceErrors.WithLabelValues(operation, reason).Inc()
}

// UpdateBreakerState publishes a circuit breaker state.
func UpdateBreakerState(name string, state int) {
	globalManager.breakerState.WithLabelValues(name).Set(float64(state))
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited(endpoint string) {
	globalManager.httpRateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// Backup.

// RecordBackup counts a backup attempt. Outcome is one of "success",
// "failure" or "skipped".
func RecordBackup(outcome string) {
	globalManager.backupRuns.WithLabelValues(outcome).Inc()
}

// RecordBackupSuccess records a completed backup.
func RecordBackupSuccess(durationSeconds float64, finishedUnix int64) {
	globalManager.backupRuns.WithLabelValues("success").Inc()
	globalManager.backupDuration.Observe(durationSeconds)
	globalManager.backupLastSuccess.Set(float64(finishedUnix))
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
