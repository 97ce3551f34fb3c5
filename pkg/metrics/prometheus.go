// Package metrics provides Prometheus metrics for the budgetgm service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Challenge metrics
	submissions         *prometheus.CounterVec
	submissionLatency   prometheus.Histogram
	challengesGenerated prometheus.Counter
	versionConflicts    prometheus.Counter
	challengesStored    prometheus.Gauge

	// Simulation metrics
	simulations       prometheus.Counter
	simulationErrors  prometheus.Counter
	simulationLatency prometheus.Histogram

	// Pool metrics
	poolSize     prometheus.Gauge
	poolTierSize *prometheus.GaugeVec

	// Store metrics
	storeOperations *prometheus.CounterVec
	storeRetries    *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec

	// Queue metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Scheduler metrics
	schedulerRuns *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "budgetgm",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.metricPrefix + name,
		Help: help, ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.metricPrefix + name,
		Help: help, ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.metricPrefix + name,
		Help: help, ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(
		m.counterOpts("submissions_total", "Roster submissions by outcome (accepted, rejected, failed)"),
		[]string{"outcome"},
	)
	m.submissionLatency = auto.NewHistogram(
		m.histogramOpts("submission_latency_milliseconds", "End-to-end submission latency in milliseconds"))
	m.challengesGenerated = auto.NewCounter(
		m.counterOpts("challenges_generated_total", "Daily challenges generated"))
	m.versionConflicts = auto.NewCounter(
		m.counterOpts("challenge_version_conflicts_total", "Optimistic concurrency conflicts on challenge documents"))
	m.challengesStored = auto.NewGauge(
		m.gaugeOpts("challenges_stored", "Challenge documents held by the in-memory store"))

	m.simulations = auto.NewCounter(
		m.counterOpts("simulations_total", "Season simulations completed"))
	m.simulationErrors = auto.NewCounter(
		m.counterOpts("simulation_errors_total", "Season simulations that failed"))
	m.simulationLatency = auto.NewHistogram(
		m.histogramOpts("simulation_latency_milliseconds", "Season simulation latency in milliseconds"))

	m.poolSize = auto.NewGauge(
		m.gaugeOpts("pool_players", "Players in the canonical rated pool"))
	m.poolTierSize = auto.NewGaugeVec(
		m.gaugeOpts("pool_tier_players", "Players per cost tier in the canonical pool"),
		[]string{"tier"},
	)

	m.storeOperations = auto.NewCounterVec(
		m.counterOpts("store_operations_total", "Challenge store operations by result"),
		[]string{"store", "op", "result"},
	)
	m.storeRetries = auto.NewCounterVec(
		m.counterOpts("store_retries_total", "Challenge store retries after transient failures"),
		[]string{"store", "op"},
	)
	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Challenge store latency in milliseconds"),
		[]string{"store", "op"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Simulation jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Simulation queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Simulation queue utilization (0-1)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Simulation jobs enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Simulation jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(
		m.counterOpts("queue_enqueue_errors_total", "Simulation jobs rejected because the queue was full or closed"))
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogramOpts("queue_processing_latency_milliseconds", "Time from enqueue to dequeue in milliseconds"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Simulation workers started"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Simulation workers currently busy"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker job latency in milliseconds"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Worker jobs that returned an error"))

	m.schedulerRuns = auto.NewCounterVec(
		m.counterOpts("scheduler_runs_total", "Scheduled job runs by job and result"),
		[]string{"job", "result"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "API errors by endpoint and error code"),
		[]string{"endpoint", "method", "code"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "Most recent GC pause in milliseconds"))
}

// Challenge metrics

// RecordSubmission counts a submission by outcome.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// RecordSubmissionLatency records end-to-end submission latency.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// RecordChallengeGenerated counts a newly generated daily challenge.
func RecordChallengeGenerated() {
	globalManager.challengesGenerated.Inc()
}

// RecordVersionConflict counts an optimistic concurrency conflict.
func RecordVersionConflict() {
	globalManager.versionConflicts.Inc()
}

// UpdateChallengesStored sets the number of documents in the memory store.
func UpdateChallengesStored(count int) {
	globalManager.challengesStored.Set(float64(count))
}

// Simulation metrics

// RecordSimulation counts a completed simulation and its latency.
func RecordSimulation(latencyMs float64) {
	globalManager.simulations.Inc()
	globalManager.simulationLatency.Observe(latencyMs)
}

// RecordSimulationError counts a failed simulation.
func RecordSimulationError() {
	globalManager.simulationErrors.Inc()
}

// Pool metrics

// UpdatePoolSize sets the canonical pool size.
func UpdatePoolSize(count int) {
	globalManager.poolSize.Set(float64(count))
}

// UpdatePoolTierSize sets the number of players in a tier.
func UpdatePoolTierSize(tier, count int) {
	globalManager.poolTierSize.WithLabelValues(strconv.Itoa(tier)).Set(float64(count))
}

// Store metrics

// RecordStoreOperation counts a store call by result.
func RecordStoreOperation(store, op, result string) {
	globalManager.storeOperations.WithLabelValues(store, op, result).Inc()
}

// RecordStoreRetry counts a retried store call.
func RecordStoreRetry(store, op string) {
	globalManager.storeRetries.WithLabelValues(store, op).Inc()
}

// RecordStoreLatency records the latency of a store call.
func RecordStoreLatency(store, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(store, op).Observe(latencyMs)
}

// Queue metrics

// UpdateQueueSize sets the number of waiting jobs.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records time spent waiting in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker metrics

// UpdateWorkerCount sets the number of started workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddActiveWorkers adjusts the number of busy workers by delta.
func AddActiveWorkers(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records a job's processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Scheduler metrics

// RecordSchedulerRun counts a scheduled job run.
func RecordSchedulerRun(job, result string) {
	globalManager.schedulerRuns.WithLabelValues(job, result).Inc()
}

// HTTP metrics

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint counts an API error response.
func RecordErrorByEndpoint(endpoint, method, code string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, code).Inc()
}

// System metrics

// UpdateSystemMemoryUsage sets heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
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
