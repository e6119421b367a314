package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared with callers.
const (
	SourcePose = "pose"
	SourceTap  = "tap"
)

// latency buckets in milliseconds, sized for 30-60 fps frames and 20-200 ms inference.
var defaultLatencyBuckets = []float64{1, 2, 5, 10, 16, 33, 50, 100, 200, 500, 1000}

// Manager owns every Prometheus metric of the motion engine.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Session lifecycle
	sessionsStarted     *prometheus.CounterVec
	sessionsCompleted   *prometheus.CounterVec
	sessionsCancelled   *prometheus.CounterVec
	acquisitionFailures *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	starsAwarded        *prometheus.HistogramVec

	// Interaction
	hits           *prometheus.CounterVec
	engagements    prometheus.Counter
	targetsSpawned prometheus.Counter
	targetsExpired prometheus.Counter
	renderDuration prometheus.Histogram

	// Pose estimation
	inferenceLatency prometheus.Histogram
	poseMisses       *prometheus.CounterVec
	staleFrames      prometheus.Counter
	posesPublished   prometheus.Counter

	// Recorded clips
	clipsGraded *prometheus.CounterVec
	motionLevel prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Result delivery
	queueSize         prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError prometheus.Counter
	workerCount       prometheus.Gauge
	publishLatency    prometheus.Histogram
	publishErrors     prometheus.Counter
	recordsStored     prometheus.Gauge

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "motionplay",
		subsystem:      "engine",
		latencyBuckets: defaultLatencyBuckets,
		registry:       prometheus.DefaultRegisterer,
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.sessionsStarted = m.counterVec("sessions_started_total", "Sessions that entered Active", "kind")
	m.sessionsCompleted = m.counterVec("sessions_completed_total", "Sessions that ran to completion", "kind")
	m.sessionsCancelled = m.counterVec("sessions_cancelled_total", "Sessions cancelled while Active", "kind")
	m.acquisitionFailures = m.counterVec("camera_acquisition_failures_total", "Camera acquisition failures by reason", "reason")
	m.activeSessions = m.gauge("active_sessions", "Sessions currently Active")
	m.starsAwarded = m.histogramVec("stars_awarded", "Stars awarded per completed session", []float64{0, 1, 2, 3}, "kind")

	m.hits = m.counterVec("hits_total", "Credited hits by input source and exercise kind", "source", "kind")
	m.engagements = m.counter("engagements_total", "Movement events that did not score")
	m.targetsSpawned = m.counter("targets_spawned_total", "Targets spawned")
	m.targetsExpired = m.counter("targets_expired_total", "Targets that left unscored")
	m.renderDuration = m.histogram("render_frame_duration_milliseconds", "Time spent in one render tick", m.latencyBuckets)

	m.inferenceLatency = m.histogram("pose_inference_latency_milliseconds", "Pose estimate latency", m.latencyBuckets)
	m.poseMisses = m.counterVec("pose_misses_total", "Pose estimates that produced nothing", "reason")
	m.staleFrames = m.counter("pose_stale_frames_total", "Loop iterations skipped for a missing or undersized frame")
	m.posesPublished = m.counter("poses_published_total", "Body positions published to the render path")

	m.clipsGraded = m.counterVec("clips_graded_total", "Recorded clips graded by engagement", "engagement")
	m.motionLevel = m.histogram("clip_motion_level", "Frame-difference motion level of graded clips", []float64{1, 2, 4, 6, 8, 12, 16, 24, 32, 64})

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", m.latencyBuckets, "endpoint", "method", "status_code")

	m.queueSize = m.gauge("result_queue_size", "Session records waiting for delivery")
	m.queueEnqueued = m.counter("result_queue_enqueued_total", "Session records enqueued")
	m.queueDequeued = m.counter("result_queue_dequeued_total", "Session records dequeued")
	m.queueEnqueueError = m.counter("result_queue_enqueue_errors_total", "Session records dropped on enqueue")
	m.workerCount = m.gauge("publisher_workers", "Running publisher workers")
	m.publishLatency = m.histogram("publish_latency_milliseconds", "Session record publish latency", m.latencyBuckets)
	m.publishErrors = m.counter("publish_errors_total", "Session record publish failures")
	m.recordsStored = m.gauge("session_records", "Session records held in the registry")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")
}

// Session lifecycle.

// RecordSessionStarted counts a session entering Active.
func RecordSessionStarted(kind string) {
	globalManager.sessionsStarted.WithLabelValues(kind).Inc()
	globalManager.activeSessions.Inc()
}

// RecordSessionCompleted counts a natural completion and its stars.
func RecordSessionCompleted(kind string, stars int) {
	globalManager.sessionsCompleted.WithLabelValues(kind).Inc()
	globalManager.starsAwarded.WithLabelValues(kind).Observe(float64(stars))
	globalManager.activeSessions.Dec()
}

// RecordSessionCancelled counts a cancellation.
func RecordSessionCancelled(kind string) {
	globalManager.sessionsCancelled.WithLabelValues(kind).Inc()
	globalManager.activeSessions.Dec()
}

// RecordAcquisitionFailure counts a camera acquisition failure.
func RecordAcquisitionFailure(reason string) {
	globalManager.acquisitionFailures.WithLabelValues(reason).Inc()
}

// Interaction.

// RecordHit counts a credited hit.
func RecordHit(source, kind string) {
	globalManager.hits.WithLabelValues(source, kind).Inc()
}

// RecordEngagement counts a non-scoring movement.
func RecordEngagement() {
	globalManager.engagements.Inc()
}

// RecordTargetSpawned counts a spawned target.
func RecordTargetSpawned() {
	globalManager.targetsSpawned.Inc()
}

// RecordTargetsExpired counts n targets that left unscored.
func RecordTargetsExpired(n int) {
	if n > 0 {
		globalManager.targetsExpired.Add(float64(n))
	}
}

// RecordRenderDuration records the duration of one render tick.
func RecordRenderDuration(ms float64) {
	globalManager.renderDuration.Observe(ms)
}

// Pose estimation.

// RecordInferenceLatency records the latency of one pose estimate.
func RecordInferenceLatency(ms float64) {
	globalManager.inferenceLatency.Observe(ms)
}

// RecordPoseMiss counts an estimate that produced no body position.
func RecordPoseMiss(reason string) {
	globalManager.poseMisses.WithLabelValues(reason).Inc()
}

// RecordStaleFrame counts an iteration skipped for an unusable frame.
func RecordStaleFrame() {
	globalManager.staleFrames.Inc()
}

// RecordPosePublished counts a published body position.
func RecordPosePublished() {
	globalManager.posesPublished.Inc()
}

// Recorded clips.

// RecordClipGraded records a graded clip.
func RecordClipGraded(level float64, lowEngagement bool) {
	engagement := "engaged"
	if lowEngagement {
		engagement = "low"
	}
	globalManager.clipsGraded.WithLabelValues(engagement).Inc()
	globalManager.motionLevel.Observe(level)
}

// HTTP.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// Result delivery.

// UpdateQueueSize sets the result queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueue counts an enqueued record.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued record.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a record dropped on enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueError.Inc()
}

// UpdateWorkerCount sets the number of running publisher workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordPublishLatency records how long one publish took.
func RecordPublishLatency(ms float64) {
	globalManager.publishLatency.Observe(ms)
}

// RecordPublishError counts a failed publish.
func RecordPublishError() {
	globalManager.publishErrors.Inc()
}

// UpdateRecordsStored sets the number of session records held.
func UpdateRecordsStored(count int) {
	globalManager.recordsStored.Set(float64(count))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
