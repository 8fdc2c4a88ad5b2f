package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the ASR gateway
type Metrics struct {
	// Session metrics
	SessionsCreated   *prometheus.CounterVec
	SessionsCompleted *prometheus.CounterVec
	SessionsFailed    *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge
	SessionDuration   prometheus.Histogram

	// Audio metrics
	FramesSent prometheus.Counter
	BytesSent  prometheus.Counter

	// Transcript metrics
	PartialDeltas prometheus.Counter
	FinalDeltas   prometheus.Counter

	// Vendor request metrics
	VendorRequests        *prometheus.CounterVec
	VendorErrors          *prometheus.CounterVec
	VendorRequestDuration *prometheus.HistogramVec

	// Relay metrics
	RelayRequests prometheus.Counter
	RelayRetries  prometheus.Counter
	RelayFailures prometheus.Counter

	// Upload queue metrics
	QueueDepth    prometheus.Gauge
	JobsProcessed *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_sessions_created_total",
			Help: "Total number of recognition sessions started",
		}, []string{"provider"}),
		SessionsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_sessions_completed_total",
			Help: "Total number of recognition sessions completed",
		}, []string{"provider"}),
		SessionsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_sessions_failed_total",
			Help: "Total number of recognition sessions that failed",
		}, []string{"provider"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "asr_active_sessions",
			Help: "Current number of active recognition sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_session_duration_seconds",
			Help:    "Duration of recognition sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		// Audio metrics
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_audio_frames_sent_total",
			Help: "Total number of audio frames fed to adapters",
		}),
		BytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_audio_bytes_sent_total",
			Help: "Total audio payload bytes fed to adapters",
		}),

		// Transcript metrics
		PartialDeltas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_partial_deltas_total",
			Help: "Total number of partial transcript deltas received",
		}),
		FinalDeltas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_final_deltas_total",
			Help: "Total number of terminal transcript deltas received",
		}),

		// Vendor request metrics
		VendorRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_vendor_requests_total",
			Help: "Total number of vendor API requests",
		}, []string{"provider", "operation"}),
		VendorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_vendor_errors_total",
			Help: "Total number of vendor API errors",
		}, []string{"provider", "operation"}),
		VendorRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asr_vendor_request_duration_seconds",
			Help:    "Duration of vendor API requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}, []string{"provider", "operation"}),

		// Relay metrics
		RelayRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_relay_requests_total",
			Help: "Total number of transcription relay requests",
		}),
		RelayRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_relay_retries_total",
			Help: "Total number of relay upstream retries",
		}),
		RelayFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_relay_failures_total",
			Help: "Total number of failed relay requests",
		}),

		// Upload queue metrics
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "asr_upload_queue_depth",
			Help: "Current number of queued or processing upload jobs",
		}),
		JobsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_upload_jobs_processed_total",
			Help: "Total number of upload jobs finished",
		}, []string{"outcome"}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asr_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSessionCreated increments the created counter and the active gauge
func (m *Metrics) RecordSessionCreated(provider string) {
	m.SessionsCreated.WithLabelValues(provider).Inc()
	m.ActiveSessions.Inc()
}

// RecordSessionCompleted records a finished session and its duration
func (m *Metrics) RecordSessionCompleted(provider string, durationSeconds float64) {
	m.SessionsCompleted.WithLabelValues(provider).Inc()
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionFailed records a failed session and its duration
func (m *Metrics) RecordSessionFailed(provider string, durationSeconds float64) {
	m.SessionsFailed.WithLabelValues(provider).Inc()
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordFrameSent records one audio frame fed to an adapter
func (m *Metrics) RecordFrameSent(sizeBytes int) {
	m.FramesSent.Inc()
	m.BytesSent.Add(float64(sizeBytes))
}

// RecordDelta records a transcript delta
func (m *Metrics) RecordDelta(isFinal bool) {
	if isFinal {
		m.FinalDeltas.Inc()
	} else {
		m.PartialDeltas.Inc()
	}
}

// RecordVendorRequest records one vendor API call
func (m *Metrics) RecordVendorRequest(provider, operation string, durationSeconds float64, err error) {
	m.VendorRequests.WithLabelValues(provider, operation).Inc()
	m.VendorRequestDuration.WithLabelValues(provider, operation).Observe(durationSeconds)
	if err != nil {
		m.VendorErrors.WithLabelValues(provider, operation).Inc()
	}
}

// RecordRelayRequest increments the relay request counter
func (m *Metrics) RecordRelayRequest() {
	m.RelayRequests.Inc()
}

// RecordRelayRetry increments the relay retry counter
func (m *Metrics) RecordRelayRetry() {
	m.RelayRetries.Inc()
}

// RecordRelayFailure increments the relay failure counter
func (m *Metrics) RecordRelayFailure() {
	m.RelayFailures.Inc()
}

// SetQueueDepth sets the current upload queue depth
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// RecordJobProcessed records a finished upload job
func (m *Metrics) RecordJobProcessed(outcome string) {
	m.JobsProcessed.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
