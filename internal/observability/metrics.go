package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Control metrics
	activeControls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "live_translator_active_controls",
		Help: "Number of connected control instances",
	})

	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "live_translator_active_sessions",
		Help: "Number of recognition sessions currently listening",
	})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_translator_sessions_started_total",
		Help: "Total number of recognition sessions started",
	})

	sessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "live_translator_session_duration_seconds",
		Help:    "Duration of recognition sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"reason"}) // reason: "stop", "provider_ended", "connect_failed"

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_translator_state_transitions_total",
		Help: "Total number of published control states",
	}, []string{"state"})

	staleEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_translator_stale_events_total",
		Help: "Provider events discarded because their connection handle was not current",
	}, []string{"kind"})

	// Translation metrics
	translationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_translator_translation_requests_total",
		Help: "Total number of translation requests",
	}, []string{"status"})

	translationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "live_translator_translation_latency_seconds",
		Help:    "Translation latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_translator_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "live_translator_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_translator_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_translator_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" (from host) or "out" (to recognizer)

	audioFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_translator_audio_frames_dropped_total",
		Help: "Audio frames dropped because the recognizer could not keep up",
	})

	speechSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_translator_speech_segments_total",
		Help: "Speech segments detected by voice activity detection",
	})
)

// RecordControlConnected records a host connecting a control instance
func RecordControlConnected() {
	activeControls.Inc()
}

// RecordControlDisconnected records a host disconnecting a control instance
func RecordControlDisconnected() {
	activeControls.Dec()
}

// RecordSessionStart records the start of a recognition session
func RecordSessionStart() {
	activeSessions.Inc()
	sessionsStarted.Inc()
}

// RecordSessionEnd records the end of a recognition session
func RecordSessionEnd(reason string, duration time.Duration) {
	activeSessions.Dec()
	sessionDuration.WithLabelValues(reason).Observe(duration.Seconds())
}

// RecordTransition records a published control state
func RecordTransition(state string) {
	transitions.WithLabelValues(state).Inc()
}

// RecordStaleEvent records a discarded provider event
func RecordStaleEvent(kind string) {
	staleEvents.WithLabelValues(kind).Inc()
}

// RecordTranslation records one translation request
func RecordTranslation(success bool, latency time.Duration) {
	translationLatency.Observe(latency.Seconds())

	status := "success"
	if !success {
		status = "error"
	}
	translationRequests.WithLabelValues(status).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// RecordDroppedFrame records an audio frame that was not delivered
func RecordDroppedFrame() {
	audioFramesDropped.Inc()
}

// RecordSpeechSegment records the start of a detected speech segment
func RecordSpeechSegment() {
	speechSegments.Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
