package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_client_active_sessions",
		Help: "Number of active voice sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_client_sessions_total",
		Help: "Total number of voice sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_client_session_duration_seconds",
		Help:    "Duration of voice sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	handshakeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_client_handshake_latency_seconds",
		Help:    "Session handshake latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
	})

	// Frame metrics
	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_client_frames_sent_total",
		Help: "Total audio input frames sent to the agent",
	})

	eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_events_received_total",
		Help: "Total events received from the agent",
	}, []string{"type"})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_frames_dropped_total",
		Help: "Total frames dropped",
	}, []string{"reason"})

	playbackInterrupts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_client_playback_interrupts_total",
		Help: "Total playback interrupts (barge-in)",
	})

	// Audio metrics
	audioBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"

	// Remote configuration metrics
	configRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_config_refreshes_total",
		Help: "Total remote configuration refreshes",
	}, []string{"status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_client_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// Metrics tracks metrics for a single voice session.
type Metrics struct {
	sessionID      string
	startTime      time.Time
	handshakeStart time.Time
	mu             sync.Mutex
}

// NewSessionMetrics creates a metrics tracker for one session.
func NewSessionMetrics(sessionID string) *Metrics {
	return &Metrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a session.
func (m *Metrics) RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a session.
func (m *Metrics) RecordSessionEnd() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordHandshakeStart marks the beginning of the channel handshake.
func (m *Metrics) RecordHandshakeStart() {
	m.mu.Lock()
	m.handshakeStart = time.Now()
	m.mu.Unlock()
}

// RecordHandshakeEnd records handshake completion latency.
func (m *Metrics) RecordHandshakeEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.handshakeStart.IsZero() {
		handshakeLatency.Observe(time.Since(m.handshakeStart).Seconds())
	}
}

// RecordInterrupt records one playback interrupt.
func (m *Metrics) RecordInterrupt() {
	playbackInterrupts.Inc()
}

// RecordError records an error.
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordFrameSent records one outbound audio frame.
func RecordFrameSent(bytes int) {
	framesSent.Inc()
	audioBytes.WithLabelValues("out").Add(float64(bytes))
}

// RecordEventReceived records one inbound event by type.
func RecordEventReceived(eventType string) {
	eventsReceived.WithLabelValues(eventType).Inc()
}

// RecordFrameDropped records a dropped frame by reason.
func RecordFrameDropped(reason string) {
	framesDropped.WithLabelValues(reason).Inc()
}

// RecordAudioBytes records audio bytes processed.
func RecordAudioBytes(direction string, bytes int64) {
	audioBytes.WithLabelValues(direction).Add(float64(bytes))
}

// RecordConfigRefresh records a remote configuration refresh outcome.
func RecordConfigRefresh(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	configRefreshes.WithLabelValues(status).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
