package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session close reasons
const (
	ReasonClosed   = "closed"
	ReasonIdle     = "idle"
	ReasonExited   = "exited"
	ReasonShutdown = "shutdown"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec

	// Terminal session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsClosed  *prometheus.CounterVec
	CreateFailures  *prometheus.CounterVec
	TerminalBytes   *prometheus.CounterVec

	// PTY allocation metrics
	PtyOpenAttempts *prometheus.CounterVec
	PtyExhausted    prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
	WSDropped     prometheus.Counter

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON health endpoint
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewRegistry creates a registry carrying the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics creates a new metrics collector registered with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ptyd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_service_calls_total",
				Help: "Total number of session manager calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ptyd_service_duration_seconds",
				Help:    "Session manager call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),

		// Terminal session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ptyd_sessions_active",
				Help: "Number of live terminal sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyd_sessions_created_total",
				Help: "Total number of terminal sessions created",
			},
		),
		SessionsClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_sessions_closed_total",
				Help: "Total number of terminal sessions removed, by reason",
			},
			[]string{"reason"},
		),
		CreateFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_session_create_failures_total",
				Help: "Total number of failed session creations, by error kind",
			},
			[]string{"kind"},
		),
		TerminalBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_terminal_bytes_total",
				Help: "Bytes written to (in) and read from (out) terminal sessions",
			},
			[]string{"direction"},
		),

		// PTY allocation metrics
		PtyOpenAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_pty_open_attempts_total",
				Help: "Total number of pty allocation attempts, by result",
			},
			[]string{"result"},
		),
		PtyExhausted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyd_pty_exhausted_total",
				Help: "Total number of pty allocations that gave up after all retries",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ptyd_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyd_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
		WSDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyd_ws_dropped_total",
				Help: "Total number of WebSocket clients dropped for falling behind",
			},
		),
	}

	// System metrics
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ptyd_uptime_seconds",
			Help: "Daemon uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a session manager call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// SetSessionsActive sets the number of live sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// IncSessionsCreated increments the sessions created counter
func (m *Metrics) IncSessionsCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

// IncSessionsClosed records a session removal for reason
func (m *Metrics) IncSessionsClosed(reason string) {
	if m == nil {
		return
	}
	m.SessionsClosed.WithLabelValues(reason).Inc()
}

// IncCreateFailures records a failed creation by error kind
func (m *Metrics) IncCreateFailures(kind string) {
	if m == nil {
		return
	}
	m.CreateFailures.WithLabelValues(kind).Inc()
}

// AddTerminalBytes adds n bytes in direction "in" or "out"
func (m *Metrics) AddTerminalBytes(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TerminalBytes.WithLabelValues(direction).Add(float64(n))
}

// RecordPtyAttempt records one pty allocation attempt
func (m *Metrics) RecordPtyAttempt(result string) {
	if m == nil {
		return
	}
	m.PtyOpenAttempts.WithLabelValues(result).Inc()
}

// IncPtyExhausted records an allocation that ran out of retries
func (m *Metrics) IncPtyExhausted() {
	if m == nil {
		return
	}
	m.PtyExhausted.Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// IncWSDropped records a slow client being dropped
func (m *Metrics) IncWSDropped() {
	if m == nil {
		return
	}
	m.WSDropped.Inc()
}

// Snapshot returns the current values tracked for the JSON API
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
