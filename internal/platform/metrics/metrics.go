package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the video wall.
// All methods are no-ops on a nil *Metrics so tests can omit it.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	errorsTotal          prometheus.Counter
	sessionsStartedTotal prometheus.Counter
	createFailuresTotal  prometheus.Counter
	releaseFailuresTotal prometheus.Counter
	rebuildsTotal        prometheus.Counter
	relayBytesTotal      prometheus.Counter
	activeSessions       prometheus.Gauge
	slotCount            prometheus.Gauge
}

// New creates and registers Prometheus metrics for the wall.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wall_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wall_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		sessionsStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wall_sessions_started_total",
			Help: "Total number of playback sessions started in a slot",
		}),
		createFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wall_session_create_failures_total",
			Help: "Total number of addresses the playback engine could not create, attach or start",
		}),
		releaseFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wall_session_release_failures_total",
			Help: "Total number of sessions whose teardown returned an error",
		}),
		rebuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wall_rebuilds_total",
			Help: "Total number of slot pool rebuilds",
		}),
		relayBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wall_relay_bytes_total",
			Help: "Total number of stream bytes relayed to viewers",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wall_active_sessions",
			Help: "Number of slots holding a playback session",
		}),
		slotCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wall_slot_count",
			Help: "Number of visible slots",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.sessionsStartedTotal,
		m.createFailuresTotal,
		m.releaseFailuresTotal,
		m.rebuildsTotal,
		m.relayBytesTotal,
		m.activeSessions,
		m.slotCount,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

// IncSessionsStarted increments the started sessions counter.
func (m *Metrics) IncSessionsStarted() {
	if m == nil {
		return
	}
	m.sessionsStartedTotal.Inc()
}

// IncCreateFailures increments the session create failures counter.
func (m *Metrics) IncCreateFailures() {
	if m == nil {
		return
	}
	m.createFailuresTotal.Inc()
}

// IncReleaseFailures increments the session release failures counter.
func (m *Metrics) IncReleaseFailures() {
	if m == nil {
		return
	}
	m.releaseFailuresTotal.Inc()
}

// IncRebuilds increments the pool rebuild counter.
func (m *Metrics) IncRebuilds() {
	if m == nil {
		return
	}
	m.rebuildsTotal.Inc()
}

// AddRelayBytes adds n to the relayed bytes counter.
func (m *Metrics) AddRelayBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.relayBytesTotal.Add(float64(n))
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// SetSlotCount sets the slot count gauge.
func (m *Metrics) SetSlotCount(n int) {
	if m == nil {
		return
	}
	m.slotCount.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
