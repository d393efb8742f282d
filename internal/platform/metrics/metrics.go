// Package metrics holds the Prometheus collectors for both binaries. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	LoginsTotal            *prometheus.CounterVec
	RegistrationsTotal     prometheus.Counter
	RefreshesTotal         *prometheus.CounterVec
	LogoutsTotal           prometheus.Counter
	RefreshReuseDetected   prometheus.Counter
	DenylistCheckDuration  *prometheus.HistogramVec
	DenylistFallbackActive prometheus.Gauge
	AuditEventsDropped     prometheus.Counter
	UpstreamRequestsTotal  *prometheus.CounterVec
	UpstreamDuration       *prometheus.HistogramVec
}

// New creates and registers all metrics on reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoginsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jwelary_auth_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		RegistrationsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "jwelary_auth_registrations_total",
			Help: "Users registered",
		}),
		RefreshesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jwelary_auth_refreshes_total",
			Help: "Token refresh attempts by result",
		}, []string{"result"}),
		LogoutsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "jwelary_auth_logouts_total",
			Help: "Logout calls",
		}),
		RefreshReuseDetected: f.NewCounter(prometheus.CounterOpts{
			Name: "jwelary_auth_refresh_reuse_detected_total",
			Help: "Rotated refresh tokens presented again",
		}),
		DenylistCheckDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jwelary_denylist_check_duration_seconds",
			Help:    "Token denylist lookup latency by backend",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"backend"}),
		DenylistFallbackActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "jwelary_denylist_fallback_active",
			Help: "1 while the denylist serves from its in-memory fallback",
		}),
		AuditEventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "jwelary_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		}),
		UpstreamRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jwelary_gateway_upstream_requests_total",
			Help: "Relayed upstream requests by operation and status",
		}, []string{"op", "status"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jwelary_gateway_upstream_duration_seconds",
			Help:    "Relayed upstream request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

func (m *Metrics) IncLogin(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRegistration() {
	if m == nil {
		return
	}
	m.RegistrationsTotal.Inc()
}

func (m *Metrics) IncRefresh(result string) {
	if m == nil {
		return
	}
	m.RefreshesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncLogout() {
	if m == nil {
		return
	}
	m.LogoutsTotal.Inc()
}

func (m *Metrics) IncRefreshReuse() {
	if m == nil {
		return
	}
	m.RefreshReuseDetected.Inc()
}

func (m *Metrics) ObserveDenylistCheck(backend string, start time.Time) {
	if m == nil {
		return
	}
	m.DenylistCheckDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetDenylistFallback(active bool) {
	if m == nil {
		return
	}
	if active {
		m.DenylistFallbackActive.Set(1)
		return
	}
	m.DenylistFallbackActive.Set(0)
}

func (m *Metrics) AddAuditDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AuditEventsDropped.Add(float64(n))
}

func (m *Metrics) ObserveUpstream(op, status string, start time.Time) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(op, status).Inc()
	m.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
