package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments exported by the daemon.
type Metrics struct {
	registry *prometheus.Registry

	ScansTotal           *prometheus.CounterVec
	TransitionsTotal     *prometheus.CounterVec
	TransitionFailures   *prometheus.CounterVec
	ArchivalsTotal       prometheus.Counter
	RateLimitRejections  prometheus.Counter
}

// InitMetrics creates and registers all metric instruments on a fresh registry.
func InitMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groovy_scans_total",
			Help: "Total number of scan attempts recorded.",
		}, []string{"scan_type", "result"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groovy_transitions_total",
			Help: "Total number of stage transitions applied.",
		}, []string{"mode"}),
		TransitionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groovy_transition_failures_total",
			Help: "Total number of rejected transition requests.",
		}, []string{"reason"}),
		ArchivalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "groovy_archivals_total",
			Help: "Total number of items migrated to the completed store.",
		}),
		RateLimitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "groovy_scan_rate_limit_rejections_total",
			Help: "Total number of scans rejected by the per-user rate limit.",
		}),
	}

	registry.MustRegister(
		m.ScansTotal,
		m.TransitionsTotal,
		m.TransitionFailures,
		m.ArchivalsTotal,
		m.RateLimitRejections,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveScan records a scan attempt outcome. Nil-safe so callers do not need
// metrics wired in tests.
func (m *Metrics) ObserveScan(scanType string, success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.ScansTotal.WithLabelValues(scanType, result).Inc()
}

// ObserveTransition records an applied transition by entry mode.
func (m *Metrics) ObserveTransition(mode string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(mode).Inc()
}

// ObserveTransitionFailure records a rejected transition by reason.
func (m *Metrics) ObserveTransitionFailure(reason string) {
	if m == nil {
		return
	}
	m.TransitionFailures.WithLabelValues(reason).Inc()
}

// ObserveArchival records a completed archival.
func (m *Metrics) ObserveArchival() {
	if m == nil {
		return
	}
	m.ArchivalsTotal.Inc()
}

// ObserveRateLimitRejection records a scan rejected by the rate limiter.
func (m *Metrics) ObserveRateLimitRejection() {
	if m == nil {
		return
	}
	m.RateLimitRejections.Inc()
}
