// Package metrics exposes Prometheus counters for the portal.
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	guardDecisions   *prometheus.CounterVec
	statusChanges    *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostel_portal",
			Name:      "upstream_requests_total",
			Help:      "Backend API requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hostel_portal",
			Name:      "upstream_request_duration_seconds",
			Help:      "Backend API latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostel_portal",
			Name:      "guard_decisions_total",
			Help:      "Route guard outcomes.",
		}, []string{"guard", "outcome"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostel_portal",
			Name:      "booking_status_changes_total",
			Help:      "Admin booking status change requests by action and result.",
		}, []string{"action", "result"}),
	}
	reg.MustRegister(
		m.upstreamRequests,
		m.upstreamLatency,
		m.guardDecisions,
		m.statusChanges,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// Route collapses numeric path segments so ids do not explode label
// cardinality.
func Route(path string) string {
	for numericSegment.MatchString(path) {
		path = numericSegment.ReplaceAllString(path, "/:id$1")
	}
	return path
}

// ObserveUpstream records one backend round trip. A zero status means
// the request failed before a response arrived.
func (m *Metrics) ObserveUpstream(method, path string, status int, elapsed time.Duration) {
	route := Route(path)
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.upstreamRequests.WithLabelValues(method, route, code).Inc()
	m.upstreamLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveGuard records a guard decision.
func (m *Metrics) ObserveGuard(guard, outcome string) {
	m.guardDecisions.WithLabelValues(guard, outcome).Inc()
}

// ObserveStatusChange records an admin status change attempt.
func (m *Metrics) ObserveStatusChange(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.statusChanges.WithLabelValues(action, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
