// Package metric provides Prometheus instrumentation for the SDK.
//
// A Metrics value implements the API client's Recorder contract and
// tracks request outcomes, retries, and the server-reported rate-limit
// headroom.
package metric

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the SDK metrics, registered on their own registry so
// embedding applications can expose or merge them as they see fit.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	retriesTotal       *prometheus.CounterVec
	rateLimitRemaining prometheus.Gauge
}

// New creates and registers the SDK metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tidechat",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tidechat",
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Retries scheduled by method and path.",
		}, []string{"method", "path"}),
		rateLimitRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tidechat",
			Subsystem: "client",
			Name:      "rate_limit_remaining",
			Help:      "Remaining calls reported by the latest rate-limit headers.",
		}),
	}

	m.registry.MustRegister(m.requestsTotal, m.retriesTotal, m.rateLimitRemaining)
	return m
}

// RequestCompleted counts a finished request. Status 0 means a
// transport fault with no response.
func (m *Metrics) RequestCompleted(method, path string, status int) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// RetryScheduled counts a scheduled retry.
func (m *Metrics) RetryScheduled(method, path string) {
	m.retriesTotal.WithLabelValues(method, path).Inc()
}

// RateLimitRemaining records the server-reported rate-limit headroom.
func (m *Metrics) RateLimitRemaining(remaining float64) {
	m.rateLimitRemaining.Set(remaining)
}

// Registry returns the underlying registry, e.g. for merging into an
// application-wide one.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics in Prometheus
// text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
