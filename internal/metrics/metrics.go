// Package metrics provides Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all gateway Prometheus metrics. Constructed once per
// process against an explicit registry and passed to the server as a
// dependency.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	rateLimitedTotal *prometheus.CounterVec
	proxyErrors      *prometheus.CounterVec
	identifications  *prometheus.CounterVec
}

// New creates and registers the gateway metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Total number of gateway requests",
			},
			[]string{"tenant", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "End-to-end gateway request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"tenant"},
		),
		rateLimitedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_rate_limited_total",
				Help: "Requests denied by the rate limiter",
			},
			[]string{"tenant"},
		),
		proxyErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_proxy_errors_total",
				Help: "Upstream forwarding failures",
			},
			[]string{"tenant"},
		),
		identifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_identifications_total",
				Help: "Tenant identifications by resolution method",
			},
			[]string{"method"},
		),
	}
}

// ObserveRequest records one completed gateway request.
func (m *Metrics) ObserveRequest(tenant string, status int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(tenant, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(tenant).Observe(elapsed.Seconds())
}

// ObserveRateLimited records one denied request.
func (m *Metrics) ObserveRateLimited(tenant string) {
	m.rateLimitedTotal.WithLabelValues(tenant).Inc()
}

// ObserveProxyError records one upstream failure.
func (m *Metrics) ObserveProxyError(tenant string) {
	m.proxyErrors.WithLabelValues(tenant).Inc()
}

// ObserveIdentification records which strategy resolved a tenant.
func (m *Metrics) ObserveIdentification(method string) {
	m.identifications.WithLabelValues(method).Inc()
}

// Handler serves the metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
