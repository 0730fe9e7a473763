// Package metrics exposes Prometheus counters for the tool call path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's instruments, bound to one registry so tests
// can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls    *prometheus.CounterVec
	authFailures *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

// New builds the metric set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbmcp",
			Name:      "tool_calls_total",
			Help:      "Tool calls by tool name and outcome status.",
		}, []string{"tool", "status"}),
		authFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbmcp",
			Name:      "auth_failures_total",
			Help:      "Rejected requests by OAuth error code.",
		}, []string{"code"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dbmcp",
			Name:      "tool_call_duration_seconds",
			Help:      "Tool handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}
}

// ObserveToolCall records one finished tool call.
func (m *Metrics) ObserveToolCall(tool, status string, d time.Duration) {
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.callDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveAuthFailure records one rejected request by OAuth error code.
func (m *Metrics) ObserveAuthFailure(code string) {
	m.authFailures.WithLabelValues(code).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test assertions.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
