// Package metrics owns the Prometheus registry and the metric sets of each component.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "impact"

// Metrics bundles every metric set registered on one registry.
type Metrics struct {
	Registry  *prometheus.Registry
	HTTP      *HTTPMetrics
	WebSocket *WebSocketMetrics
	State     *StateMetrics
	Redis     *RedisMetrics
}

// New creates a registry with Go runtime and process collectors plus all application metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Metrics{
		Registry:  reg,
		HTTP:      NewHTTPMetrics(reg),
		WebSocket: NewWebSocketMetrics(reg),
		State:     NewStateMetrics(reg),
		Redis:     NewRedisMetrics(reg),
	}
}

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RedisMetrics tracks Redis commands and the Redis circuit breaker.
type RedisMetrics struct {
	OpsTotal              *prometheus.CounterVec
	OpDuration            *prometheus.HistogramVec
	CircuitBreakerState   prometheus.Gauge
	CircuitBreakerChanges *prometheus.CounterVec
}

func NewRedisMetrics(reg prometheus.Registerer) *RedisMetrics {
	m := &RedisMetrics{
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operations_total",
			Help:      "Redis commands by operation and outcome.",
		}, []string{"operation", "status"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Redis command latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		CircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		CircuitBreakerChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Circuit breaker transitions by new state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.OpsTotal, m.OpDuration, m.CircuitBreakerState, m.CircuitBreakerChanges)
	return m
}
