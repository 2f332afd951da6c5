package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for push connections and fan-out.
type WebSocketMetrics struct {
	ActiveConnections   prometheus.Gauge
	RejectedConnections prometheus.Counter
	MessagesPublished   *prometheus.CounterVec
	ConnectionsDropped  prometheus.Counter
	BroadcastDuration   prometheus.Histogram
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of open push connections.",
		}),
		RejectedConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejected_connections_total",
			Help:      "Connections refused because the connection limit was reached.",
		}),
		MessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_published_total",
			Help:      "Snapshots delivered to clients, by delivery path.",
		}, []string{"path"}),
		ConnectionsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_dropped_total",
			Help:      "Connections removed after a failed push.",
		}),
		BroadcastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "broadcast_duration_seconds",
			Help:      "Duration of one fan-out to all connections.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.RejectedConnections, m.MessagesPublished, m.ConnectionsDropped, m.BroadcastDuration)
	return m
}
