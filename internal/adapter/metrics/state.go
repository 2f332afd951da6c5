package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pscheid92/impact-snapshot/internal/domain"
)

// StateMetrics tracks the demo status.
type StateMetrics struct {
	CurrentStatus *prometheus.GaugeVec
	Transitions   *prometheus.CounterVec
}

func NewStateMetrics(reg prometheus.Registerer) *StateMetrics {
	m := &StateMetrics{
		CurrentStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "current_status",
			Help:      "1 for the active status, 0 for the others.",
		}, []string{"status"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "transitions_total",
			Help:      "Status writes by target status and source (local or remote).",
		}, []string{"status", "source"}),
	}

	reg.MustRegister(m.CurrentStatus, m.Transitions)
	return m
}

// Observe records a status write.
func (m *StateMetrics) Observe(status domain.Status, source string) {
	for _, s := range domain.Statuses {
		value := 0.0
		if s == status {
			value = 1
		}
		m.CurrentStatus.WithLabelValues(string(s)).Set(value)
	}
	m.Transitions.WithLabelValues(string(status), source).Inc()
}
