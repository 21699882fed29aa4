package secretservice

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "secret_service"

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	SessionsOpened   prometheus.Counter
	SessionsClosed   prometheus.Counter
	OpenSessions     prometheus.Gauge
	PromptsCompleted *prometheus.CounterVec
	SecretsServed    prometheus.Counter
	Faults           *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_opened_total",
			Help:      "Number of sessions opened.",
		}),
		SessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_closed_total",
			Help:      "Number of sessions closed, explicitly or on caller disconnect.",
		}),
		OpenSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "open_sessions",
			Help:      "Number of currently open sessions.",
		}),
		PromptsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "prompts_completed_total",
			Help:      "Number of prompts that emitted Completed.",
		}, []string{"dismissed"}),
		SecretsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "secrets_served_total",
			Help:      "Number of secrets encoded for callers.",
		}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "faults_total",
			Help:      "Number of faults returned to callers.",
		}, []string{"kind"}),
	}

	if reg != nil {
		reg.MustRegister(m.SessionsOpened, m.SessionsClosed, m.OpenSessions, m.PromptsCompleted, m.SecretsServed, m.Faults)
	}

	return m
}

func (m *Metrics) promptCompleted(dismissed bool) {
	m.PromptsCompleted.WithLabelValues(strconv.FormatBool(dismissed)).Inc()
}
