package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inbound event outcomes.
const (
	outcomeOK          = "ok"
	outcomeMalformed   = "malformed"
	outcomeUnknown     = "unknown_event"
	outcomeRejected    = "rejected"
	outcomeRateLimited = "rate_limited"
	outcomePanic       = "panic"
)

// Metrics holds the relay's Prometheus collectors.
type Metrics struct {
	sessionsActive prometheus.Gauge
	inboundEvents  *prometheus.CounterVec
	outboundEvents *prometheus.CounterVec
	outboundDrops  prometheus.Counter
}

// NewMetrics registers the relay collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "presence",
			Name:      "sessions_active",
			Help:      "Number of connected sessions",
		}),
		inboundEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "inbound_events_total",
			Help:      "Inbound events by event name and outcome",
		}, []string{"event", "outcome"}),
		outboundEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "outbound_events_total",
			Help:      "Outbound events queued for delivery, by event name",
		}, []string{"event"}),
		outboundDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "outbound_dropped_total",
			Help:      "Outbound events dropped because the session's send buffer was full",
		}),
	}
}

func (m *Metrics) setSessions(n int) {
	m.sessionsActive.Set(float64(n))
}

func (m *Metrics) inbound(event, outcome string) {
	m.inboundEvents.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) outbound(event string) {
	m.outboundEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) dropped() {
	m.outboundDrops.Inc()
}
