package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Consume outcomes.
const (
	OutcomeAcked       = "acked"
	OutcomeDecodeError = "decode_error"
	OutcomeHandleError = "handle_error"
)

// Metrics counts consumed messages. A nil *Metrics records nothing.
type Metrics struct {
	consumed *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		consumed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkguard",
			Subsystem: "events",
			Name:      "consumed_total",
			Help:      "Events consumed, by topic and outcome.",
		}, []string{"topic", "outcome"}),
	}
}

func (m *Metrics) observe(topic, outcome string) {
	if m == nil {
		return
	}

	m.consumed.WithLabelValues(topic, outcome).Inc()
}
