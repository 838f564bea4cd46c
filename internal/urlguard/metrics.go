package urlguard

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes recorded alongside vendor verdicts.
const (
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics records guard decisions and reputation lookups. A nil *Metrics is a no-op.
type Metrics struct {
	decisions *prometheus.CounterVec
	lookups   *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkguard",
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Safety decisions by verdict and reason.",
		}, []string{"verdict", "reason"}),
		lookups: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "linkguard",
			Subsystem: "guard",
			Name:      "reputation_lookup_seconds",
			Help:      "Reputation lookup latency by outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeDecision(d Decision) {
	if m == nil {
		return
	}

	m.decisions.WithLabelValues(string(d.Verdict), d.Reason).Inc()
}

func (m *Metrics) observeLookup(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.lookups.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
