package links

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts lifecycle events. A nil *Metrics is a no-op.
type Metrics struct {
	deletes       *prometheus.CounterVec
	clickFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		deletes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkguard",
			Subsystem: "links",
			Name:      "deletes_total",
			Help:      "Link deletions by kind (hard or soft).",
		}, []string{"kind"}),
		clickFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "linkguard",
			Subsystem: "links",
			Name:      "click_increment_failures_total",
			Help:      "Redirects whose click increment could not be stored.",
		}),
	}
}

func (m *Metrics) observeDelete(soft bool) {
	if m == nil {
		return
	}

	kind := "hard"
	if soft {
		kind = "soft"
	}

	m.deletes.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeClickFailure() {
	if m == nil {
		return
	}

	m.clickFailures.Inc()
}
