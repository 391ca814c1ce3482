// Package metrics provides Prometheus metrics for escalated invites.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ResultFailed labels an escalation that ended in an error.
const ResultFailed = "failed"

type Metrics struct {
	DecisionsTotal          *prometheus.CounterVec // Eligibility decisions by outcome and reason
	EscalationsTotal        *prometheus.CounterVec // Escalations by invite result
	EscalateDurationSeconds prometheus.Histogram
}

// New registers the invite metrics with reg, or with the default registry
// when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haulgate_eligibility_decisions_total",
			Help: "Total number of eligibility decisions by outcome and reason",
		}, []string{"outcome", "reason"}),

		EscalationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haulgate_invite_escalations_total",
			Help: "Total number of escalated invite attempts by result",
		}, []string{"result"}),

		EscalateDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "haulgate_invite_escalate_duration_seconds",
			Help:    "Duration of escalated invite attempts end to end",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementDecision counts a decision. Indeterminate decisions are labeled
// with their cause in place of a reason.
func (m *Metrics) IncrementDecision(outcome, reason string) {
	m.DecisionsTotal.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) IncrementEscalation(result string) {
	m.EscalationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEscalateDuration(d time.Duration) {
	m.EscalateDurationSeconds.Observe(d.Seconds())
}
