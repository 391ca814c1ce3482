// Package metrics provides Prometheus metrics for carrier registry lookups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ResultFound labels a lookup that returned a record; failures are labeled
// with their upstream category.
const ResultFound = "found"

type Metrics struct {
	LookupsTotal          *prometheus.CounterVec   // Lookups by result
	LookupDurationSeconds *prometheus.HistogramVec // Lookup latency by result
	RateLimitWaitSeconds  prometheus.Histogram     // Time spent waiting on the local limiter
	CircuitOpen           prometheus.Gauge         // 1 while the breaker rejects calls
}

// New registers the registry metrics with reg, or with the default registry
// when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		LookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haulgate_registry_lookups_total",
			Help: "Total number of carrier registry lookups by result",
		}, []string{"result"}),

		LookupDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "haulgate_registry_lookup_duration_seconds",
			Help:    "Duration of carrier registry lookups by result",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"result"}),

		RateLimitWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "haulgate_registry_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the registry rate limiter",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		}),

		CircuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "haulgate_registry_circuit_open",
			Help: "Whether the registry circuit breaker is open (1) or closed (0)",
		}),
	}
}

func (m *Metrics) ObserveLookup(result string, d time.Duration) {
	m.LookupsTotal.WithLabelValues(result).Inc()
	m.LookupDurationSeconds.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) ObserveRateLimitWait(d time.Duration) {
	m.RateLimitWaitSeconds.Observe(d.Seconds())
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}
