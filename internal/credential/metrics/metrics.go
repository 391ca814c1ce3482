// Package metrics provides Prometheus metrics for the credential manager.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh results.
const (
	ResultSuccess       = "success"
	ResultProviderError = "provider_error"
	ResultStoreError    = "store_error"
)

type Metrics struct {
	RefreshesTotal         *prometheus.CounterVec // Token endpoint calls by result
	ReusesTotal            prometheus.Counter     // EnsureValid calls answered from the store
	CorruptRecordsTotal    prometheus.Counter     // Stored records that failed to decode
	RefreshDurationSeconds prometheus.Histogram
}

// New registers the credential metrics with reg. A nil reg registers with the
// default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RefreshesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haulgate_credential_refreshes_total",
			Help: "Total number of credential refresh attempts by result",
		}, []string{"result"}),

		ReusesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "haulgate_credential_reuses_total",
			Help: "Total number of requests served by the stored credential",
		}),

		CorruptRecordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "haulgate_credential_corrupt_records_total",
			Help: "Total number of stored credential records that could not be decoded",
		}),

		RefreshDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "haulgate_credential_refresh_duration_seconds",
			Help:    "Duration of credential refreshes including persistence",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncrementRefresh(result string) {
	m.RefreshesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementReuse() {
	m.ReusesTotal.Inc()
}

func (m *Metrics) IncrementCorrupt() {
	m.CorruptRecordsTotal.Inc()
}

func (m *Metrics) ObserveRefreshDuration(d time.Duration) {
	m.RefreshDurationSeconds.Observe(d.Seconds())
}
