// Package metrics provides Prometheus metrics for the credential read and write paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons for enumerated or listed credentials that were left out.
const (
	SkipNotFound  = "not_found"
	SkipTransient = "transient"
	SkipIndex     = "index"
	SkipDuplicate = "duplicate"
)

// OutcomeConfirmed labels a write the ledger confirmed. Failed writes are
// labelled with their error code.
const OutcomeConfirmed = "confirmed"

// Metrics contains the credential metrics.
type Metrics struct {
	// Read side
	EnumeratedTotal *prometheus.CounterVec   // Credentials returned by operation (enumerate, list_issued)
	SkippedTotal    *prometheus.CounterVec   // Credentials left out, by operation and reason
	VerdictsTotal   *prometheus.CounterVec   // Verification verdicts
	ReadDuration    *prometheus.HistogramVec // Latency of read-side operations

	// Write side
	WritesTotal       *prometheus.CounterVec   // Writes by operation and outcome code
	WriteDuration     *prometheus.HistogramVec // End-to-end latency of confirmed writes
	RefreshFailures   prometheus.Counter       // Post-revoke refreshes that failed
	SupersededQueries *prometheus.CounterVec   // Queries discarded because a newer one started
}

// New creates a Metrics instance registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		EnumeratedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_credentials_returned_total",
			Help: "Total number of credentials returned by read operations",
		}, []string{"operation"}),

		SkippedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_credentials_skipped_total",
			Help: "Total number of credentials left out of read results, by reason",
		}, []string{"operation", "reason"}),

		VerdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_verifications_total",
			Help: "Total number of verifications by verdict",
		}, []string{"verdict"}),

		ReadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credledger_read_duration_seconds",
			Help:    "Duration of read-side operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		WritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_writes_total",
			Help: "Total number of ledger writes by operation and outcome",
		}, []string{"operation", "outcome"}),

		WriteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credledger_write_duration_seconds",
			Help:    "Duration of ledger writes from submission to confirmation",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation"}),

		RefreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "credledger_refresh_failures_total",
			Help: "Total number of post-revocation view refreshes that failed",
		}),

		SupersededQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_queries_superseded_total",
			Help: "Total number of queries whose result was discarded for a newer query",
		}, []string{"operation"}),
	}
}

// RecordReturned counts credentials returned by operation.
func (m *Metrics) RecordReturned(operation string, n int) {
	if m == nil {
		return
	}
	m.EnumeratedTotal.WithLabelValues(operation).Add(float64(n))
}

// RecordSkipped counts a credential left out of a read result.
func (m *Metrics) RecordSkipped(operation, reason string) {
	if m == nil {
		return
	}
	m.SkippedTotal.WithLabelValues(operation, reason).Inc()
}

// RecordVerdict counts a verification verdict.
func (m *Metrics) RecordVerdict(verdict string) {
	if m == nil {
		return
	}
	m.VerdictsTotal.WithLabelValues(verdict).Inc()
}

// ObserveRead records the duration of a read operation.
func (m *Metrics) ObserveRead(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.ReadDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordWrite counts a write outcome; outcome is "confirmed" or an error code.
func (m *Metrics) RecordWrite(operation, outcome string) {
	if m == nil {
		return
	}
	m.WritesTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveWrite records the duration of a confirmed write.
func (m *Metrics) ObserveWrite(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.WriteDuration.WithLabelValues(operation).Observe(seconds)
}

// IncrementRefreshFailures records a failed refresh after revocation.
func (m *Metrics) IncrementRefreshFailures() {
	if m == nil {
		return
	}
	m.RefreshFailures.Inc()
}

// RecordSuperseded counts a discarded query result.
func (m *Metrics) RecordSuperseded(operation string) {
	if m == nil {
		return
	}
	m.SupersededQueries.WithLabelValues(operation).Inc()
}
