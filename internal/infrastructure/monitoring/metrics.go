package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	AssessmentsComputed  *prometheus.CounterVec
	BatchUpsertSize      prometheus.Histogram
	BatchUpsertLatency   *prometheus.HistogramVec
	AggregateLatency     *prometheus.HistogramVec
	PartitionFailures    *prometheus.CounterVec
	AuditWrites          *prometheus.CounterVec
	AuthorizationDenials *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the metrics on the given registerer. Tests pass a
// fresh registry so repeated construction does not collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AssessmentsComputed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edusight_assessments_computed_total",
				Help: "Total number of risk assessments computed.",
			},
			[]string{"tenant_id", "risk_level"},
		),
		BatchUpsertSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "edusight_batch_upsert_size",
				Help:    "Number of records per batch upsert.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		BatchUpsertLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edusight_batch_upsert_latency_seconds",
				Help:    "Latency of batch upserts including synchronous rescoring.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tenant_id"},
		),
		AggregateLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edusight_aggregate_latency_seconds",
				Help:    "Latency of oversight fan-out queries.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		PartitionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edusight_partition_failures_total",
				Help: "Per-partition read failures during aggregation.",
			},
			[]string{"tenant_id", "reason"},
		),
		AuditWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edusight_audit_writes_total",
				Help: "Audit records appended, by action and result.",
			},
			[]string{"action", "result"},
		),
		AuthorizationDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edusight_authorization_denials_total",
				Help: "Requests rejected by the access guard.",
			},
			[]string{"role"},
		),
	}
}

// RecordAssessment counts one computed assessment.
func (m *Metrics) RecordAssessment(tenantID, riskLevel string) {
	m.AssessmentsComputed.WithLabelValues(tenantID, riskLevel).Inc()
}

// RecordBatchUpsert records size and latency for one batch.
func (m *Metrics) RecordBatchUpsert(tenantID string, size int, duration time.Duration) {
	m.BatchUpsertSize.Observe(float64(size))
	m.BatchUpsertLatency.WithLabelValues(tenantID).Observe(duration.Seconds())
}

// RecordAggregate records the latency of one fan-out operation.
func (m *Metrics) RecordAggregate(operation string, duration time.Duration) {
	m.AggregateLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPartitionFailure counts one degraded partition read.
func (m *Metrics) RecordPartitionFailure(tenantID, reason string) {
	m.PartitionFailures.WithLabelValues(tenantID, reason).Inc()
}

// RecordAuditWrite counts one audit append attempt.
func (m *Metrics) RecordAuditWrite(action, result string) {
	m.AuditWrites.WithLabelValues(action, result).Inc()
}

// RecordAuthorizationDenial counts one access guard rejection.
func (m *Metrics) RecordAuthorizationDenial(role string) {
	m.AuthorizationDenials.WithLabelValues(role).Inc()
}
