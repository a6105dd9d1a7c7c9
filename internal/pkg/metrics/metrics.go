package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the reconciliation pipeline.
var (
	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Inbound webhook deliveries by final state",
		},
		[]string{"state"},
	)

	WebhookProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_processing_duration_seconds",
			Help:    "Duration of webhook delivery processing",
			Buckets: prometheus.DefBuckets,
		},
	)

	VendorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_requests_total",
			Help: "Outbound vendor gateway requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	ReconciliationConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciliation_conflicts_total",
			Help: "Observations dropped because they would regress a terminal status",
		},
	)
)

// Register registers all metrics on the default registry.
func Register() {
	prometheus.MustRegister(WebhookDeliveriesTotal)
	prometheus.MustRegister(WebhookProcessingDuration)
	prometheus.MustRegister(VendorRequestsTotal)
	prometheus.MustRegister(ReconciliationConflictsTotal)
}
