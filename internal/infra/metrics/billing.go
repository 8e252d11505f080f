package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		billingEventsTotal,
		billingSignatureFailuresTotal,
	)
}

var (
	billingEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_events_total",
			Help: "Webhook events by type and outcome (applied/skipped/failed).",
		},
		[]string{"type", "outcome"},
	)

	billingSignatureFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_signature_failures_total",
			Help: "Webhook deliveries rejected for a bad or missing signature.",
		},
	)
)

func IncBillingEvent(eventType, outcome string) {
	billingEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func IncSignatureFailure() {
	billingSignatureFailuresTotal.Inc()
}
