package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		notificationsSentTotal,
		expiryScanRunsTotal,
		expiryScanErrorsTotal,
	)
}

var (
	notificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Emails dispatched, by notification kind.",
		},
		[]string{"kind"},
	)

	expiryScanRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_scan_runs_total",
			Help: "Completed expiry scanner runs.",
		},
	)

	expiryScanErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_scan_errors_total",
			Help: "Per-subscription failures during expiry scans.",
		},
	)
)

func IncNotificationSent(kind string) {
	notificationsSentTotal.WithLabelValues(kind).Inc()
}

func IncExpiryScanRun() {
	expiryScanRunsTotal.Inc()
}

func AddExpiryScanErrors(n int) {
	if n > 0 {
		expiryScanErrorsTotal.Add(float64(n))
	}
}
