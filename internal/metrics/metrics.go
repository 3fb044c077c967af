// Package metrics exposes Prometheus counters for the email pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_emails_enqueued_total",
			Help: "Total emails accepted into the queue",
		},
	)

	EmailsThrottled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_emails_throttled_total",
			Help: "Total sends suppressed by throttling",
		},
	)

	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_emails_sent_total",
			Help: "Total emails delivered by the processor",
		},
	)

	EmailsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_emails_failed_total",
			Help: "Total delivery attempts that failed",
		},
	)
)

// Init registers the pipeline counters with the default registry. Call once
// at startup.
func Init() {
	prometheus.MustRegister(EmailsEnqueued)
	prometheus.MustRegister(EmailsThrottled)
	prometheus.MustRegister(EmailsSent)
	prometheus.MustRegister(EmailsFailed)
}
