package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WhatsApp sends by trigger and outcome
	NotificationSendCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_send_total",
			Help: "Total number of notification send attempts",
		},
		[]string{"trigger", "status"}, // status: sent, failed
	)

	// Reminder sweep recipients by result
	ReminderSweepCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_sweep_total",
			Help: "Recipients processed by the appointment reminder sweep",
		},
		[]string{"result"}, // result: sent, failed, skipped, duplicate
	)

	// Review responses by answering tier
	ReviewFetchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_fetch_total",
			Help: "Review list responses by source tier",
		},
		[]string{"source"}, // source: cache, demo, api, fallback
	)

	// Third-party call latency (ms)
	ProviderCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_latency_ms",
			Help:    "Third-party provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"provider", "status"},
	)

	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries above the slow-query threshold",
		},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12.8s
		},
	)

	// Worker event handling by outcome
	EventHandledCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_handled_total",
			Help: "MQ events handled by routing key and outcome",
		},
		[]string{"routing_key", "outcome"}, // outcome: ok, skipped, duplicate, requeued, dead_lettered
	)
)

// RecordNotificationSend records one send attempt.
func RecordNotificationSend(trigger, status string) {
	NotificationSendCount.WithLabelValues(trigger, status).Inc()
}

// RecordReminderSweep records one sweep recipient.
func RecordReminderSweep(result string) {
	ReminderSweepCount.WithLabelValues(result).Inc()
}

// RecordReviewFetch records which tier answered a review request.
func RecordReviewFetch(source string) {
	ReviewFetchCount.WithLabelValues(source).Inc()
}

// RecordProviderCallLatency records a third-party call.
func RecordProviderCallLatency(provider, status string, duration time.Duration) {
	ProviderCallLatency.WithLabelValues(provider, status).Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequestDuration records an HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementSlowQuery counts a slow query.
func IncrementSlowQuery(duration time.Duration) {
	SlowQueryCount.Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

// RecordEventHandled records a consumed MQ event.
func RecordEventHandled(routingKey, outcome string) {
	EventHandledCount.WithLabelValues(routingKey, outcome).Inc()
}
