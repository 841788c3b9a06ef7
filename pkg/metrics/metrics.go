package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	ProjectsCreatedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "projects_created_count",
			Help: "Total number of projects created",
		},
	)

	ApplicationsSubmittedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "applications_submitted_count",
			Help: "Total number of applications submitted",
		},
	)

	ApplicationsDecidedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applications_decided_count",
			Help: "Total number of application decisions",
		},
		[]string{"status"}, // accepted / rejected
	)

	MessagesSentCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_sent_count",
			Help: "Total number of messages sent",
		},
		[]string{"kind"}, // user / system
	)

	EventsPublishedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_count",
			Help: "Total number of domain events published to MQ",
		},
		[]string{"routing_key", "status"}, // status: success / failed
	)
)

// RecordHTTPRequestDuration records the latency of a finished HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records the latency of a database operation.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementApplicationsDecided counts an accept or reject decision.
func IncrementApplicationsDecided(status string) {
	ApplicationsDecidedCount.WithLabelValues(status).Inc()
}

// IncrementMessagesSent counts a sent message by kind.
func IncrementMessagesSent(kind string) {
	MessagesSentCount.WithLabelValues(kind).Inc()
}

// IncrementEventsPublished counts a publish attempt by outcome.
func IncrementEventsPublished(routingKey, status string) {
	EventsPublishedCount.WithLabelValues(routingKey, status).Inc()
}
