package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsProcessed counts pipeline runs by terminal outcome.
	EventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "located_events_processed_total",
			Help: "Transition events processed, by outcome",
		},
		[]string{"outcome"},
	)

	NotificationsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "located_notifications_sent_total",
			Help: "Push tokens successfully delivered to",
		},
	)

	NotificationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "located_notifications_failed_total",
			Help: "Push tokens that failed delivery",
		},
	)

	TokensPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "located_tokens_pruned_total",
			Help: "Invalid push tokens removed by the reconciler",
		},
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "located_pipeline_duration_seconds",
			Help:    "End-to-end duration of one pipeline run",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all collectors with the default registry. Call once
// at process start.
func Register() {
	prometheus.MustRegister(
		EventsProcessed,
		NotificationsSent,
		NotificationsFailed,
		TokensPruned,
		PipelineDuration,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
