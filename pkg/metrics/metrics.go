// Package metrics holds the Prometheus collectors shared by the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedbackIngested counts persisted feedback records by SourceLabel.
	FeedbackIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedpulse_feedback_ingested_total",
		Help: "Feedback records persisted, by source",
	}, []string{"source"})

	// ClassifierFallbacks counts annotations replaced by the fallback, by reason.
	ClassifierFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedpulse_classifier_fallback_total",
		Help: "Annotations that degraded to the fallback annotation, by reason",
	}, []string{"reason"})

	// StatsCache counts stats cache lookups by result (hit, miss).
	StatsCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedpulse_stats_cache_total",
		Help: "Dashboard stats cache lookups by result",
	}, []string{"result"})

	// ModelRequestDuration tracks model call latency.
	ModelRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedpulse_model_request_duration_seconds",
		Help:    "Model completion latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"backend", "result"})

	// AlertFailures counts notifications that could not be delivered.
	AlertFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedpulse_alert_failures_total",
		Help: "Urgent feedback notifications that failed to send",
	})
)

// OtherSource is the label for sources outside knownSources.
const OtherSource = "other"

var knownSources = map[string]bool{
	"api": true, "appstore": true, "discord": true, "email": true,
	"github": true, "playstore": true, "reddit": true, "rss": true,
	"slack": true, "support": true, "survey": true, "twitter": true, "web": true,
}

// SourceLabel maps a free-form feedback source to a bounded label set.
func SourceLabel(source string) string {
	if knownSources[source] {
		return source
	}
	return OtherSource
}
