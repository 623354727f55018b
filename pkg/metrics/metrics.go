package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered with the default registry on import so every
// package can record without an init step.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_analyses_total",
			Help: "Completed change analyses by importance and scoring strategy.",
		},
		[]string{"importance", "strategy"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "change_analysis_duration_seconds",
			Help:    "Duration of change analyses.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"summary_source"},
	)

	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_summaries_total",
			Help: "Summaries by source and fallback cause.",
		},
		[]string{"source", "reason"}, // reason: none, disabled, timeout, error, malformed
	)

	ResultCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_result_cache_total",
			Help: "Result cache lookups.",
		},
		[]string{"outcome"}, // hit, miss
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_jobs_total",
			Help: "Processed analysis jobs.",
		},
		[]string{"status", "error_type"}, // status: success, failure
	)

	JobsInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "change_jobs_in_queue",
			Help: "Current number of analysis jobs waiting in the queue.",
		},
	)

	CaptureDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "page_capture_duration_seconds",
			Help:    "Duration of headless page captures.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"status"},
	)
)
