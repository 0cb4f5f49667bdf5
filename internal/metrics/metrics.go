package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Pipeline metrics
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formscan_scans_total",
			Help: "Total number of processed scans",
		},
		[]string{"form_type", "outcome"}, // outcome: extracted, generic_fallback, empty
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "formscan_scan_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 25, 50, 100, 200},
		},
	)

	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formscan_classifications_total",
			Help: "Total number of classifications by mode and result",
		},
		[]string{"mode", "form_type"},
	)

	InferenceAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formscan_inference_attempts_total",
			Help: "Total number of model candidate attempts",
		},
		[]string{"provider", "outcome"}, // outcome: success, error, rate_limited
	)

	ConfidenceOverall = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formscan_confidence_overall",
			Help:    "Overall confidence score of finished extractions",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"form_type"},
	)

	ValidationIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formscan_validation_issues_total",
			Help: "Total number of validation issues attached to extractions",
		},
		[]string{"form_type"},
	)

	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "formscan_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)
)
