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

	DocumentUploadCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_upload_count",
			Help: "Total number of document uploads",
		},
		[]string{"status"}, // status: success, failed
	)

	AuthorizationDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_denied_count",
			Help: "Total number of denied authorization checks",
		},
		[]string{"resource"},
	)
)

// RecordHTTPRequestDuration records one request observation.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementDocumentUpload increments the upload counter.
func IncrementDocumentUpload(status string) {
	DocumentUploadCount.WithLabelValues(status).Inc()
}

// IncrementAuthorizationDenied increments the denial counter for a resource.
func IncrementAuthorizationDenied(resource string) {
	AuthorizationDenied.WithLabelValues(resource).Inc()
}
