package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the intake and retrieval pipeline. API request
// metrics are recorded by the middleware; domain counters by the services.
var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taller_http_requests_total",
		Help: "API requests by method, path and status code",
	}, []string{"method", "path", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taller_http_request_duration_seconds",
		Help:    "API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taller_dni_lookups_total",
		Help: "DNI identity lookups by outcome",
	}, []string{"status"})

	PhotoUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taller_photo_uploads_total",
		Help: "Photo blob uploads by outcome",
	}, []string{"status"})

	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taller_registrations_total",
		Help: "Equipment registration submissions by outcome",
	}, []string{"status"})

	SnapshotRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taller_snapshot_refreshes_total",
		Help: "Retrieval snapshot refreshes by outcome",
	}, []string{"status"})
)
