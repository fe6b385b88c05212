package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by the job and tracer metrics.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"

	ActionCreated  = "created"
	ActionExtended = "extended"
)

// MetricsRegistry holds all Prometheus metrics for linker
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Job Metrics
	JobDuration  *prometheus.HistogramVec
	JobRunsTotal *prometheus.CounterVec

	// Tracking Metrics
	FixesIngestedTotal      *prometheus.CounterVec
	FixesSkippedTotal       *prometheus.CounterVec
	CheckpointLogsTotal     *prometheus.CounterVec
	NotificationsActive     *prometheus.GaugeVec
	VendorFetchFailureTotal prometheus.Counter
}

// NewMetricsRegistry registers every metric with reg. The server passes
// prometheus.DefaultRegisterer; tests pass a fresh prometheus.NewRegistry().
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linker_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "linker_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		// Job Metrics
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linker_job_duration_seconds",
				Help:    "Periodic job execution time in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"job_name"},
		),
		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_job_runs_total",
				Help: "Periodic job runs by job name and result",
			},
			[]string{"job_name", "result"},
		),

		// Tracking Metrics
		FixesIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_fixes_ingested_total",
				Help: "GPS fixes stored, by source",
			},
			[]string{"source"},
		),
		FixesSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_fixes_skipped_total",
				Help: "GPS fixes dropped during import, by reason",
			},
			[]string{"reason"},
		),
		CheckpointLogsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_checkpoint_logs_total",
				Help: "Checkpoint intervals written by the tracer, by action",
			},
			[]string{"action"},
		),
		NotificationsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "linker_notifications_active",
				Help: "Current number of notifications by type",
			},
			[]string{"notification_type"},
		),
		VendorFetchFailureTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "linker_vendor_fetch_failures_total",
				Help: "Failed downloads of the tracker vendor feed",
			},
		),
	}
}
