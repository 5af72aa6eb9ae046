// Package metrics exposes Prometheus counters for the download
// pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// Request admission metrics
	SubmissionsTotal *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec

	// Download outcome metrics
	DownloadsTotal   *prometheus.CounterVec
	FailuresTotal    *prometheus.CounterVec
	FallbacksTotal   *prometheus.CounterVec
	DownloadDuration *prometheus.HistogramVec
	DownloadBytes    *prometheus.HistogramVec

	// Queue occupancy gauges
	QueuePending prometheus.Gauge
	QueueActive  prometheus.Gauge

	// HTTP request metrics
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// Global metrics instance with mutex for thread safety
var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics creates a new Metrics instance with all required metrics
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	// Return existing instance if already created
	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snagd_submissions_total",
			Help: "Total number of submitted download requests",
		}, []string{"platform", "outcome"}),

		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snagd_rejections_total",
			Help: "Total number of rejected download requests",
		}, []string{"reason"}),

		DownloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snagd_downloads_total",
			Help: "Total number of finished download requests",
		}, []string{"platform", "outcome"}),

		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snagd_failures_total",
			Help: "Total number of failed downloads by failure class",
		}, []string{"class"}),

		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snagd_fallbacks_total",
			Help: "Total number of cross-strategy fallback attempts",
		}, []string{"from", "to"}),

		DownloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snagd_download_duration_seconds",
			Help:    "Download processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"platform", "strategy"}),

		DownloadBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snagd_download_size_bytes",
			Help:    "Size of delivered files in bytes",
			Buckets: prometheus.ExponentialBuckets(65536, 2, 8),
		}, []string{"platform"}),

		QueuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "snagd_queue_pending",
			Help: "Number of requests waiting in the queue",
		}),

		QueueActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "snagd_queue_active",
			Help: "Number of requests being processed",
		}),

		// HTTP request metrics
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	// Register metrics with the default registry
	registerMetrics(m)

	// Store as global instance
	globalMetrics = m

	return m
}

// registerMetrics registers all metrics with the default registry
func registerMetrics(m *Metrics) {
	// Try to register each metric, ignore if already registered
	registerOrGet(m.SubmissionsTotal)
	registerOrGet(m.RejectionsTotal)
	registerOrGet(m.DownloadsTotal)
	registerOrGet(m.FailuresTotal)
	registerOrGet(m.FallbacksTotal)
	registerOrGet(m.DownloadDuration)
	registerOrGet(m.DownloadBytes)
	registerOrGet(m.QueuePending)
	registerOrGet(m.QueueActive)
	registerOrGet(m.HTTPRequestTotal)
	registerOrGet(m.HTTPRequestDuration)
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		// If already registered, return the existing collector
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
