package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	URLsIngestedTotal   prometheus.Counter
	ScrapesTotal        *prometheus.CounterVec
	ScrapeDuration      *prometheus.HistogramVec
	BatchInProgress     prometheus.Gauge
	QueueSize           prometheus.Gauge
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call
// more than once; only the first call registers.
func Init() {
	initOnce.Do(register)
}

func register() {
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

	URLsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_urls_ingested_total",
			Help: "Total number of URLs accepted into the queue.",
		},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapes_total",
			Help: "Total number of scrape attempts.",
		},
		[]string{"status", "error_type"}, // status: success, failure
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Duration of single-page scrape operations.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"domain"},
	)

	BatchInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrape_batch_in_progress",
			Help: "Whether a batch scrape is currently running (0 or 1).",
		},
	)

	QueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "queue_size",
			Help: "Number of saved URLs in the queue, refreshed on stats reads.",
		},
	)
}
