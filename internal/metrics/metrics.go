// Package metrics exposes the pipeline's Prometheus instrumentation:
// HTTP request counts/latencies, queue depth by state, scrape outcomes
// by which scraper served them, and a memory-pressure gauge fed by the
// Controller's backpressure loop.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediascraper",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by method, path, and status code.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediascraper",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mediascraper",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Queue item count by state (waiting, active, completed, failed).",
	}, []string{"state"})

	scrapeOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediascraper",
		Subsystem: "scrape",
		Name:      "outcomes_total",
		Help:      "Scrape outcomes by scraper used (static, dynamic) and result.",
	}, []string{"scraper_used", "outcome"})

	memoryPressureBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediascraper",
		Subsystem: "process",
		Name:      "heap_alloc_bytes",
		Help:      "Last observed runtime heap allocation in bytes.",
	})
)

// RecordRequest records one completed HTTP request.
func RecordRequest(method, path string, status int, latency time.Duration) {
	statusStr := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(latency.Seconds())
}

// SetQueueDepth reports the current queue item count for state.
func SetQueueDepth(state string, count float64) {
	queueDepth.WithLabelValues(state).Set(count)
}

// RecordScrapeOutcome records one router decision's result.
func RecordScrapeOutcome(scraperUsed string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	scrapeOutcomesTotal.WithLabelValues(scraperUsed, outcome).Inc()
}

// SetMemoryPressure reports the last-observed heap allocation.
func SetMemoryPressure(bytes uint64) {
	memoryPressureBytes.Set(float64(bytes))
}
