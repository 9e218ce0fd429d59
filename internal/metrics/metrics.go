// Package metrics exposes Prometheus collectors for the tender crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	tenderPagesTotal           *prometheus.CounterVec
	tenderRecordsTotal         prometheus.Counter
	tenderCrawlsTotal          *prometheus.CounterVec
	tenderBatchDurationSeconds prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	cacheLookupsTotal          *prometheus.CounterVec
	rateLimitDelaySeconds      prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		tenderPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tender_pages_total",
				Help: "Total number of listing pages fetched, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		tenderRecordsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tender_records_total",
				Help: "Total number of tender records collected.",
			},
		)

		tenderCrawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tender_crawls_total",
				Help: "Total number of crawls, labeled by termination state.",
			},
			[]string{"termination"},
		)

		tenderBatchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tender_batch_duration_seconds",
				Help:    "Histogram of batch latencies from launch to barrier.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tender_cache_lookups_total",
				Help: "Result cache lookups, labeled by result.",
			},
			[]string{"result"},
		)

		rateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tender_rate_limit_delay_seconds",
				Help:    "Histogram of time spent waiting on the fetch rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one fetched page. outcome is "ok" or a failure class.
func ObservePage(outcome string) {
	Init()
	tenderPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRecords adds n collected records.
func ObserveRecords(n int) {
	Init()
	if n > 0 {
		tenderRecordsTotal.Add(float64(n))
	}
}

// ObserveCrawl counts a finished crawl.
func ObserveCrawl(termination string) {
	Init()
	tenderCrawlsTotal.WithLabelValues(termination).Inc()
}

// ObserveBatch records how long a batch took to resolve.
func ObserveBatch(duration time.Duration) {
	Init()
	tenderBatchDurationSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveCacheLookup counts a cache hit, miss or error.
func ObserveCacheLookup(result string) {
	Init()
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimitDelay records time spent waiting for a fetch token.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	rateLimitDelaySeconds.Observe(duration.Seconds())
}
