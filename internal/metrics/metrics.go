// Package metrics exposes Prometheus collectors for careerwatch.
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
	fetchesTotal               *prometheus.CounterVec
	classificationsTotal       *prometheus.CounterVec
	deliveriesTotal            *prometheus.CounterVec
	pipelineErrorsTotal        *prometheus.CounterVec
	passesTotal                *prometheus.CounterVec
	passDurationSeconds        prometheus.Histogram
	lastPassTimestamp          prometheus.Gauge
	activeWorkers              prometheus.Gauge
	dedupEntries               prometheus.Gauge
	rateLimitDelaySeconds      prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times; every
// observer calls it, so explicit calls only matter for eager registration.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "careerwatch_fetches_total",
				Help: "Page fetches, labeled by method (static|rendered) and outcome.",
			},
			[]string{"method", "outcome"},
		)

		classificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "careerwatch_classifications_total",
				Help: "Candidate pages classified, labeled by verdict reason.",
			},
			[]string{"reason"},
		)

		deliveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "careerwatch_deliveries_total",
				Help: "Posting deliveries, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		pipelineErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "careerwatch_errors_total",
				Help: "Pipeline failures, labeled by error kind.",
			},
			[]string{"kind"},
		)

		passesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "careerwatch_passes_total",
				Help: "Crawl passes, labeled by status.",
			},
			[]string{"status"},
		)

		passDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "careerwatch_pass_duration_seconds",
				Help:    "Wall-clock duration of crawl passes.",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
			},
		)

		lastPassTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "careerwatch_last_pass_timestamp_seconds",
				Help: "Unix time at which the last pass finished.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "careerwatch_active_workers",
				Help: "Number of workers currently processing a company.",
			},
		)

		dedupEntries = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "careerwatch_dedup_entries",
				Help: "Apply links recorded in the dedup store.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "careerwatch_rate_limit_delay_seconds",
				Help:    "Time spent waiting for fetch admission.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveFetch counts one fetch attempt.
func ObserveFetch(method, outcome string) {
	Init()
	fetchesTotal.WithLabelValues(method, outcome).Inc()
}

// ObserveClassification counts one classifier verdict.
func ObserveClassification(reason string) {
	Init()
	classificationsTotal.WithLabelValues(reason).Inc()
}

// ObserveDelivery counts one delivery outcome.
func ObserveDelivery(outcome string) {
	Init()
	deliveriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveError counts one pipeline failure by kind.
func ObserveError(kind string) {
	Init()
	pipelineErrorsTotal.WithLabelValues(kind).Inc()
}

// ObservePass records a finished pass.
func ObservePass(status string, duration time.Duration, finished time.Time) {
	Init()
	passesTotal.WithLabelValues(status).Inc()
	passDurationSeconds.Observe(duration.Seconds())
	lastPassTimestamp.Set(float64(finished.Unix()))
}

// SetDedupEntries reports the dedup store size.
func SetDedupEntries(n int) {
	Init()
	dedupEntries.Set(float64(n))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of an admission wait. Crawled
// hosts are unbounded, so the histogram carries no host label.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	rateLimitDelaySeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
