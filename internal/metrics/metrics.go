// Package metrics exposes Prometheus collectors for the newswatch service.
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
	scrapeRunsTotal            *prometheus.CounterVec
	scrapeArticlesFound        prometheus.Counter
	scrapeArticlesSaved        prometheus.Counter
	scrapeDurationSeconds      prometheus.Histogram
	fetchAttemptsTotal         *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	loadtestActiveUsers        prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newswatch_scrape_runs_total",
				Help: "Total number of scrape runs, labeled by status.",
			},
			[]string{"status"},
		)

		scrapeArticlesFound = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "newswatch_scrape_articles_found_total",
				Help: "Total number of article candidates extracted across scrape runs.",
			},
		)

		scrapeArticlesSaved = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "newswatch_scrape_articles_saved_total",
				Help: "Total number of newly persisted articles across scrape runs.",
			},
		)

		scrapeDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "newswatch_scrape_duration_seconds",
				Help:    "Histogram of full scrape run durations.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newswatch_fetch_attempts_total",
				Help: "Total number of page fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
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

		loadtestActiveUsers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "newswatch_loadtest_active_users",
				Help: "Number of simulated users currently issuing requests.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrapeRun records the outcome and duration of one scrape run.
func ObserveScrapeRun(status string, found, saved int, duration time.Duration) {
	scrapeRunsTotal.WithLabelValues(status).Inc()
	if found > 0 {
		scrapeArticlesFound.Add(float64(found))
	}
	if saved > 0 {
		scrapeArticlesSaved.Add(float64(saved))
	}
	scrapeDurationSeconds.Observe(duration.Seconds())
}

// ObserveFetchAttempt increments the fetch attempt counter for the outcome.
func ObserveFetchAttempt(outcome string) {
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveUsers increments the simulated user gauge.
func IncActiveUsers() {
	loadtestActiveUsers.Inc()
}

// DecActiveUsers decrements the simulated user gauge.
func DecActiveUsers() {
	loadtestActiveUsers.Dec()
}
