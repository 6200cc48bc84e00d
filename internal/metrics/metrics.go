// Package metrics exposes Prometheus collectors for the linker service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	linksInjectedTotal         prometheus.Counter
	injectionsTotal            *prometheus.CounterVec
	keywordsGeneratedTotal     prometheus.Counter
	crawlerPagesTotal          *prometheus.CounterVec
	crawlerBytesTotal          *prometheus.CounterVec
	llmRequestsTotal           *prometheus.CounterVec
	llmRateLimitDelaySeconds   *prometheus.HistogramVec
	keywordTableEntries        prometheus.Gauge
	licenseChecksTotal         *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
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
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"method", "route"},
		)

		linksInjectedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "linker_links_injected_total",
				Help: "Total number of hyperlinks inserted into submitted text.",
			},
		)

		injectionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linker_injections_total",
				Help: "Total number of injection calls, labeled by whether any link was inserted.",
			},
			[]string{"linked"},
		)

		keywordsGeneratedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "linker_keywords_generated_total",
				Help: "Total number of keyword/URL pairs produced by the generator.",
			},
		)

		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of pages crawled, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		llmRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM completions, labeled by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		)

		llmRateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations before LLM calls.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider"},
		)

		licenseChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "license_checks_total",
				Help: "Total number of product key and token checks, labeled by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		)

		keywordTableEntries = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "linker_keyword_table_entries",
				Help: "Number of entries in the currently loaded keyword table.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveInjection records one injection call that inserted links links.
func ObserveInjection(links int) {
	Init()
	linksInjectedTotal.Add(float64(links))
	injectionsTotal.WithLabelValues(strconv.FormatBool(links > 0)).Inc()
}

// ObserveKeywordsGenerated adds n generated pairs.
func ObserveKeywordsGenerated(n int) {
	Init()
	keywordsGeneratedTotal.Add(float64(n))
}

// ObserveCrawl increments the crawler metrics.
func ObserveCrawl(site string, status string, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	crawlerPagesTotal.WithLabelValues(sanitizedSite, status).Inc()
	if bytesFetched > 0 {
		crawlerBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveLLM counts one completion for provider; err decides the outcome.
func ObserveLLM(provider string, err error) {
	Init()
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	llmRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveLLMRateLimitDelay records time spent waiting for an LLM rate limit token.
func ObserveLLMRateLimitDelay(provider string, d time.Duration) {
	Init()
	llmRateLimitDelaySeconds.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveLicense counts one license operation; ok decides the outcome.
func ObserveLicense(operation string, ok bool) {
	Init()
	outcome := "accepted"
	if !ok {
		outcome = "rejected"
	}
	licenseChecksTotal.WithLabelValues(operation, outcome).Inc()
}

// SetKeywordTableEntries records the size of the loaded keyword table.
func SetKeywordTableEntries(n int) {
	Init()
	keywordTableEntries.Set(float64(n))
}
