// Package metrics provides Prometheus metrics for ogcard.
package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ogcard"

var (
	// Metrics are nil until Init runs, so adapters can record unconditionally in tests.
	httpRequestsTotal   atomic.Pointer[prometheus.CounterVec]
	httpRequestDuration atomic.Pointer[prometheus.HistogramVec]
	githubCallsTotal    atomic.Pointer[prometheus.CounterVec]
	githubRateRemaining atomic.Pointer[prometheus.GaugeVec]
	uploadsTotal        atomic.Pointer[prometheus.CounterVec]
	resolverHitsTotal   atomic.Pointer[prometheus.CounterVec]
)

// Init creates all metrics and registers them with reg. Call once at startup.
func Init(reg prometheus.Registerer) error {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP API requests.",
		},
		[]string{"method", "path", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP API request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	ghCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "github",
			Name:      "calls_total",
			Help:      "GitHub REST calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	rateRemaining := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "github",
			Name:      "rate_remaining",
			Help:      "Last observed remaining GitHub quota per category.",
		},
		[]string{"category"},
	)
	uploads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Asset set uploads by outcome.",
		},
		[]string{"outcome"},
	)
	resolverHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ens",
			Name:      "resolver_hits_total",
			Help:      "Resolver lookups answered, by strategy.",
		},
		[]string{"strategy"},
	)

	for name, c := range map[string]prometheus.Collector{
		"httpRequestsTotal":   requests,
		"httpRequestDuration": duration,
		"githubCallsTotal":    ghCalls,
		"githubRateRemaining": rateRemaining,
		"uploadsTotal":        uploads,
		"resolverHitsTotal":   resolverHits,
	} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("failed to register %s: %w", name, err)
		}
	}

	httpRequestsTotal.Store(requests)
	httpRequestDuration.Store(duration)
	githubCallsTotal.Store(ghCalls)
	githubRateRemaining.Store(rateRemaining)
	uploadsTotal.Store(uploads)
	resolverHitsTotal.Store(resolverHits)

	return nil
}

// RecordHTTPRequest counts an API request and observes its latency.
// path should be the route pattern, not the raw URL.
func RecordHTTPRequest(method, path, status string, seconds float64) {
	if c := httpRequestsTotal.Load(); c != nil {
		c.WithLabelValues(method, path, status).Inc()
	}
	if h := httpRequestDuration.Load(); h != nil {
		h.WithLabelValues(method, path, status).Observe(seconds)
	}
}

// RecordGitHubCall counts a GitHub call. outcome is "ok" or a short error class.
func RecordGitHubCall(operation, outcome string) {
	if c := githubCallsTotal.Load(); c != nil {
		c.WithLabelValues(operation, outcome).Inc()
	}
}

// SetRateRemaining records the last seen remaining quota of a category.
func SetRateRemaining(category string, remaining int) {
	if g := githubRateRemaining.Load(); g != nil {
		g.WithLabelValues(category).Set(float64(remaining))
	}
}

// RecordUpload counts an upload attempt by outcome.
func RecordUpload(outcome string) {
	if c := uploadsTotal.Load(); c != nil {
		c.WithLabelValues(outcome).Inc()
	}
}

// RecordResolverHit counts a resolver lookup answered by strategy.
func RecordResolverHit(strategy string) {
	if c := resolverHitsTotal.Load(); c != nil {
		c.WithLabelValues(strategy).Inc()
	}
}

// Handler returns the /metrics handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
