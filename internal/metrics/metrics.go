package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	// HTTPRequestsTotal counts handled requests by method, route template and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RateLimitedTotal counts requests rejected by the per-IP limiter
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter by route",
		},
		[]string{"route"},
	)
)

// Auth Metrics
var (
	// LoginAttemptsTotal counts login attempts by result (success/invalid/inactive/error)
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)
)

// Cache Metrics
var (
	// CacheRequestsTotal counts cache lookups by cache name and result (hit/miss/error)
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)
)

// Upstream LLM Metrics
var (
	// UpstreamRequestsTotal counts calls to model providers by provider and outcome
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_upstream_requests_total",
			Help: "Model provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// UpstreamRequestDuration tracks model provider latency in seconds
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_upstream_request_duration_seconds",
			Help:    "Model provider call duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// CircuitBreakerState tracks current breaker state per upstream (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)
)

// Seed Metrics
var (
	// SeedRunsTotal counts default-user seed runs by result (created/exists/error)
	SeedRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seed_runs_total",
			Help: "Default user seed runs by result",
		},
		[]string{"result"},
	)
)
