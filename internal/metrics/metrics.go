// Package metrics declares the Prometheus collectors exported at /metrics.
//
// The collectors are package-level and registered on the default registry
// by promauto at init, so any package can record into them without wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "artifact_cms"

var (
	// HTTPRequests counts finished requests by method, chi route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	// HTTPDuration records request latency by method and route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AuthAttempts counts register/login/github attempts by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Authentication attempts by method and outcome",
	}, []string{"method", "outcome"})

	// ArtifactEvents counts artifact mutations (created, updated, deleted).
	ArtifactEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "artifact_events_total",
		Help:      "Artifact mutations by event type",
	}, []string{"event"})

	// LikeToggles counts like toggles by resulting state (liked, unliked).
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "like_toggles_total",
		Help:      "Like toggles by resulting state",
	}, []string{"result"})

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by resource",
	}, []string{"resource"})

	// RedisErrors counts Redis failures by operation. The limiter fails open,
	// so this is the only trace a Redis outage leaves besides the logs.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redis_errors_total",
		Help:      "Redis errors by operation",
	}, []string{"operation"})
)

// Outcome labels shared by the auth counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
