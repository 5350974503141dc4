package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiservice_requests_total",
			Help: "Total number of AI operations processed",
		},
		[]string{"operation", "provider", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiservice_request_duration_seconds",
			Help:    "AI operation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation", "provider"},
	)

	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiservice_retries_total",
			Help: "Total number of retry attempts against a provider",
		},
		[]string{"provider"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiservice_rate_limit_hits_total",
			Help: "Total number of requests denied by the local rate limiter",
		},
		[]string{"operation"},
	)

	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiservice_fallbacks_total",
			Help: "Total number of requests served by the fallback provider or static fallback content",
		},
		[]string{"operation", "kind"},
	)

	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiservice_tokens_total",
			Help: "Total number of tokens processed",
		},
		[]string{"operation", "provider", "type"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiservice_cache_hits_total",
			Help: "Total number of generation cache hits",
		},
		[]string{"operation"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiservice_cache_misses_total",
			Help: "Total number of generation cache misses",
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aiservice_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiservice_provider_errors_total",
			Help: "Total number of provider errors by code",
		},
		[]string{"provider", "code"},
	)
)

func RecordRequest(operation, provider, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(operation, provider, status).Inc()
	RequestDuration.WithLabelValues(operation, provider).Observe(durationSec)
}

func RecordRetry(provider string) {
	RetriesTotal.WithLabelValues(provider).Inc()
}

func RecordRateLimitHit(operation string) {
	RateLimitHits.WithLabelValues(operation).Inc()
}

func RecordFallback(operation, kind string) {
	FallbacksTotal.WithLabelValues(operation, kind).Inc()
}

func RecordTokens(operation, provider string, promptTokens, completionTokens int) {
	TokensTotal.WithLabelValues(operation, provider, "prompt").Add(float64(promptTokens))
	TokensTotal.WithLabelValues(operation, provider, "completion").Add(float64(completionTokens))
}

func RecordCacheHit(operation string) {
	CacheHits.WithLabelValues(operation).Inc()
}

func RecordCacheMiss(operation string) {
	CacheMisses.WithLabelValues(operation).Inc()
}

func RecordProviderError(provider, code string) {
	ProviderErrors.WithLabelValues(provider, code).Inc()
}

func SetCircuitBreakerState(provider string, state int) {
	CircuitBreakerState.WithLabelValues(provider).Set(float64(state))
}
