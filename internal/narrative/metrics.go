package narrative

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generatorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontline",
			Subsystem: "narrative",
			Name:      "generator_requests_total",
			Help:      "Total number of requests to the narrative generator.",
		},
		[]string{"backend", "status"},
	)
	generatorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "frontline",
			Subsystem: "narrative",
			Name:      "generator_request_duration_seconds",
			Help:      "Histogram of narrative generator request durations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
	generatorTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "frontline",
			Subsystem: "narrative",
			Name:      "generator_tokens",
			Help:      "Histogram of tokens used per generator request.",
			Buckets:   prometheus.LinearBuckets(250, 250, 12),
		},
		[]string{"backend"},
	)
	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontline",
			Subsystem: "narrative",
			Name:      "fallbacks_total",
			Help:      "Total number of canned passages served instead of generated text.",
		},
		[]string{"reason"},
	)
)

// observe records one finished generator request
func observe(backend string, seconds float64, tokens int, err error) {
	if err != nil {
		generatorRequests.WithLabelValues(backend, "error").Inc()
		return
	}
	generatorRequests.WithLabelValues(backend, "success").Inc()
	generatorDuration.WithLabelValues(backend).Observe(seconds)
	if tokens > 0 {
		generatorTokens.WithLabelValues(backend).Observe(float64(tokens))
	}
}
