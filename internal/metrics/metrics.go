// Package metrics exposes prometheus instrumentation for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SummariesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadlens_summaries_total",
		Help: "Summaries served, by source (llm or cache).",
	}, []string{"source"})

	ChatTurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadlens_chat_turns_total",
		Help: "Chat turns processed.",
	})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadlens_llm_requests_total",
		Help: "LLM provider calls, by provider and outcome.",
	}, []string{"provider", "outcome"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadlens_llm_request_duration_seconds",
		Help:    "LLM provider call latency.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"provider"})

	CacheOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadlens_cache_ops_total",
		Help: "Summary cache lookups, by layer and result.",
	}, []string{"layer", "result"})
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
