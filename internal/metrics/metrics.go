// Package metrics defines the Prometheus instrumentation for the RAG
// pipeline. Metrics are registered explicitly from the composition root, not
// via init().
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragdex",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	EmbeddingBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ragdex",
			Name:      "embedding_budget_tokens_remaining",
			Help:      "Embedding tokens remaining in the budget window (-1 = unlimited)",
		},
		[]string{"provider", "window"}, // window: "daily" / "monthly"
	)
)

// Chat model metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "llm_requests_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragdex",
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "llm_tokens_total",
			Help:      "Total chat completion tokens consumed",
		},
		[]string{"model", "type"}, // type: "prompt" / "completion"
	)
)

// Pipeline metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "retrieval_requests_total",
			Help:      "Total retrieval calls by technique and gate outcome",
		},
		[]string{"technique", "outcome"}, // outcome: "ok" / "below_threshold"
	)

	AgentRouteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "agent_route_total",
			Help:      "Agent turns by resolved route",
		},
		[]string{"route"},
	)

	WebSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "web_search_total",
			Help:      "Web search calls by status",
		},
		[]string{"status"}, // "success" / "error"
	)

	IngestedChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "ingested_chunks_total",
			Help:      "Total chunks written to the vector store",
		},
	)
)

// Register registers all pipeline metrics with the default registry.
func Register() {
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingCacheTotal,
		EmbeddingBudgetTokensRemaining,
		LLMRequestsTotal,
		LLMRequestDuration,
		LLMTokensTotal,
		RetrievalRequestsTotal,
		AgentRouteTotal,
		WebSearchTotal,
		IngestedChunksTotal,
	)
}
