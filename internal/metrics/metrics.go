// Package metrics holds Prometheus collectors and the HTTP middleware.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Core engine Prometheus metrics.
var (
	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "questions_total",
			Help:      "Total questions processed, by classified intent",
		},
		[]string{"intent"},
	)

	ReasoningIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "courtside",
			Name:      "reasoning_iterations",
			Help:      "Reasoning loop iterations per question",
			Buckets:   []float64{1, 2, 3, 4, 5, 6},
		},
	)

	StagnationTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "reasoning_stagnation_total",
			Help:      "Reasoning loops cut short by stagnation detection",
		},
	)

	FallbackSynthesisTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "fallback_synthesis_total",
			Help:      "Questions answered via fallback synthesis instead of a model final answer",
		},
	)

	ToolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "tool_invocations_total",
			Help:      "Tool invocations by tool name and outcome",
		},
		[]string{"tool", "status"},
	)

	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "courtside",
			Name:      "tool_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"tool"},
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "courtside",
			Name:      "retrieval_duration_seconds",
			Help:      "Composite retrieval duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	RetrievalCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "courtside",
			Name:      "retrieval_candidates",
			Help:      "Over-fetched candidate batch size per retrieval call",
			Buckets:   []float64{5, 10, 15, 30, 60, 100},
		},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "generation_requests_total",
			Help:      "Text-generation requests by status",
		},
		[]string{"model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "courtside",
			Name:      "generation_request_duration_seconds",
			Help:      "Text-generation request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	GenerationRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "generation_retries_total",
			Help:      "Rate-limit retries against the text-generation provider",
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "embedding_requests_total",
			Help:      "Embedding requests by status",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "courtside",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"model"},
	)
)

var registered bool

// Register registers all engine metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		QuestionsTotal,
		ReasoningIterations,
		StagnationTotal,
		FallbackSynthesisTotal,
		ToolInvocationsTotal,
		ToolDuration,
		RetrievalDuration,
		RetrievalCandidates,
		GenerationRequestsTotal,
		GenerationRequestDuration,
		GenerationRetriesTotal,
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
	)
	registered = true
}
