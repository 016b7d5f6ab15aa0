package domain

import "errors"

var (
	// ErrInvalidEmbedding signals a query embedding with the wrong dimensionality.
	ErrInvalidEmbedding = errors.New("invalid embedding")
	// ErrInvalidTopK signals a non-positive result count request.
	ErrInvalidTopK = errors.New("top-k must be positive")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a text-generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrRateLimited signals a rate limit hit at the generation provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrRetriesExhausted signals that rate-limit retries ran out.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrToolNotFound signals a reference to an unregistered tool.
	ErrToolNotFound = errors.New("tool not found")
	// ErrQueryRejected signals a generated statistics query that failed validation.
	ErrQueryRejected = errors.New("query rejected")
	// ErrSessionNotFound signals a missing conversation session.
	ErrSessionNotFound = errors.New("session not found")
)
