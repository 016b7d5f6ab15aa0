package health

import "context"

// VectorPinger checks commentary store availability.
type VectorPinger interface {
	Ping(ctx context.Context) error
}

// StatsPinger checks statistics database availability.
type StatsPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
