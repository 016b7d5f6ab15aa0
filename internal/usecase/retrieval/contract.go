package retrieval

import (
	"context"

	"github.com/courtside-ai/courtside/internal/domain/chunk"
)

// Index is the storage contract for nearest-neighbor search.
type Index interface {
	// SearchKNN returns up to n chunks ordered by descending cosine
	// similarity, with Similarity and Rank populated.
	SearchKNN(ctx context.Context, vector []float32, n int) ([]chunk.Scored, error)
}

// Weights are the composite score weights. Validation happens at
// configuration time; the service trusts them to sum to 1.0.
type Weights struct {
	Similarity float64
	Lexical    float64
	Authority  float64
}

// Params holds ranking tunables.
type Params struct {
	Dimensions      int // expected query embedding dimensionality
	DefaultK        int
	OverfetchFactor int
	OverfetchFloor  int
	Weights         Weights
}
