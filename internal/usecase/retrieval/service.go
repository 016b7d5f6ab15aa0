// Package retrieval ranks commentary chunks by a composite of similarity,
// lexical, and authority signals.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/courtside-ai/courtside/internal/domain"
	"github.com/courtside-ai/courtside/internal/domain/chunk"
	"github.com/courtside-ai/courtside/internal/metrics"
)

// Service re-ranks an over-fetched nearest-neighbor batch. It holds only
// immutable configuration and is safe for concurrent use.
type Service struct {
	index  Index
	embed  domain.Embedder
	params Params
}

// New creates a retrieval service.
func New(index Index, embed domain.Embedder, params Params) *Service {
	return &Service{index: index, embed: embed, params: params}
}

// DefaultK returns the configured default result count.
func (s *Service) DefaultK() int { return s.params.DefaultK }

// Search embeds the query text and ranks against the index. Embedding
// provider failures propagate unmasked.
func (s *Service) Search(ctx context.Context, queryText string, k int) ([]chunk.Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidTopK, k)
	}

	embResult, err := s.embed.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	return s.Rank(ctx, embResult.Embedding, queryText, k)
}

// Rank over-fetches nearest neighbors for the given query embedding, scores
// the batch with the lexical and authority signals, and returns the top k by
// composite score. Ties are broken by the original similarity rank so output
// is deterministic. An index holding fewer than k chunks yields a short
// result, not an error.
func (s *Service) Rank(
	ctx context.Context, queryEmbedding []float32, queryText string, k int,
) ([]chunk.Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidTopK, k)
	}
	if len(queryEmbedding) != s.params.Dimensions {
		return nil, fmt.Errorf("%w: want %d dimensions, got %d",
			domain.ErrInvalidEmbedding, s.params.Dimensions, len(queryEmbedding))
	}

	start := time.Now()

	// Over-fetch so lexical and authority signals can promote chunks that
	// ranked outside the naive top-k on similarity alone.
	n := k * s.params.OverfetchFactor
	if n < s.params.OverfetchFloor {
		n = s.params.OverfetchFloor
	}

	batch, err := s.index.SearchKNN(ctx, queryEmbedding, n)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	metrics.RetrievalCandidates.Observe(float64(len(batch)))
	if len(batch) == 0 {
		return nil, nil
	}

	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Chunk.Text()
	}
	lexical := lexicalScores(queryText, texts)
	authority := authorityBoosts(batch)

	w := s.params.Weights
	for i := range batch {
		batch[i].Lexical = lexical[i]
		batch[i].Authority = authority[i]
		// All signals are brought onto [0,1] before weighting.
		batch[i].Composite = w.Similarity*batch[i].Similarity +
			w.Lexical*(lexical[i]/lexicalScale) +
			w.Authority*authority[i]
	}

	// Stable sort keeps the original similarity ordering for exact ties.
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Composite > batch[j].Composite
	})

	if len(batch) > k {
		batch = batch[:k]
	}

	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	return batch, nil
}
