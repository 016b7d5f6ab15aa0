// Package chunk stores commentary chunks in the Redis vector index.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/courtside-ai/courtside/internal/db"
	domchunk "github.com/courtside-ai/courtside/internal/domain/chunk"
)

// store is the consumer interface for chunk operations (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig holds index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements the chunk index over a db store.
type Repo struct {
	store     store
	keyPrefix string
	indexName string
	hnsw      HNSWConfig
}

// New creates a chunk repository.
func New(s store, keyPrefix, indexName string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, indexName: indexName}
}

// WithHNSW overrides HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

func (r *Repo) key(id string) string {
	return r.keyPrefix + "chunk:" + id
}

// EnsureIndex creates the FT index for the given vector dimensionality if absent.
func (r *Repo) EnsureIndex(ctx context.Context, dimensions int) error {
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     r.indexName,
		Prefixes: []string{r.keyPrefix + "chunk:"},
		Fields: []db.IndexField{
			{Name: fieldText, Type: db.IndexFieldText},
			{Name: fieldSource, Type: db.IndexFieldTag},
			{Name: fieldUpvotes, Type: db.IndexFieldNumeric},
			{Name: fieldOfficial, Type: db.IndexFieldTag},
			{Name: fieldQuality, Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// ResetIndex drops the FT index, keeping the documents.
func (r *Repo) ResetIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}

// Upsert stores a batch of chunks in a single pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, chunks []domchunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	for i := range chunks {
		items[i] = db.HashSetItem{
			Key:    r.key(chunks[i].ID()),
			Fields: buildHashFields(&chunks[i]),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

// SearchKNN returns the n nearest chunks by cosine similarity, most similar
// first. Result length may be shorter than n when the index holds fewer
// documents; that is not an error.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, n int) ([]domchunk.Scored, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       vector,
		K:            n,
		ReturnFields: []string{fieldText, fieldSource, fieldUpvotes, fieldOfficial, fieldQuality},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	scored := make([]domchunk.Scored, 0, len(sr.Entries))
	for i, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, r.keyPrefix+"chunk:")
		scored = append(scored, domchunk.Scored{
			Chunk:      parseHashFields(id, entry.Fields),
			Similarity: entry.Score,
			Rank:       i,
		})
	}
	return scored, nil
}
