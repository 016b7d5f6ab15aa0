package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/courtside-ai/courtside/internal/domain"
	"github.com/courtside-ai/courtside/internal/domain/chunk"
)

// --- Mocks ---

type mockIndex struct {
	batch  []chunk.Scored
	err    error
	lastN  int
	called bool
}

func (m *mockIndex) SearchKNN(_ context.Context, _ []float32, n int) ([]chunk.Scored, error) {
	m.called = true
	m.lastN = n
	if m.err != nil {
		return nil, m.err
	}
	out := make([]chunk.Scored, len(m.batch))
	copy(out, m.batch)
	return out, nil
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func testParams() Params {
	return Params{
		Dimensions:      4,
		DefaultK:        5,
		OverfetchFactor: 3,
		OverfetchFloor:  15,
		Weights:         Weights{Similarity: 0.70, Lexical: 0.15, Authority: 0.15},
	}
}

func knnHit(id, text string, sim float64, rank, upvotes int, official bool, quality float64) chunk.Scored {
	return chunk.Scored{
		Chunk:      chunk.Reconstruct(id, text, "reddit", nil, upvotes, official, quality),
		Similarity: sim,
		Rank:       rank,
	}
}

func testVec() []float32 { return []float32{0.1, 0.2, 0.3, 0.4} }

// --- Tests ---

func TestSearch_ReturnsTopK(t *testing.T) {
	idx := &mockIndex{batch: []chunk.Scored{
		knnHit("a", "great defense tonight", 0.95, 0, 10, false, 0.5),
		knnHit("b", "great offense tonight", 0.90, 1, 20, false, 0.5),
		knnHit("c", "halftime show review", 0.85, 2, 5, false, 0.5),
	}}
	embed := &mockEmbedder{vec: testVec()}
	svc := New(idx, embed, testParams())

	hits, err := svc.Search(context.Background(), "great defense", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !embed.called {
		t.Error("expected query to be embedded")
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Composite > hits[i-1].Composite {
			t.Errorf("hits not sorted by composite: %g before %g",
				hits[i-1].Composite, hits[i].Composite)
		}
	}
}

func TestSearch_InvalidTopK(t *testing.T) {
	svc := New(&mockIndex{}, &mockEmbedder{vec: testVec()}, testParams())

	for _, k := range []int{0, -3} {
		_, err := svc.Search(context.Background(), "query", k)
		if !errors.Is(err, domain.ErrInvalidTopK) {
			t.Errorf("k=%d: expected ErrInvalidTopK, got %v", k, err)
		}
	}
}

func TestSearch_EmbedErrorPropagates(t *testing.T) {
	provErr := errors.New("provider down")
	svc := New(&mockIndex{}, &mockEmbedder{err: provErr}, testParams())

	_, err := svc.Search(context.Background(), "query", 3)
	if !errors.Is(err, provErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestRank_DimensionMismatch(t *testing.T) {
	svc := New(&mockIndex{}, &mockEmbedder{}, testParams())

	_, err := svc.Rank(context.Background(), []float32{0.1, 0.2}, "query", 3)
	if !errors.Is(err, domain.ErrInvalidEmbedding) {
		t.Fatalf("expected ErrInvalidEmbedding, got %v", err)
	}
}

func TestRank_OverfetchFloor(t *testing.T) {
	idx := &mockIndex{}
	svc := New(idx, &mockEmbedder{}, testParams())

	// k*factor below the floor: floor applies.
	if _, err := svc.Rank(context.Background(), testVec(), "q", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.lastN != 15 {
		t.Errorf("overfetch n = %d, want 15", idx.lastN)
	}

	// k*factor above the floor: factor applies.
	if _, err := svc.Rank(context.Background(), testVec(), "q", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.lastN != 30 {
		t.Errorf("overfetch n = %d, want 30", idx.lastN)
	}
}

func TestRank_ShortIndexYieldsShortResult(t *testing.T) {
	idx := &mockIndex{batch: []chunk.Scored{
		knnHit("only", "single commentary chunk", 0.8, 0, 3, false, 0.4),
	}}
	svc := New(idx, &mockEmbedder{}, testParams())

	hits, err := svc.Rank(context.Background(), testVec(), "commentary", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
}

func TestRank_EmptyIndex(t *testing.T) {
	svc := New(&mockIndex{}, &mockEmbedder{}, testParams())

	hits, err := svc.Rank(context.Background(), testVec(), "anything", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestRank_IndexErrorPropagates(t *testing.T) {
	idxErr := errors.New("index offline")
	svc := New(&mockIndex{err: idxErr}, &mockEmbedder{}, testParams())

	_, err := svc.Rank(context.Background(), testVec(), "q", 3)
	if !errors.Is(err, idxErr) {
		t.Fatalf("expected index error, got %v", err)
	}
}

func TestRank_SignalsPromoteBeyondSimilarity(t *testing.T) {
	// "c" trails on similarity but matches the query lexically and carries
	// the strongest authority signals, so it must enter the top 2.
	idx := &mockIndex{batch: []chunk.Scored{
		knnHit("a", "halftime snacks were good", 0.90, 0, 0, false, 0.0),
		knnHit("b", "parking took forever", 0.89, 1, 0, false, 0.0),
		knnHit("c", "clutch corner three sealed the win", 0.80, 2, 100, true, 1.0),
	}}
	svc := New(idx, &mockEmbedder{}, testParams())

	hits, err := svc.Rank(context.Background(), testVec(), "clutch corner three", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Chunk.ID() != "c" {
		t.Errorf("expected promoted chunk first, got %q", hits[0].Chunk.ID())
	}
}

func TestRank_StableTieBreak(t *testing.T) {
	// Identical text and authority: composites tie exactly, so the original
	// similarity order must hold.
	idx := &mockIndex{batch: []chunk.Scored{
		knnHit("first", "same words here", 0.5, 0, 10, false, 0.5),
		knnHit("second", "same words here", 0.5, 1, 10, false, 0.5),
	}}
	svc := New(idx, &mockEmbedder{}, testParams())

	hits, err := svc.Rank(context.Background(), testVec(), "same words", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits[0].Chunk.ID() != "first" || hits[1].Chunk.ID() != "second" {
		t.Errorf("tie-break order broken: got %q, %q", hits[0].Chunk.ID(), hits[1].Chunk.ID())
	}
}

func TestRank_PopulatesSignalFields(t *testing.T) {
	idx := &mockIndex{batch: []chunk.Scored{
		knnHit("a", "clutch playoff performance", 0.9, 0, 50, true, 0.8),
	}}
	svc := New(idx, &mockEmbedder{}, testParams())

	hits, err := svc.Rank(context.Background(), testVec(), "clutch playoff", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hit := hits[0]
	if hit.Lexical <= 0 {
		t.Errorf("lexical = %g, want > 0", hit.Lexical)
	}
	if hit.Authority <= 0 {
		t.Errorf("authority = %g, want > 0", hit.Authority)
	}
	want := 0.70*hit.Similarity + 0.15*(hit.Lexical/lexicalScale) + 0.15*hit.Authority
	if diff := hit.Composite - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("composite = %g, want %g", hit.Composite, want)
	}
}
