// Package chunk holds the commentary chunk aggregate and its scored form.
package chunk

import "fmt"

// MaxTextSize is the maximum chunk text size in bytes.
const MaxTextSize = 32768 // 32KB

// Chunk is one retrievable unit of commentary text (immutable value object).
// Quality is precomputed at ingestion and stored alongside the engagement
// metadata; the ranking layer never mutates a chunk.
type Chunk struct {
	id       string
	text     string
	vector   []float32
	source   string
	upvotes  int
	official bool
	quality  float64
}

// New validates and creates a Chunk.
// Quality must be within [0,1]; upvotes must be non-negative.
func New(
	id, text, source string, vector []float32,
	upvotes int, official bool, quality float64,
) (Chunk, error) {
	if id == "" {
		return Chunk{}, fmt.Errorf("chunk ID is required")
	}
	if text == "" {
		return Chunk{}, fmt.Errorf("text is required")
	}
	if len(text) > MaxTextSize {
		return Chunk{}, fmt.Errorf("text too large (max %d bytes)", MaxTextSize)
	}
	if upvotes < 0 {
		return Chunk{}, fmt.Errorf("upvotes must be non-negative, got %d", upvotes)
	}
	if quality < 0 || quality > 1 {
		return Chunk{}, fmt.Errorf("quality must be within [0,1], got %g", quality)
	}

	return Chunk{
		id: id, text: text, vector: vector, source: source,
		upvotes: upvotes, official: official, quality: quality,
	}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(
	id, text, source string, vector []float32,
	upvotes int, official bool, quality float64,
) Chunk {
	return Chunk{
		id: id, text: text, vector: vector, source: source,
		upvotes: upvotes, official: official, quality: quality,
	}
}

// ID returns the chunk identifier.
func (c *Chunk) ID() string { return c.id }

// Text returns the chunk text.
func (c *Chunk) Text() string { return c.text }

// Vector returns the embedding vector.
func (c *Chunk) Vector() []float32 { return c.vector }

// Source identifies where the chunk was ingested from.
func (c *Chunk) Source() string { return c.source }

// Upvotes returns the engagement count.
func (c *Chunk) Upvotes() int { return c.upvotes }

// Official reports whether the chunk comes from an authoritative source.
func (c *Chunk) Official() bool { return c.official }

// Quality returns the precomputed quality score in [0,1].
func (c *Chunk) Quality() float64 { return c.quality }

// Scored pairs a chunk with its per-signal scores for one retrieval call.
// Instances live only for the duration of that call.
type Scored struct {
	Chunk      Chunk
	Similarity float64 // cosine similarity from the index, [0,1]
	Lexical    float64 // call-scoped lexical score, [0,100]
	Authority  float64 // bounded authority boost, [0,1]
	Composite  float64 // weighted combination of the three signals
	Rank       int     // position in the original similarity ordering
}
