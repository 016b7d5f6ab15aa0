package chunk

import (
	"encoding/binary"
	"math"
	"strconv"

	domchunk "github.com/courtside-ai/courtside/internal/domain/chunk"
)

// Hash field names for stored chunks.
const (
	fieldText     = "__text"
	fieldVector   = "__vector"
	fieldSource   = "source"
	fieldUpvotes  = "upvotes"
	fieldOfficial = "official"
	fieldQuality  = "quality"
)

// buildHashFields converts a domain Chunk into a flat map[string]string for HSET.
func buildHashFields(c *domchunk.Chunk) map[string]string {
	official := "0"
	if c.Official() {
		official = "1"
	}
	return map[string]string{
		fieldText:     c.Text(),
		fieldVector:   vectorToBytes(c.Vector()),
		fieldSource:   c.Source(),
		fieldUpvotes:  strconv.Itoa(c.Upvotes()),
		fieldOfficial: official,
		fieldQuality:  strconv.FormatFloat(c.Quality(), 'f', -1, 64),
	}
}

// parseHashFields converts a flat hash map back into a domain Chunk.
func parseHashFields(id string, m map[string]string) domchunk.Chunk {
	upvotes, _ := strconv.Atoi(m[fieldUpvotes])
	quality, _ := strconv.ParseFloat(m[fieldQuality], 64)
	return domchunk.Reconstruct(
		id,
		m[fieldText],
		m[fieldSource],
		bytesToVector(m[fieldVector]),
		upvotes,
		m[fieldOfficial] == "1",
		quality,
	)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
