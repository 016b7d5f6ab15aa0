package retrieval

import "github.com/courtside-ai/courtside/internal/domain/chunk"

// Authority boost composition. The three shares sum to 1.0 so the boost
// stays within [0,1].
const (
	engagementShare = 0.5
	officialBonus   = 0.2
	qualityShare    = 0.3
)

// authorityBoosts computes a bounded [0,1] boost per candidate from
// engagement magnitude (min-max normalized within this batch), the official
// flag, and the precomputed quality score. Pure function of the candidates
// plus batch-wide normalization bounds.
func authorityBoosts(batch []chunk.Scored) []float64 {
	boosts := make([]float64, len(batch))
	if len(batch) == 0 {
		return boosts
	}

	minVotes, maxVotes := batch[0].Chunk.Upvotes(), batch[0].Chunk.Upvotes()
	for i := range batch {
		v := batch[i].Chunk.Upvotes()
		if v < minVotes {
			minVotes = v
		}
		if v > maxVotes {
			maxVotes = v
		}
	}

	for i := range batch {
		c := &batch[i].Chunk

		var engagement float64
		if maxVotes > minVotes {
			engagement = float64(c.Upvotes()-minVotes) / float64(maxVotes-minVotes)
		}

		boost := engagementShare * engagement
		if c.Official() {
			boost += officialBonus
		}
		boost += qualityShare * c.Quality()
		boosts[i] = boost
	}
	return boosts
}
