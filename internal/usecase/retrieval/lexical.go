package retrieval

import (
	"math"
	"strings"
	"unicode"
)

// lexicalScale is the upper bound of the lexical score range.
const lexicalScale = 100.0

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"do": {}, "does": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {},
	"it": {}, "of": {}, "on": {}, "or": {}, "the": {}, "this": {}, "to": {}, "was": {},
	"were": {}, "what": {}, "who": {}, "with": {},
}

// lexicalScores computes a TF-IDF relevance score per candidate text.
// The candidate set is the document-frequency universe for this call, so
// scores are call-scoped and not comparable across calls. The batch maximum
// is scaled to lexicalScale; scores are deterministic and independent of
// candidate order.
func lexicalScores(query string, texts []string) []float64 {
	scores := make([]float64, len(texts))
	if len(texts) == 0 {
		return scores
	}

	queryTokens := filterStopwords(tokenize(query))
	if len(queryTokens) == 0 {
		return scores
	}

	docFreqs := make([]map[string]int, len(texts))
	for i, text := range texts {
		tokens := tokenize(text)
		freq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		docFreqs[i] = freq
	}

	// Document frequency per query term over this batch only.
	df := make(map[string]int, len(queryTokens))
	for _, term := range queryTokens {
		for _, freq := range docFreqs {
			if freq[term] > 0 {
				df[term]++
			}
		}
	}

	n := float64(len(texts))
	var maxScore float64
	for i, freq := range docFreqs {
		docLen := 0
		for _, c := range freq {
			docLen += c
		}
		if docLen == 0 {
			continue
		}

		var score float64
		for _, term := range queryTokens {
			tf := float64(freq[term]) / float64(docLen)
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + n/float64(1+df[term]))
			score += tf * idf
		}
		scores[i] = score
		if score > maxScore {
			maxScore = score
		}
	}

	if maxScore == 0 {
		return scores
	}
	for i := range scores {
		scores[i] = scores[i] / maxScore * lexicalScale
	}
	return scores
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

func filterStopwords(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, isStop := lexicalStopwords[tok]; isStop {
			continue
		}
		result = append(result, tok)
	}
	return result
}
