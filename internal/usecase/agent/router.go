package agent

import (
	"strings"

	"github.com/courtside-ai/courtside/internal/domain/intent"
)

// The router is a three-tier, priority-ordered heuristic over normalized
// question text. Pure string matching, no model call: it gates whether
// expensive tool calls happen at all. It never fails; an unmatched question
// resolves to the statistical default.

// Tier 1: strong unstructured-intent phrasings. A match overrides every
// other signal.
var fanOpinionPhrases = []string{
	"what do fans think",
	"what do people think",
	"what do fans say",
	"what are fans saying",
	"what are people saying",
	"fan opinion",
	"fans opinion",
	"crowd opinion",
	"according to fans",
	"what does reddit think",
}

// Tier 2: biographical phrasings that need numbers and narrative.
var biographicalPhrases = []string{
	"who is",
	"who was",
	"tell me about",
	"what do you know about",
}

// Tier 3 signal vocabularies. Disjoint by construction.
var opinionSignals = map[string]struct{}{
	"why": {}, "how": {}, "opinion": {}, "opinions": {}, "think": {}, "thinks": {},
	"debate": {}, "debated": {}, "discussion": {}, "explain": {}, "feel": {},
	"style": {}, "strategy": {}, "approach": {}, "overrated": {}, "underrated": {},
	"controversial": {}, "clutch": {}, "chemistry": {},
}

var statisticalSignals = map[string]struct{}{
	"top": {}, "most": {}, "highest": {}, "lowest": {}, "best": {}, "worst": {},
	"average": {}, "total": {}, "many": {}, "count": {}, "leader": {}, "leaders": {},
	"rank": {}, "ranking": {}, "record": {}, "points": {}, "rebounds": {}, "assists": {},
	"steals": {}, "blocks": {}, "turnovers": {}, "minutes": {}, "percentage": {},
	"efficiency": {}, "scored": {}, "scoring": {}, "stats": {}, "statistics": {},
}

// classifier is one tier predicate; it returns false when the tier does not
// decide the question.
type classifier func(normalized string, tokens []string) (intent.Intent, bool)

var tiers = []classifier{matchFanOpinion, matchBiographical, matchSignalCounts}

// Classify resolves a question into an intent. Idempotent: equal inputs
// always yield equal intents.
func Classify(question string) intent.Intent {
	normalized := strings.ToLower(strings.TrimSpace(question))
	tokens := tokenizeQuestion(normalized)

	for _, tier := range tiers {
		if it, ok := tier(normalized, tokens); ok {
			return it
		}
	}
	// Unreachable: the last tier always decides.
	return intent.Structured
}

func matchFanOpinion(normalized string, _ []string) (intent.Intent, bool) {
	for _, phrase := range fanOpinionPhrases {
		if strings.Contains(normalized, phrase) {
			return intent.Unstructured, true
		}
	}
	return "", false
}

func matchBiographical(normalized string, _ []string) (intent.Intent, bool) {
	for _, phrase := range biographicalPhrases {
		if strings.Contains(normalized, phrase) {
			return intent.Both, true
		}
	}
	return "", false
}

// matchSignalCounts always decides: statistical intent is the default
// because most domain questions are numeric.
func matchSignalCounts(_ string, tokens []string) (intent.Intent, bool) {
	var opinion, statistical int
	for _, tok := range tokens {
		if _, ok := opinionSignals[tok]; ok {
			opinion++
		}
		if _, ok := statisticalSignals[tok]; ok {
			statistical++
		}
	}

	switch {
	case opinion > 0 && statistical > 0:
		// The question asks for a number and an explanation.
		return intent.Both, true
	case opinion > 0:
		return intent.Unstructured, true
	default:
		return intent.Structured, true
	}
}

func tokenizeQuestion(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
