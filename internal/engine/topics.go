package engine

import (
	"telepath/internal/logging"
	"telepath/internal/rules"
	"telepath/internal/types"
)

// =============================================================================
// TOPIC TRACKER
// =============================================================================

// TopicTracker decides whether a candidate question re-treads ground the
// session has already covered. It is stateless; all state it consults lives
// in the session (asked questions, confirmed keys).
type TopicTracker struct {
	tables *rules.Tables
}

// NewTopicTracker creates a tracker over the given rule tables.
func NewTopicTracker(tables *rules.Tables) *TopicTracker {
	return &TopicTracker{tables: tables}
}

// IsRedundant reports whether candidate should be suppressed. Three
// independent tests, any one of which disqualifies it: lexical overlap with
// an asked question, vocabulary overlap with an already-confirmed trait key,
// and realm containment (same realm as an asked question without being
// strictly more specific). Forbidden phrasings are rejected unconditionally.
func (tt *TopicTracker) IsRedundant(candidate string, asked []string, confirmedKeys []types.TraitKey) bool {
	if tt.tables.IsForbidden(candidate) {
		logging.TopicDebug("Rejected (forbidden phrasing): %q", candidate)
		return true
	}

	candWords := tt.tables.ContentWords(candidate)

	for _, q := range asked {
		if tt.lexicalOverlap(candWords, q) {
			logging.TopicDebug("Rejected (lexical overlap with %q): %q", q, candidate)
			return true
		}
	}

	if tt.coversConfirmedKey(candWords, confirmedKeys) {
		logging.TopicDebug("Rejected (settled trait key): %q", candidate)
		return true
	}

	if tt.realmContained(candidate, asked) {
		logging.TopicDebug("Rejected (realm already covered): %q", candidate)
		return true
	}
	return false
}

// lexicalOverlap flags >= 2 shared content words, or a share covering >= 80%
// of either question's content words. Synonyms are already resolved by
// ContentWords.
func (tt *TopicTracker) lexicalOverlap(candWords []string, asked string) bool {
	askedWords := tt.tables.ContentWords(asked)
	if len(candWords) == 0 || len(askedWords) == 0 {
		return false
	}
	askedSet := make(map[string]bool, len(askedWords))
	for _, w := range askedWords {
		askedSet[w] = true
	}
	overlap := 0
	for _, w := range candWords {
		if askedSet[w] {
			overlap++
		}
	}
	if overlap >= 2 {
		return true
	}
	cover := func(n int) bool { return float64(overlap) >= 0.8*float64(n) }
	return overlap > 0 && (cover(len(candWords)) || cover(len(askedWords)))
}

// coversConfirmedKey flags questions whose content words fall inside the
// vocabulary of a trait key that is already settled.
func (tt *TopicTracker) coversConfirmedKey(candWords []string, confirmedKeys []types.TraitKey) bool {
	for _, key := range confirmedKeys {
		vocab := tt.tables.KeyVocabulary[key]
		if len(vocab) == 0 {
			continue
		}
		vocabSet := make(map[string]bool, len(vocab))
		for _, w := range vocab {
			vocabSet[tt.tables.Canonical(w)] = true
		}
		for _, w := range candWords {
			if vocabSet[w] {
				return true
			}
		}
	}
	return false
}

// realmContained flags a candidate that falls in a realm an asked question
// already touched without being strictly more specific. A named value may
// follow a bare realm probe; the reverse is redundant.
func (tt *TopicTracker) realmContained(candidate string, asked []string) bool {
	candRealm, candScore := tt.tables.ClassifyRealm(candidate)
	if candRealm == "" {
		return false
	}
	for _, q := range asked {
		askedRealm, askedScore := tt.tables.ClassifyRealm(q)
		if askedRealm == candRealm && candScore <= askedScore {
			return true
		}
	}
	return false
}
