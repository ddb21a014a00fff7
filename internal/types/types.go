// Package types provides shared type definitions used across telepath packages.
// This package exists to break import cycles between engine, oracle, and store.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"strings"
)

// =============================================================================
// ANSWERS
// =============================================================================

// Answer is the player's reply to a yes/no question.
type Answer string

const (
	AnswerYes         Answer = "yes"
	AnswerNo          Answer = "no"
	AnswerProbably    Answer = "probably"
	AnswerProbablyNot Answer = "probably_not"
	AnswerDontKnow    Answer = "dont_know"
)

// Valid reports whether a is one of the five recognized answers.
func (a Answer) Valid() bool {
	switch a {
	case AnswerYes, AnswerNo, AnswerProbably, AnswerProbablyNot, AnswerDontKnow:
		return true
	}
	return false
}

// Affirmative reports whether the answer leans yes.
func (a Answer) Affirmative() bool {
	return a == AnswerYes || a == AnswerProbably
}

// Negative reports whether the answer leans no.
func (a Answer) Negative() bool {
	return a == AnswerNo || a == AnswerProbablyNot
}

// ParseAnswer normalizes free-form player input ("y", "Probably not", "idk")
// into an Answer. Returns false when the input matches nothing.
func ParseAnswer(s string) (Answer, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "yeah", "yep":
		return AnswerYes, true
	case "no", "n", "nope":
		return AnswerNo, true
	case "probably", "prob", "i think so":
		return AnswerProbably, true
	case "probably not", "probably_not", "probnot", "i don't think so":
		return AnswerProbablyNot, true
	case "dont know", "don't know", "dont_know", "idk", "unknown", "not sure":
		return AnswerDontKnow, true
	}
	return "", false
}

// =============================================================================
// TRAITS
// =============================================================================

// TraitKey identifies one slot in the closed trait vocabulary.
type TraitKey string

const (
	KeyGender       TraitKey = "gender"
	KeySpecies      TraitKey = "species"
	KeyCategory     TraitKey = "category"
	KeyOriginMedium TraitKey = "origin_medium"
	KeyHasPowers    TraitKey = "has_powers"
	KeyAlignment    TraitKey = "alignment"
	KeyAgeGroup     TraitKey = "age_group"
	KeyFictional    TraitKey = "fictional"
	KeyHairColor    TraitKey = "hair_color"
	KeyOccupation   TraitKey = "occupation"
	KeyEra          TraitKey = "era"
	KeyNationality  TraitKey = "nationality"
)

// AllTraitKeys lists the closed vocabulary in a stable order.
var AllTraitKeys = []TraitKey{
	KeyGender, KeySpecies, KeyCategory, KeyOriginMedium, KeyHasPowers,
	KeyAlignment, KeyAgeGroup, KeyFictional, KeyHairColor, KeyOccupation,
	KeyEra, KeyNationality,
}

// KnownTraitKey reports whether k belongs to the closed vocabulary.
func KnownTraitKey(k TraitKey) bool {
	for _, known := range AllTraitKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Confidence bounds for extracted traits.
const (
	MinTraitConfidence = 0.1
	MaxTraitConfidence = 0.99
)

// ClampConfidence forces c into the [MinTraitConfidence, MaxTraitConfidence] band.
func ClampConfidence(c float64) float64 {
	if c < MinTraitConfidence {
		return MinTraitConfidence
	}
	if c > MaxTraitConfidence {
		return MaxTraitConfidence
	}
	return c
}

// Trait is one confirmed fact about the hidden subject.
// At most one live Trait per key exists in a session; a newer extraction
// for the same key replaces the older one.
type Trait struct {
	Key        TraitKey `json:"key"`
	Value      string   `json:"value"`
	Confidence float64  `json:"confidence"`
	TurnAdded  int      `json:"turn_added"`
}

// BoolValue interprets the trait value as a boolean ("true"/"false").
// The second return is false when the value is not boolean-shaped.
func (t Trait) BoolValue() (bool, bool) {
	switch strings.ToLower(t.Value) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

// =============================================================================
// TURNS AND SUBJECTS
// =============================================================================

// Turn is one question/answer exchange. Turns are append-only history.
type Turn struct {
	Question string `json:"question"`
	Answer   Answer `json:"answer"`
}

// Subject is one entry in the static candidate dataset: a possible answer
// to the game. Subjects are immutable after load.
type Subject struct {
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Fictional  bool              `json:"fictional"`
	Facts      []string          `json:"facts"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attribute returns the cached attribute for key, if present.
func (s Subject) Attribute(key TraitKey) (string, bool) {
	v, ok := s.Attributes[string(key)]
	return v, ok
}

// FactsText joins all facts into one lowercase blob for keyword scans.
func (s Subject) FactsText() string {
	return strings.ToLower(strings.Join(s.Facts, " "))
}

// =============================================================================
// GUESSES
// =============================================================================

// GuessCandidate is a named guess with the confidence it would be
// surfaced at.
type GuessCandidate struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// RejectedGuess records a guess the player confirmed wrong, with the trait
// ledger frozen at rejection time. The snapshot is never updated afterwards.
type RejectedGuess struct {
	Name     string  `json:"name"`
	Turn     int     `json:"turn"`
	Snapshot []Trait `json:"snapshot"`
}

// =============================================================================
// ENGINE OUTPUT
// =============================================================================

// TurnOutput is what the engine hands the presentation layer after each
// player answer.
type TurnOutput struct {
	// Question is the next question to ask, empty when IsGuessPhase is set.
	Question string `json:"question,omitempty"`

	// Traits is the live trait ledger, most recent last.
	Traits []Trait `json:"traits"`

	// Guesses are validated, rejection-filtered candidates ranked by confidence.
	Guesses []GuessCandidate `json:"guesses"`

	// IsGuessPhase is set when the engine wants a formal guess instead of
	// another question.
	IsGuessPhase bool `json:"is_guess_phase"`

	// OutOfBase is set when the candidate pool is exhausted and any guesses
	// come from the oracle alone, at reduced confidence.
	OutOfBase bool `json:"out_of_base"`
}
