// Package engine implements the inference core of the guessing game:
// knowledge-base filtering, trait extraction and validation, topic
// deduplication, entropy-driven question selection, and guess-compatibility
// checking. The oracle, renderer, and presentation layer are external
// collaborators reached only through interfaces.
package engine

import (
	"math/rand"
	"sort"
	"strings"

	"telepath/internal/logging"
	"telepath/internal/lookup"
	"telepath/internal/types"

	"github.com/google/uuid"
)

// Session owns all mutable state for one game: the trait ledger, the turn
// history, rejected guesses, ambiguous questions, and the lookup cache.
// It is single-owner, single-writer; the engine mutates it only between
// oracle round-trips. A session lives in memory and dies on reset.
type Session struct {
	id         string
	renderSeed int64

	traits    map[types.TraitKey]types.Trait
	turns     []types.Turn
	rejected  []types.RejectedGuess
	ambiguous []string

	lookupCache map[string]lookup.Result

	outOfBase bool
}

// NewSession creates an empty session with a fresh render seed.
func NewSession() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Reset clears the ledger, history, rejected guesses, ambiguous questions,
// and the lookup cache, and draws a fresh render seed. Cache lifetime is
// tied to session lifetime by design.
func (s *Session) Reset() {
	s.id = uuid.NewString()
	s.renderSeed = rand.Int63()
	s.traits = make(map[types.TraitKey]types.Trait)
	s.turns = nil
	s.rejected = nil
	s.ambiguous = nil
	s.lookupCache = make(map[string]lookup.Result)
	s.outOfBase = false
	logging.Session("Session reset (id %s)", s.id)
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// RenderSeed returns the opaque seed passed through to the renderer.
func (s *Session) RenderSeed() int64 { return s.renderSeed }

// =============================================================================
// TRAIT LEDGER
// =============================================================================

// AddTrait records a confirmed trait. A trait for an existing key replaces
// the old one; the ledger never holds two live traits for the same key.
func (s *Session) AddTrait(t types.Trait) {
	if prev, ok := s.traits[t.Key]; ok {
		logging.Session("Trait %s replaced: %q -> %q", t.Key, prev.Value, t.Value)
	}
	s.traits[t.Key] = t
}

// Trait returns the live trait for key, if any.
func (s *Session) Trait(key types.TraitKey) (types.Trait, bool) {
	t, ok := s.traits[key]
	return t, ok
}

// Traits returns the live ledger ordered by the turn each trait was added.
func (s *Session) Traits() []types.Trait {
	out := make([]types.Trait, 0, len(s.traits))
	for _, t := range s.traits {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TurnAdded != out[j].TurnAdded {
			return out[i].TurnAdded < out[j].TurnAdded
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// TraitKeys returns the confirmed keys in ledger order.
func (s *Session) TraitKeys() []types.TraitKey {
	traits := s.Traits()
	keys := make([]types.TraitKey, len(traits))
	for i, t := range traits {
		keys[i] = t.Key
	}
	return keys
}

// =============================================================================
// TURN HISTORY
// =============================================================================

// RecordTurn appends one exchange to the append-only history.
func (s *Session) RecordTurn(question string, answer types.Answer) {
	s.turns = append(s.turns, types.Turn{Question: question, Answer: answer})
}

// Turns returns the full history, oldest first.
func (s *Session) Turns() []types.Turn {
	out := make([]types.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// TurnCount returns the number of completed turns.
func (s *Session) TurnCount() int { return len(s.turns) }

// AskedQuestions returns every question asked so far.
func (s *Session) AskedQuestions() []string {
	out := make([]string, len(s.turns))
	for i, t := range s.turns {
		out[i] = t.Question
	}
	return out
}

// =============================================================================
// REJECTED GUESSES AND AMBIGUOUS QUESTIONS
// =============================================================================

// RejectGuess records a guess the player confirmed wrong, freezing a copy
// of the current ledger. The snapshot is never retroactively updated.
func (s *Session) RejectGuess(name string) {
	snapshot := s.Traits()
	frozen := make([]types.Trait, len(snapshot))
	copy(frozen, snapshot)
	s.rejected = append(s.rejected, types.RejectedGuess{
		Name:     name,
		Turn:     len(s.turns),
		Snapshot: frozen,
	})
	logging.Session("Guess rejected: %s (turn %d, %d traits frozen)", name, len(s.turns), len(frozen))
}

// RejectedGuesses returns the rejection history.
func (s *Session) RejectedGuesses() []types.RejectedGuess {
	out := make([]types.RejectedGuess, len(s.rejected))
	copy(out, s.rejected)
	return out
}

// RejectedNames returns just the rejected names.
func (s *Session) RejectedNames() []string {
	out := make([]string, len(s.rejected))
	for i, r := range s.rejected {
		out[i] = r.Name
	}
	return out
}

// IsRejected reports whether name was already rejected, case-insensitively.
func (s *Session) IsRejected(name string) bool {
	for _, r := range s.rejected {
		if strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

// RecordAmbiguous records a question answered "don't know".
func (s *Session) RecordAmbiguous(question string) {
	s.ambiguous = append(s.ambiguous, question)
}

// AmbiguousQuestions returns the questions the player could not answer.
func (s *Session) AmbiguousQuestions() []string {
	out := make([]string, len(s.ambiguous))
	copy(out, s.ambiguous)
	return out
}

// =============================================================================
// OUT-OF-BASE STATE AND LOOKUP CACHE
// =============================================================================

// SetOutOfBase marks the session as past the knowledge base.
func (s *Session) SetOutOfBase(v bool) { s.outOfBase = v }

// OutOfBase reports whether the candidate pool has been exhausted.
func (s *Session) OutOfBase() bool { return s.outOfBase }

// CachedLookup returns a previously stored lookup result for name.
func (s *Session) CachedLookup(name string) (lookup.Result, bool) {
	r, ok := s.lookupCache[strings.ToLower(name)]
	return r, ok
}

// StoreLookup caches a lookup result for the rest of the session.
func (s *Session) StoreLookup(name string, r lookup.Result) {
	s.lookupCache[strings.ToLower(name)] = r
}
