package engine

import (
	"telepath/internal/logging"
	"telepath/internal/rules"
	"telepath/internal/types"
)

// =============================================================================
// KNOWLEDGE FILTER
// =============================================================================

// FilterResult is one projection of the candidate store through the ledger.
type FilterResult struct {
	// Subjects is the surviving candidate subset, in store order.
	Subjects []types.Subject

	// Relaxed is set when the exact conjunctive filter emptied the pool and
	// the most recent trait had to be dropped to recover candidates. Guesses
	// surfaced from a relaxed pool carry a halved confidence.
	Relaxed bool

	// DroppedKey names the trait dropped during relaxation, if any.
	DroppedKey types.TraitKey
}

// Empty reports whether even relaxation produced no candidates.
func (f FilterResult) Empty() bool { return len(f.Subjects) == 0 }

// Filter projects the store through the live traits. Every subject must
// satisfy every trait (conjunctive, no partial credit). When the exact pass
// yields nothing and at least one trait is live, the single most recently
// added trait is dropped and the filter re-runs once; the most recent
// extraction is the likeliest error. The pool is recomputed from the full
// store every call; no filtering state survives a ledger change.
func Filter(store []types.Subject, traits []types.Trait, tables *rules.Tables) FilterResult {
	exact := filterExact(store, traits, tables)
	if len(exact) > 0 || len(traits) == 0 {
		logging.Filter("Exact filter: %d traits -> %d/%d candidates", len(traits), len(exact), len(store))
		return FilterResult{Subjects: exact}
	}

	dropped := mostRecentTrait(traits)
	relaxedTraits := make([]types.Trait, 0, len(traits)-1)
	for _, t := range traits {
		if t.Key != dropped.Key {
			relaxedTraits = append(relaxedTraits, t)
		}
	}
	relaxed := filterExact(store, relaxedTraits, tables)
	logging.Filter("Relaxed filter: dropped %s=%q -> %d/%d candidates",
		dropped.Key, dropped.Value, len(relaxed), len(store))
	return FilterResult{Subjects: relaxed, Relaxed: true, DroppedKey: dropped.Key}
}

func filterExact(store []types.Subject, traits []types.Trait, tables *rules.Tables) []types.Subject {
	var out []types.Subject
	for _, s := range store {
		ok := true
		for _, t := range traits {
			if !matchTrait(s, t, tables) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, s)
		}
	}
	return out
}

// mostRecentTrait picks the trait to drop during relaxation: highest
// TurnAdded, ties broken by lowest confidence.
func mostRecentTrait(traits []types.Trait) types.Trait {
	best := traits[0]
	for _, t := range traits[1:] {
		if t.TurnAdded > best.TurnAdded ||
			(t.TurnAdded == best.TurnAdded && t.Confidence < best.Confidence) {
			best = t
		}
	}
	return best
}
