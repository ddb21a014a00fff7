package engine

import (
	"context"
	"strings"

	"telepath/internal/logging"
	"telepath/internal/lookup"
	"telepath/internal/types"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// GUESS VALIDATOR
// =============================================================================

// Resolver performs an external best-effort lookup of a subject name.
// lookup.Client satisfies it; tests substitute their own.
type Resolver interface {
	Lookup(ctx context.Context, name string) (lookup.Result, error)
}

// compatibilityKeys are the trait keys a guess can be vetoed on. Open-ended
// keys (occupation, nationality) are too fuzzy to contradict reliably.
var compatibilityKeys = []types.TraitKey{
	types.KeyGender, types.KeySpecies, types.KeyHasPowers,
	types.KeyAlignment, types.KeyOriginMedium,
}

// Validator screens guesses for logical compatibility with the ledger before
// they reach the player. Unknown names resolve through the external lookup;
// absence of information never vetoes a guess.
type Validator struct {
	resolver      Resolver
	reference     map[string]map[types.TraitKey]string
	maxConcurrent int
}

// NewValidator builds the reference trait table from the candidate store.
// A nil resolver disables external lookups; unknown names pass through.
func NewValidator(store []types.Subject, resolver Resolver, maxConcurrent int) *Validator {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	ref := make(map[string]map[types.TraitKey]string, len(store))
	for _, sub := range store {
		entry := make(map[types.TraitKey]string)
		for _, key := range compatibilityKeys {
			if v, ok := sub.Attribute(key); ok {
				entry[key] = v
			}
		}
		if len(entry) > 0 {
			ref[strings.ToLower(sub.Name)] = entry
		}
	}
	return &Validator{resolver: resolver, reference: ref, maxConcurrent: maxConcurrent}
}

// FilterGuesses drops rejected names and incompatible candidates, preserving
// order. External lookups for unknown names run concurrently but all complete
// before the filtered list is returned; the session cache is only written
// after the goroutines have joined.
func (v *Validator) FilterGuesses(ctx context.Context, sess *Session, guesses []types.GuessCandidate, traits []types.Trait) []types.GuessCandidate {
	var candidates []types.GuessCandidate
	for _, g := range guesses {
		if sess.IsRejected(g.Name) {
			logging.Validate("Dropping already-rejected guess %q", g.Name)
			continue
		}
		candidates = append(candidates, g)
	}
	if len(candidates) == 0 {
		return nil
	}

	v.resolveUnknown(ctx, sess, candidates)

	var out []types.GuessCandidate
	for _, g := range candidates {
		if v.isCompatible(sess, g.Name, traits) {
			out = append(out, g)
		} else {
			logging.Validate("Dropping incompatible guess %q", g.Name)
		}
	}
	return out
}

// IsCompatible checks a single name against the ledger, resolving it
// externally first if needed.
func (v *Validator) IsCompatible(ctx context.Context, sess *Session, name string, traits []types.Trait) bool {
	v.resolveUnknown(ctx, sess, []types.GuessCandidate{{Name: name}})
	return v.isCompatible(sess, name, traits)
}

// resolveUnknown fetches lookup results for names absent from both the
// reference table and the session cache. Lookups are independent and
// side-effect-free, so they fan out under a concurrency cap; failures are
// recorded as not-found so the guess passes through unvetoed.
func (v *Validator) resolveUnknown(ctx context.Context, sess *Session, candidates []types.GuessCandidate) {
	if v.resolver == nil {
		return
	}
	var names []string
	seen := make(map[string]bool)
	for _, g := range candidates {
		key := strings.ToLower(g.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := v.reference[key]; ok {
			continue
		}
		if _, ok := sess.CachedLookup(g.Name); ok {
			continue
		}
		names = append(names, g.Name)
	}
	if len(names) == 0 {
		return
	}

	results := make([]lookup.Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.maxConcurrent)
	for i, name := range names {
		g.Go(func() error {
			res, err := v.resolver.Lookup(gctx, name)
			if err != nil {
				logging.Validate("Lookup failed for %q, allowing guess: %v", name, err)
				res = lookup.Result{Name: name}
			}
			results[i] = res
			return nil
		})
	}
	// Errors are swallowed per-lookup; Wait only joins the goroutines.
	_ = g.Wait()

	// Single-writer session: cache writes happen only after the join.
	for i, name := range names {
		sess.StoreLookup(name, results[i])
	}
}

// isCompatible evaluates contradiction against the reference table or the
// session's cached lookup. No information means no veto.
func (v *Validator) isCompatible(sess *Session, name string, traits []types.Trait) bool {
	ref, ok := v.reference[strings.ToLower(name)]
	if !ok {
		if cached, hit := sess.CachedLookup(name); hit && cached.Found {
			ref = cached.Traits
		}
	}
	if len(ref) == 0 {
		return true
	}
	for _, t := range traits {
		if !isCompatibilityKey(t.Key) {
			continue
		}
		refVal, known := ref[t.Key]
		if !known {
			continue
		}
		if !looseValueMatch(refVal, t.Value) {
			logging.Validate("Guess %q contradicts %s: confirmed %q, reference %q",
				name, t.Key, t.Value, refVal)
			return false
		}
	}
	return true
}

func isCompatibilityKey(k types.TraitKey) bool {
	for _, key := range compatibilityKeys {
		if k == key {
			return true
		}
	}
	return false
}
