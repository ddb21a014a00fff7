package engine

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"telepath/internal/config"
	"telepath/internal/logging"
	"telepath/internal/rules"
	"telepath/internal/types"
)

// =============================================================================
// QUESTION SELECTOR
// =============================================================================

// Selection is the selector's verdict for one turn: either the next question
// (with guesses riding along) or a formal guess phase.
type Selection struct {
	Question     string
	Guesses      []types.GuessCandidate
	IsGuessPhase bool
}

// Selector chooses the next question or triggers a guess. Attempt order:
// logical-uniqueness shortcut, entropy discriminator over a large pool,
// direct guess over a small pool, vetted oracle proposal, deterministic
// fallback catalogue. The catalogue guarantees a question always exists.
type Selector struct {
	cfg    config.EngineConfig
	tables *rules.Tables
	topics *TopicTracker
	store  []types.Subject
}

// NewSelector creates a selector. The store is consulted only to detect
// oracle questions that secretly name a known subject.
func NewSelector(cfg config.EngineConfig, tables *rules.Tables, store []types.Subject) *Selector {
	return &Selector{
		cfg:    cfg,
		tables: tables,
		topics: NewTopicTracker(tables),
		store:  store,
	}
}

// Select decides the next move given the current pool and the oracle's
// (already parsed, still untrusted) proposal.
func (s *Selector) Select(sess *Session, pool FilterResult, reply types.ParsedReply) Selection {
	asked := sess.AskedQuestions()
	keys := sess.TraitKeys()
	traits := sess.Traits()
	suppressFantasy := confirmedReal(sess)

	ranked := rankCandidates(pool, traits, s.cfg.MaxGuesses)

	// 1. Unique real-world office: exactly one person can hold it.
	if occ, ok := sess.Trait(types.KeyOccupation); ok && s.tables.IsUniqueRole(occ.Value) && len(ranked) > 0 {
		logging.Select("Unique role %q confirmed, guessing %s immediately", occ.Value, ranked[0].Name)
		top := ranked[0]
		top.Confidence = types.MaxTraitConfidence
		return Selection{IsGuessPhase: true, Guesses: []types.GuessCandidate{top}}
	}

	// 2. Entropy discriminator while the pool is still large.
	if len(pool.Subjects) > s.cfg.DiscriminateMinPool {
		if q, ok := s.bestDiscriminator(pool.Subjects, asked, keys, suppressFantasy); ok {
			return Selection{Question: q, Guesses: ranked}
		}
	}

	// 3. Direct guess over a small or confident pool.
	if n := len(pool.Subjects); n > 0 {
		small := n <= s.cfg.GuessPoolSize
		midgame := n <= s.cfg.GuessMidPoolSize && sess.TurnCount() >= s.cfg.GuessMidPoolTurns
		confident := ranked[0].Confidence >= s.cfg.GuessConfidence
		if small || midgame || confident {
			logging.Select("Guess phase: pool=%d turns=%d top=%.2f", n, sess.TurnCount(), ranked[0].Confidence)
			return Selection{IsGuessPhase: true, Guesses: ranked}
		}
	}

	// 4. Oracle proposal, vetted.
	guesses := mergeGuesses(ranked, reply.Guesses, s.cfg.MaxGuesses)
	if reply.Kind == types.ReplyValid && reply.Question != "" {
		if name, isGuess := s.namedSubject(reply.Question); isGuess {
			// The question smuggles in a specific name; route it as a guess.
			logging.Select("Oracle question names %q, reclassified as guess", name)
			guesses = mergeGuesses([]types.GuessCandidate{{Name: name, Confidence: 0.6}}, guesses, s.cfg.MaxGuesses)
		} else if s.acceptableQuestion(reply.Question, asked, keys, suppressFantasy) {
			return Selection{Question: reply.Question, Guesses: guesses}
		}
	}

	// 5. Deterministic fallback catalogue.
	return Selection{Question: s.fallbackQuestion(sess, asked, keys, suppressFantasy), Guesses: guesses}
}

// bestDiscriminator picks the catalogue question whose yes/no split over the
// pool is closest to 50/50, skipping redundant entries.
func (s *Selector) bestDiscriminator(pool []types.Subject, asked []string, keys []types.TraitKey, suppressFantasy bool) (string, bool) {
	bestQ := ""
	bestScore := math.Inf(1)
	total := float64(len(pool))
	for _, d := range s.tables.Discriminators {
		if alreadyAsked(d.Question, asked) {
			continue
		}
		if suppressFantasy && s.tables.TouchesFantasy(d.Question) {
			continue
		}
		if s.topics.IsRedundant(d.Question, asked, keys) {
			continue
		}
		yes := 0
		probe := types.Trait{Key: d.Key, Value: d.Value}
		for _, sub := range pool {
			if matchTrait(sub, probe, s.tables) {
				yes++
			}
		}
		score := math.Abs(0.5 - float64(yes)/total)
		if score < bestScore {
			bestQ, bestScore = d.Question, score
		}
	}
	if bestQ == "" {
		return "", false
	}
	logging.Select("Discriminator %q (split score %.3f over %d candidates)", bestQ, bestScore, len(pool))
	return bestQ, true
}

// acceptableQuestion vets an oracle-proposed question: length cap, forbidden
// phrasings, exact repeats, topic redundancy, fantasy suppression.
func (s *Selector) acceptableQuestion(q string, asked []string, keys []types.TraitKey, suppressFantasy bool) bool {
	if len(strings.Fields(q)) > s.cfg.MaxQuestionWords {
		logging.SelectDebug("Rejected oracle question (too long): %q", q)
		return false
	}
	if alreadyAsked(q, asked) {
		return false
	}
	if suppressFantasy && s.tables.TouchesFantasy(q) {
		logging.SelectDebug("Rejected oracle question (fantasy with real subject): %q", q)
		return false
	}
	if s.topics.IsRedundant(q, asked, keys) {
		return false
	}
	return true
}

var namedSubjectRe = regexp.MustCompile(`(?i)^is (?:your|the) character\s+(.+?)\s*\?*$`)

// namedSubject detects "is your character <X>?" where X is a known subject
// name; such a question is a guess in disguise.
func (s *Selector) namedSubject(q string) (string, bool) {
	m := namedSubjectRe.FindStringSubmatch(strings.TrimSpace(q))
	if m == nil {
		return "", false
	}
	x := strings.TrimSpace(m[1])
	for _, article := range []string{"a ", "an ", "the "} {
		x = strings.TrimPrefix(x, article)
	}
	for _, sub := range s.store {
		if strings.EqualFold(sub.Name, x) {
			return sub.Name, true
		}
	}
	return "", false
}

// fallbackQuestion walks the primary catalogue in order, then cycles the
// extended list keyed by turn number. It always returns something; at worst
// an extended entry repeats late in a long game.
func (s *Selector) fallbackQuestion(sess *Session, asked []string, keys []types.TraitKey, suppressFantasy bool) string {
	usable := func(q string) bool {
		return !alreadyAsked(q, asked) &&
			!(suppressFantasy && s.tables.TouchesFantasy(q)) &&
			!s.topics.IsRedundant(q, asked, keys)
	}
	for _, q := range s.tables.Fallbacks {
		if usable(q) {
			return q
		}
	}
	ext := s.tables.ExtendedFallbacks
	start := sess.TurnCount() % len(ext)
	for i := 0; i < len(ext); i++ {
		if q := ext[(start+i)%len(ext)]; usable(q) {
			return q
		}
	}
	for i := 0; i < len(ext); i++ {
		if q := ext[(start+i)%len(ext)]; !alreadyAsked(q, asked) {
			return q
		}
	}
	return ext[start]
}

// =============================================================================
// GUESS RANKING
// =============================================================================

// rankCandidates orders the pool into guess candidates. Confidence grows as
// the pool shrinks and as more ledger traits are backed by explicit dataset
// attributes rather than derived evidence. A relaxed pool halves everything.
func rankCandidates(pool FilterResult, traits []types.Trait, max int) []types.GuessCandidate {
	n := len(pool.Subjects)
	if n == 0 {
		return nil
	}
	type scored struct {
		name     string
		explicit int
	}
	scoredSubs := make([]scored, 0, n)
	for _, sub := range pool.Subjects {
		explicit := 0
		for _, t := range traits {
			if _, ok := sub.Attribute(t.Key); ok {
				explicit++
			}
		}
		scoredSubs = append(scoredSubs, scored{name: sub.Name, explicit: explicit})
	}
	sort.SliceStable(scoredSubs, func(i, j int) bool {
		return scoredSubs[i].explicit > scoredSubs[j].explicit
	})

	base := 1.0 / float64(n)
	out := make([]types.GuessCandidate, 0, max)
	for _, sc := range scoredSubs {
		if len(out) >= max {
			break
		}
		ratio := 0.0
		if len(traits) > 0 {
			ratio = float64(sc.explicit) / float64(len(traits))
		}
		conf := base + (1-base)*ratio*0.5
		if pool.Relaxed {
			conf /= 2
		}
		if conf < 0.05 {
			conf = 0.05
		}
		if conf > types.MaxTraitConfidence {
			conf = types.MaxTraitConfidence
		}
		out = append(out, types.GuessCandidate{Name: sc.name, Confidence: conf})
	}
	return out
}

// mergeGuesses combines two candidate lists, first list winning duplicates,
// capped at max.
func mergeGuesses(primary, secondary []types.GuessCandidate, max int) []types.GuessCandidate {
	var out []types.GuessCandidate
	seen := make(map[string]bool)
	for _, list := range [][]types.GuessCandidate{primary, secondary} {
		for _, g := range list {
			key := strings.ToLower(g.Name)
			if seen[key] || len(out) >= max {
				continue
			}
			seen[key] = true
			out = append(out, g)
		}
	}
	return out
}

func alreadyAsked(q string, asked []string) bool {
	for _, a := range asked {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(q)) {
			return true
		}
	}
	return false
}

// confirmedReal reports whether the ledger has settled fictional=false.
func confirmedReal(sess *Session) bool {
	t, ok := sess.Trait(types.KeyFictional)
	if !ok {
		return false
	}
	v, ok := t.BoolValue()
	return ok && !v
}
