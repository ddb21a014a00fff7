package engine

import (
	"context"
	"time"

	"telepath/internal/logging"
	"telepath/internal/oracle"
	"telepath/internal/rules"
	"telepath/internal/types"
)

// =============================================================================
// TRAIT EXTRACTOR
// =============================================================================

// Extractor converts one (question, answer) exchange into at most one trait.
// The oracle's proposal is the primary source; a rule-based binary-pattern
// pass catches the obvious cases when the oracle fails. Every rejection is a
// silent skip, never an error surfaced to the turn.
type Extractor struct {
	client  oracle.Client
	tables  *rules.Tables
	timeout time.Duration
}

// NewExtractor creates an extractor. A nil client disables the primary pass.
func NewExtractor(client oracle.Client, tables *rules.Tables, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{client: client, tables: tables, timeout: timeout}
}

// Extract returns the trait confirmed by the exchange, or nil when nothing
// usable was established. "don't know" never produces a trait.
func (x *Extractor) Extract(ctx context.Context, question string, answer types.Answer, turn int) *types.Trait {
	if answer == types.AnswerDontKnow {
		return nil
	}
	if t := x.primaryPass(ctx, question, answer, turn); t != nil {
		return t
	}
	return x.rulePass(question, answer, turn)
}

// primaryPass asks the oracle for a {key, value, confidence} proposal and
// validates it against the question's own wording.
func (x *Extractor) primaryPass(ctx context.Context, question string, answer types.Answer, turn int) *types.Trait {
	if x.client == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	raw, err := x.client.CompleteWithSystem(callCtx, oracle.ExtractionSystemPrompt(),
		oracle.BuildExtractionPrompt(question, answer))
	if err != nil {
		logging.Extract("Oracle extraction failed, falling back to rules: %v", err)
		return nil
	}

	proposal, err := oracle.ParseTraitProposal(raw)
	if err != nil {
		logging.Extract("Unusable extraction reply: %v", err)
		return nil
	}

	key := types.TraitKey(proposal.Key)
	if !types.KnownTraitKey(key) {
		logging.ExtractDebug("Rejected extraction: unknown key %q", proposal.Key)
		return nil
	}
	if x.tables.IsBlacklistedValue(proposal.Value) {
		logging.ExtractDebug("Rejected extraction: blacklisted value %q for %s", proposal.Value, key)
		return nil
	}
	// The question itself must talk about the claimed key; the oracle may not
	// infer gender from a question about eyewear.
	if !x.tables.MentionsKeyword(question, key) {
		logging.ExtractDebug("Rejected extraction: question %q never mentions %s", question, key)
		return nil
	}

	value := x.correctNegation(question, answer, key, proposal.Value)

	return &types.Trait{
		Key:        key,
		Value:      value,
		Confidence: types.ClampConfidence(proposal.Confidence),
		TurnAdded:  turn,
	}
}

// correctNegation fixes the sign of keys with a well-defined opposite when
// the answer is negative and the oracle echoed the value the question
// asserted. A "no" to "is your character real?" must yield fictional=true.
func (x *Extractor) correctNegation(question string, answer types.Answer, key types.TraitKey, value string) string {
	if !answer.Negative() {
		return value
	}
	for _, nc := range x.tables.NegationCorrections {
		if nc.Key != key {
			continue
		}
		for term, asserted := range nc.QuestionTerms {
			if !rules.ContainsTerm(question, term) {
				continue
			}
			if value == asserted {
				if flipped, ok := nc.Opposites[asserted]; ok {
					logging.Extract("Negation corrected: %s %q -> %q (question asserted %q, answer %s)",
						key, value, flipped, asserted, answer)
					return flipped
				}
			}
		}
	}
	return value
}

// rulePass infers a trait from strict binary-question patterns, covering the
// obvious cases when the primary pass produced nothing.
func (x *Extractor) rulePass(question string, answer types.Answer, turn int) *types.Trait {
	for _, bp := range x.tables.BinaryPatterns {
		if !rules.ContainsTerm(question, bp.Term) {
			continue
		}
		var value string
		confidence := 0.9
		switch {
		case answer.Affirmative():
			value = bp.YesValue
		case answer.Negative():
			value = bp.NoValue
		}
		if answer == types.AnswerProbably || answer == types.AnswerProbablyNot {
			confidence = 0.7
		}
		if value == "" {
			continue
		}
		logging.Extract("Rule-based extraction: %s=%q from term %q", bp.Key, value, bp.Term)
		return &types.Trait{
			Key:        bp.Key,
			Value:      value,
			Confidence: types.ClampConfidence(confidence),
			TurnAdded:  turn,
		}
	}
	return nil
}
