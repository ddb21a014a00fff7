package engine

import (
	"math"
	"testing"

	"telepath/internal/config"
	"telepath/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelector(t *testing.T, store []types.Subject) *Selector {
	t.Helper()
	return NewSelector(config.DefaultEngineConfig(), loadTables(t), store)
}

func seedSession(traits ...types.Trait) *Session {
	s := NewSession()
	for _, tr := range traits {
		s.AddTrait(tr)
	}
	return s
}

func TestSelector_EntropyDiscriminatorNearFiftyFifty(t *testing.T) {
	tables := loadTables(t)
	pool := comicPool(40)
	sel := newTestSelector(t, pool)

	sess := seedSession(
		types.Trait{Key: types.KeyFictional, Value: "true", Confidence: 0.9, TurnAdded: 1},
		types.Trait{Key: types.KeyGender, Value: "male", Confidence: 0.9, TurnAdded: 2},
		types.Trait{Key: types.KeyOriginMedium, Value: "comic book", Confidence: 0.9, TurnAdded: 3},
	)
	sess.RecordTurn("Is your character fictional?", types.AnswerYes)
	sess.RecordTurn("Is your character male?", types.AnswerYes)
	sess.RecordTurn("Is your character from a comic book?", types.AnswerYes)

	result := sel.Select(sess, FilterResult{Subjects: pool}, types.ParsedReply{Kind: types.ReplyMalformed})

	require.False(t, result.IsGuessPhase)
	require.NotEmpty(t, result.Question)
	assert.NotEqual(t, "Is your character fictional?", result.Question)
	assert.NotEqual(t, "Is your character male?", result.Question)

	// The chosen discriminator's split over the pool must be within 10
	// percentage points of 50/50.
	var chosen *struct {
		key   types.TraitKey
		value string
	}
	for _, d := range tables.Discriminators {
		if d.Question == result.Question {
			chosen = &struct {
				key   types.TraitKey
				value string
			}{d.Key, d.Value}
			break
		}
	}
	require.NotNil(t, chosen, "question %q is not in the discriminator catalogue", result.Question)

	yes := 0
	for _, sub := range pool {
		if matchTrait(sub, types.Trait{Key: chosen.key, Value: chosen.value}, tables) {
			yes++
		}
	}
	split := float64(yes) / float64(len(pool))
	assert.LessOrEqual(t, math.Abs(0.5-split), 0.10, "question %q splits %d/%d", result.Question, yes, len(pool)-yes)
}

func TestSelector_PoolOfOneIsAGuessNotAQuestion(t *testing.T) {
	store := testStore()
	sel := newTestSelector(t, store)
	sess := seedSession(types.Trait{Key: types.KeyFictional, Value: "false", TurnAdded: 1})

	pool := FilterResult{Subjects: []types.Subject{store[3]}}
	result := sel.Select(sess, pool, types.ParsedReply{Kind: types.ReplyMalformed})

	assert.True(t, result.IsGuessPhase)
	assert.Empty(t, result.Question)
	require.NotEmpty(t, result.Guesses)
	assert.Equal(t, "Albert Einstein", result.Guesses[0].Name)
}

func TestSelector_MidgameGuessAfterEnoughTurns(t *testing.T) {
	store := testStore()
	sel := newTestSelector(t, store)
	sess := NewSession()
	for i := 0; i < 9; i++ {
		sess.RecordTurn("filler question?", types.AnswerDontKnow)
	}

	pool := FilterResult{Subjects: store[:4]}
	result := sel.Select(sess, pool, types.ParsedReply{Kind: types.ReplyMalformed})

	assert.True(t, result.IsGuessPhase, "pool of 4 after 9 turns should trigger a guess")
}

func TestSelector_UniqueRoleShortCircuits(t *testing.T) {
	store := testStore()
	sel := newTestSelector(t, store)
	sess := seedSession(types.Trait{Key: types.KeyOccupation, Value: "president of the united states", TurnAdded: 2})

	pool := FilterResult{Subjects: store[3:4]}
	result := sel.Select(sess, pool, types.ParsedReply{Kind: types.ReplyMalformed})

	require.True(t, result.IsGuessPhase)
	require.Len(t, result.Guesses, 1)
	assert.Equal(t, types.MaxTraitConfidence, result.Guesses[0].Confidence)
}

func TestSelector_OracleQuestionAccepted(t *testing.T) {
	sel := newTestSelector(t, testStore())
	sess := NewSession()
	sess.RecordTurn("Is your character fictional?", types.AnswerYes)

	reply := types.ParsedReply{Kind: types.ReplyValid, Question: "Does your character use a sword?"}
	result := sel.Select(sess, FilterResult{Subjects: testStore()}, reply)

	assert.Equal(t, "Does your character use a sword?", result.Question)
}

func TestSelector_OracleQuestionRejectedWhenRedundant(t *testing.T) {
	sel := newTestSelector(t, testStore())
	sess := NewSession()
	sess.RecordTurn("Does your character have blonde hair?", types.AnswerNo)

	reply := types.ParsedReply{Kind: types.ReplyValid, Question: "Does your character have distinctive hair?"}
	result := sel.Select(sess, FilterResult{Subjects: testStore()}, reply)

	require.NotEmpty(t, result.Question)
	assert.NotEqual(t, reply.Question, result.Question, "broader question in a touched realm must fall through to the fallbacks")
}

func TestSelector_OracleQuestionRejectedWhenTooLong(t *testing.T) {
	sel := newTestSelector(t, testStore())
	sess := NewSession()

	long := "Is your character a person who has ever been involved in any kind of professional sporting event at the international level of competition?"
	reply := types.ParsedReply{Kind: types.ReplyValid, Question: long}
	result := sel.Select(sess, FilterResult{Subjects: testStore()}, reply)

	assert.NotEqual(t, long, result.Question)
}

func TestSelector_NamedSubjectReclassifiedAsGuess(t *testing.T) {
	sel := newTestSelector(t, testStore())
	sess := NewSession()

	reply := types.ParsedReply{Kind: types.ReplyValid, Question: "Is your character Wonder Woman?"}
	result := sel.Select(sess, FilterResult{Subjects: testStore()}, reply)

	assert.NotEqual(t, reply.Question, result.Question, "a smuggled name is not a question")
	require.NotEmpty(t, result.Guesses)
	assert.Equal(t, "Wonder Woman", result.Guesses[0].Name)
}

func TestSelector_FallbackWhenOracleMalformed(t *testing.T) {
	sel := newTestSelector(t, testStore())
	sess := NewSession()

	result := sel.Select(sess, FilterResult{Subjects: testStore()}, types.ParsedReply{Kind: types.ReplyMalformed})
	assert.Equal(t, "Is your character fictional?", result.Question, "first fallback on a fresh session")
}

func TestSelector_FallbackNeverStalls(t *testing.T) {
	tables := loadTables(t)
	sel := newTestSelector(t, testStore())
	sess := NewSession()

	// Burn through every catalogue entry.
	for _, q := range tables.Fallbacks {
		sess.RecordTurn(q, types.AnswerDontKnow)
	}
	for _, q := range tables.ExtendedFallbacks {
		sess.RecordTurn(q, types.AnswerDontKnow)
	}

	result := sel.Select(sess, FilterResult{}, types.ParsedReply{Kind: types.ReplyEmpty})
	assert.NotEmpty(t, result.Question, "the selector must always produce a question")
}

func TestSelector_RelaxedPoolHalvesGuessConfidence(t *testing.T) {
	store := testStore()
	sel := newTestSelector(t, store)
	sess := NewSession()

	strict := sel.Select(sess, FilterResult{Subjects: store[:2]}, types.ParsedReply{Kind: types.ReplyEmpty})
	relaxed := sel.Select(sess, FilterResult{Subjects: store[:2], Relaxed: true}, types.ParsedReply{Kind: types.ReplyEmpty})

	require.NotEmpty(t, strict.Guesses)
	require.NotEmpty(t, relaxed.Guesses)
	assert.InDelta(t, strict.Guesses[0].Confidence/2, relaxed.Guesses[0].Confidence, 1e-9)
}
