package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"telepath/internal/config"
	"telepath/internal/oracle"
	"telepath/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, cfg config.EngineConfig, mock *oracle.MockClient, store []types.Subject) *Engine {
	t.Helper()
	return New(cfg, mock, loadTables(t), store, Options{OracleTimeout: time.Second})
}

func TestEngine_BasicTurnFlow(t *testing.T) {
	mock := oracle.NewMockClient(
		`{"question": "Is your character fictional?"}`,
		`{"key": "fictional", "value": "true", "confidence": 0.9}`,
		`{"question": "Is your character male?"}`,
	)
	e := newTestEngine(t, config.DefaultEngineConfig(), mock, testStore())
	ctx := context.Background()

	out, err := e.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Is your character fictional?", out.Question)
	assert.Empty(t, out.Traits)

	out, err = e.Advance(ctx, types.AnswerYes)
	require.NoError(t, err)
	require.Len(t, out.Traits, 1)
	assert.Equal(t, types.KeyFictional, out.Traits[0].Key)
	assert.Equal(t, "true", out.Traits[0].Value)
	assert.Equal(t, "Is your character male?", out.Question)

	// The surfaced guesses come from the filtered pool: fictional subjects only.
	for _, g := range out.Guesses {
		assert.Contains(t, []string{"Superman", "Batman", "Wonder Woman"}, g.Name)
	}

	turns := e.Session().Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "Is your character fictional?", turns[0].Question)
	assert.Equal(t, types.AnswerYes, turns[0].Answer)
}

func TestEngine_InvalidAnswerAndMissingPending(t *testing.T) {
	e := newTestEngine(t, config.DefaultEngineConfig(), oracle.NewMockClient(), testStore())
	ctx := context.Background()

	_, err := e.Advance(ctx, types.Answer("maybe"))
	assert.Error(t, err)

	_, err = e.Advance(ctx, types.AnswerYes)
	assert.Error(t, err, "no question pending before Start")
}

func TestEngine_MalformedOracleFallsBackDeterministically(t *testing.T) {
	mock := oracle.NewMockClient("complete nonsense, no JSON at all")
	e := newTestEngine(t, config.DefaultEngineConfig(), mock, testStore())

	out, err := e.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Is your character fictional?", out.Question, "first fallback serves when the oracle fails")
}

func TestEngine_DontKnowRecordsAmbiguousWithoutTrait(t *testing.T) {
	mock := oracle.NewMockClient(
		`{"question": "Is your character old?"}`,
		// No extraction round-trip happens for dont_know; next reply is the proposal.
		`{"question": "Is your character human?"}`,
	)
	e := newTestEngine(t, config.DefaultEngineConfig(), mock, testStore())
	ctx := context.Background()

	_, err := e.Start(ctx)
	require.NoError(t, err)

	out, err := e.Advance(ctx, types.AnswerDontKnow)
	require.NoError(t, err)
	assert.Empty(t, out.Traits)
	assert.Equal(t, []string{"Is your character old?"}, e.Session().AmbiguousQuestions())

	assert.Zero(t, mock.CallsContaining("Extract the confirmed fact"),
		"no extraction round-trip for a don't-know answer")
	assert.Equal(t, 1, mock.CallsContaining("could not answer"),
		"the dead topic reaches the next proposal prompt")
}

func TestEngine_FantasySuppressedForRealSubjects(t *testing.T) {
	tables := loadTables(t)
	mock := oracle.NewMockClient(
		`{"question": "Is your character real?"}`,
		`{"key": "fictional", "value": "false", "confidence": 0.9}`,
		`{"question": "Does your character have powers?"}`,
		`{"key": "has_powers", "value": "magical", "confidence": 0.9}`,
		`{}`,
	)
	e := newTestEngine(t, config.DefaultEngineConfig(), mock, testStore())
	ctx := context.Background()

	_, err := e.Start(ctx)
	require.NoError(t, err)

	out, err := e.Advance(ctx, types.AnswerYes)
	require.NoError(t, err)
	require.Len(t, out.Traits, 1)
	assert.Equal(t, "false", out.Traits[0].Value)

	out, err = e.Advance(ctx, types.AnswerYes)
	require.NoError(t, err)

	// The fantasy-valued trait was dropped and the next question carries no
	// fantasy vocabulary.
	require.Len(t, out.Traits, 1, "magical trait must not join a real subject's ledger")
	assert.Equal(t, types.KeyFictional, out.Traits[0].Key)
	assert.False(t, tables.TouchesFantasy(out.Question), "question %q", out.Question)
}

func TestEngine_OutOfBaseAfterTurnBudget(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.OutOfBaseTurnBudget = 2

	mock := oracle.NewMockClient(
		`{"question": "Is your character human?"}`,
		`{"key": "species", "value": "dragon", "confidence": 0.9}`,
		`{"question": "Is your character American?"}`,
		`{"key": "nationality", "value": "atlantean", "confidence": 0.8}`,
		`{"question": "", "top_guesses": [{"name": "Charizard", "confidence": 0.8}]}`,
	)
	e := newTestEngine(t, cfg, mock, testStore())
	ctx := context.Background()

	_, err := e.Start(ctx)
	require.NoError(t, err)

	out, err := e.Advance(ctx, types.AnswerYes)
	require.NoError(t, err)
	assert.False(t, out.OutOfBase, "one impossible trait still relaxes back into the store")

	out, err = e.Advance(ctx, types.AnswerYes)
	require.NoError(t, err)
	assert.True(t, out.OutOfBase, "two impossible traits past the budget exhaust the base")
	require.Len(t, out.Guesses, 1)
	assert.Equal(t, "Charizard", out.Guesses[0].Name)
	assert.InDelta(t, 0.4, out.Guesses[0].Confidence, 1e-9, "oracle-only guesses surface at half confidence")
	assert.NotEmpty(t, out.Question, "questioning continues even out of base")
}

func TestEngine_OutOfBaseClearsWhenPoolRecovers(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.OutOfBaseTurnBudget = 2

	// Two subjects satisfy the repaired ledger; the rest keep the pool big
	// enough that no guess phase interrupts the scripted questions.
	store := []types.Subject{
		subject("Amelia Earhart", "aviator", false, "species", "human", "nationality", "american"),
		subject("Neil Armstrong", "astronaut", false, "species", "human", "nationality", "american"),
	}
	for i := 0; i < 8; i++ {
		store = append(store, subject(
			fmt.Sprintf("Android %02d", i), "robot", true,
			"species", "robot", "nationality", "british"))
	}

	mock := oracle.NewMockClient(
		`{"question": "Is your character human?"}`,
		`{"key": "species", "value": "dragon", "confidence": 0.9}`,
		`{"question": "Is your character American?"}`,
		`{"key": "nationality", "value": "atlantean", "confidence": 0.8}`,
		`{"question": "Is your character famous?"}`,
		`{}`,
	)
	e := newTestEngine(t, cfg, mock, store)
	ctx := context.Background()

	_, err := e.Start(ctx)
	require.NoError(t, err)
	_, err = e.Advance(ctx, types.AnswerYes)
	require.NoError(t, err)
	out, err := e.Advance(ctx, types.AnswerYes)
	require.NoError(t, err)
	require.True(t, out.OutOfBase, "two impossible traits past the budget exhaust the base")

	// Later answers repair the ledger: both impossible values get replaced
	// and the exact filter matches two subjects again.
	e.Session().AddTrait(types.Trait{Key: types.KeySpecies, Value: "human", Confidence: 0.9, TurnAdded: 3})
	e.Session().AddTrait(types.Trait{Key: types.KeyNationality, Value: "american", Confidence: 0.8, TurnAdded: 3})

	out, err = e.Advance(ctx, types.AnswerDontKnow)
	require.NoError(t, err)

	assert.False(t, out.OutOfBase, "a non-empty pool is back inside the knowledge base")
	require.NotEmpty(t, out.Guesses)
	assert.InDelta(t, 0.75, out.Guesses[0].Confidence, 1e-9, "in-base guesses must not surface at half confidence")
}

func TestEngine_RejectedGuessNeverResurfaces(t *testing.T) {
	mock := oracle.NewMockClient(
		`{"question": "Is your character human?"}`,
		`{"question": "Is your character male?", "top_guesses": [{"name": "batman", "confidence": 0.9}, {"name": "Superman", "confidence": 0.5}]}`,
	)
	e := newTestEngine(t, config.DefaultEngineConfig(), mock, testStore())
	ctx := context.Background()

	_, err := e.Start(ctx)
	require.NoError(t, err)

	out, err := e.RejectGuess(ctx, "Batman")
	require.NoError(t, err)

	for _, g := range out.Guesses {
		assert.False(t, strings.EqualFold(g.Name, "batman"), "rejected guess resurfaced as %q", g.Name)
	}
	require.Len(t, e.Session().RejectedGuesses(), 1)

	// The rejection also reaches the oracle so it stops proposing the name.
	assert.Contains(t, mock.LastCall(), "Guesses already rejected")
	assert.Contains(t, mock.LastCall(), "Batman")
}

func TestEngine_ResetStartsClean(t *testing.T) {
	mock := oracle.NewMockClient(
		`{"question": "Is your character fictional?"}`,
		`{"key": "fictional", "value": "true", "confidence": 0.9}`,
		`{}`,
	)
	e := newTestEngine(t, config.DefaultEngineConfig(), mock, testStore())
	ctx := context.Background()

	_, err := e.Start(ctx)
	require.NoError(t, err)
	_, err = e.Advance(ctx, types.AnswerYes)
	require.NoError(t, err)
	require.NotEmpty(t, e.Session().Traits())

	e.Reset()
	assert.Empty(t, e.Session().Traits())
	assert.Zero(t, e.Session().TurnCount())

	mock.Push(`{"question": "Is your character an athlete?"}`)
	out, err := e.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Is your character an athlete?", out.Question)
}
