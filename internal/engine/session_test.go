package engine

import (
	"testing"

	"telepath/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_TraitReplacement(t *testing.T) {
	s := NewSession()

	s.AddTrait(types.Trait{Key: types.KeyGender, Value: "male", Confidence: 0.8, TurnAdded: 1})
	s.AddTrait(types.Trait{Key: types.KeyGender, Value: "female", Confidence: 0.9, TurnAdded: 3})

	traits := s.Traits()
	require.Len(t, traits, 1, "one live trait per key")
	assert.Equal(t, "female", traits[0].Value)
	assert.Equal(t, 3, traits[0].TurnAdded)
}

func TestSession_TraitsOrderedByTurn(t *testing.T) {
	s := NewSession()
	s.AddTrait(types.Trait{Key: types.KeyOriginMedium, Value: "comic", TurnAdded: 3})
	s.AddTrait(types.Trait{Key: types.KeyFictional, Value: "true", TurnAdded: 1})
	s.AddTrait(types.Trait{Key: types.KeyGender, Value: "male", TurnAdded: 2})

	traits := s.Traits()
	require.Len(t, traits, 3)
	assert.Equal(t, types.KeyFictional, traits[0].Key)
	assert.Equal(t, types.KeyGender, traits[1].Key)
	assert.Equal(t, types.KeyOriginMedium, traits[2].Key)
}

func TestSession_RejectedSnapshotFrozen(t *testing.T) {
	s := NewSession()
	s.AddTrait(types.Trait{Key: types.KeyFictional, Value: "true", TurnAdded: 1})
	s.RecordTurn("Is your character fictional?", types.AnswerYes)

	s.RejectGuess("Batman")

	// Later ledger changes must not leak into the frozen snapshot.
	s.AddTrait(types.Trait{Key: types.KeyGender, Value: "male", TurnAdded: 2})
	s.AddTrait(types.Trait{Key: types.KeyFictional, Value: "false", TurnAdded: 3})

	rejected := s.RejectedGuesses()
	require.Len(t, rejected, 1)
	assert.Equal(t, "Batman", rejected[0].Name)
	assert.Equal(t, 1, rejected[0].Turn)
	require.Len(t, rejected[0].Snapshot, 1)
	assert.Equal(t, "true", rejected[0].Snapshot[0].Value)
}

func TestSession_IsRejectedCaseInsensitive(t *testing.T) {
	s := NewSession()
	s.RejectGuess("Sherlock Holmes")

	assert.True(t, s.IsRejected("sherlock holmes"))
	assert.True(t, s.IsRejected("SHERLOCK HOLMES"))
	assert.False(t, s.IsRejected("Mycroft Holmes"))
}

func TestSession_ResetClearsEverything(t *testing.T) {
	s := NewSession()
	s.AddTrait(types.Trait{Key: types.KeyGender, Value: "male", TurnAdded: 1})
	s.RecordTurn("Is your character male?", types.AnswerYes)
	s.RejectGuess("Mario")
	s.RecordAmbiguous("Is your character old?")
	s.StoreLookup("Mario", lookupResult("Mario"))
	s.SetOutOfBase(true)
	oldID := s.ID()
	oldSeed := s.RenderSeed()

	s.Reset()

	assert.Empty(t, s.Traits())
	assert.Zero(t, s.TurnCount())
	assert.Empty(t, s.RejectedGuesses())
	assert.Empty(t, s.AmbiguousQuestions())
	assert.False(t, s.OutOfBase())
	_, hit := s.CachedLookup("Mario")
	assert.False(t, hit, "lookup cache lives and dies with the session")
	assert.NotEqual(t, oldID, s.ID())
	// Seeds are random; colliding once in a blue moon is fine, but flag the
	// obvious bug where reset forgets to redraw.
	if s.RenderSeed() == oldSeed {
		t.Log("render seed unchanged across reset (possible but unlikely)")
	}
}
