package engine

import (
	"testing"

	"telepath/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestTopicTracker_LexicalOverlap(t *testing.T) {
	tt := NewTopicTracker(loadTables(t))

	asked := []string{"Does your character have blonde hair?"}

	assert.True(t, tt.IsRedundant("Is your character's hair blonde?", asked, nil),
		"same content words in different order")
	assert.False(t, tt.IsRedundant("Is your character a scientist?", asked, nil))
}

func TestTopicTracker_SynonymsResolveBeforeOverlap(t *testing.T) {
	tt := NewTopicTracker(loadTables(t))

	asked := []string{"Is your character a superhero?"}

	// "hero" and "superhero" share a synonym group; one content word at 100%
	// coverage of the candidate trips the overlap test.
	assert.True(t, tt.IsRedundant("Is your character a hero?", asked, nil))
	assert.True(t, tt.IsRedundant("Is your character a protagonist?", asked, nil))
}

func TestTopicTracker_ConfirmedKeyVocabulary(t *testing.T) {
	tt := NewTopicTracker(loadTables(t))

	confirmed := []types.TraitKey{types.KeyOriginMedium}

	assert.True(t, tt.IsRedundant("Is your character from a manga?", nil, confirmed),
		"origin medium is settled; manga questions are redundant")
	assert.True(t, tt.IsRedundant("Did your character appear in a movie?", nil, confirmed))
	assert.False(t, tt.IsRedundant("Is your character evil?", nil, confirmed))
}

func TestTopicTracker_RealmContainment(t *testing.T) {
	tt := NewTopicTracker(loadTables(t))

	asked := []string{"Does your character have blonde hair?"}

	// Same realm, strictly broader: redundant.
	assert.True(t, tt.IsRedundant("Does your character have distinctive hair?", asked, nil))

	// Same realm, strictly more specific than what was asked: allowed.
	broadAsked := []string{"Does your character have a hairstyle people recognize?"}
	assert.False(t, tt.IsRedundant("Does your character have pink hair?", broadAsked, nil))
}

func TestTopicTracker_ForbiddenPhrasings(t *testing.T) {
	tt := NewTopicTracker(loadTables(t))

	for _, q := range []string{
		"Does your character have a background in engineering?",
		"Did your character have a career in politics?",
		"Does your character work as a teacher?",
	} {
		assert.True(t, tt.IsRedundant(q, nil, nil), "forbidden phrasing: %q", q)
	}
}
