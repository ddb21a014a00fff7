package rules

import (
	"testing"

	"telepath/internal/types"
)

func mustDefault(t *testing.T) *Tables {
	t.Helper()
	tables, err := Default()
	if err != nil {
		t.Fatalf("Default tables failed to load: %v", err)
	}
	return tables
}

func TestDefault_Loads(t *testing.T) {
	tables := mustDefault(t)
	if tables.Version == "" {
		t.Error("expected a version string")
	}
	if len(tables.Realms) == 0 {
		t.Error("expected realms")
	}
	if len(tables.Fallbacks) == 0 || len(tables.ExtendedFallbacks) == 0 {
		t.Error("fallback catalogues must be non-empty")
	}
	if len(tables.Discriminators) == 0 {
		t.Error("expected discriminator catalogue")
	}
}

func TestContentWords_StripsStopWordsAndSynonyms(t *testing.T) {
	tables := mustDefault(t)

	words := tables.ContentWords("Is your character a superhero?")
	if len(words) != 1 || words[0] != "hero" {
		t.Errorf("expected [hero], got %v", words)
	}

	words = tables.ContentWords("Does your character have superpowers?")
	if len(words) != 1 || words[0] != "powers" {
		t.Errorf("expected [powers], got %v", words)
	}
}

func TestCanonical(t *testing.T) {
	tables := mustDefault(t)
	tests := []struct{ in, want string }{
		{"superhero", "hero"},
		{"Protagonist", "hero"},
		{"film", "movie"},
		{"woman", "female"},
		{"unrelated", "unrelated"},
	}
	for _, tt := range tests {
		if got := tables.Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRealm_SpecificityOrdering(t *testing.T) {
	tables := mustDefault(t)

	name, score := tables.ClassifyRealm("Does your character have distinctive hair?")
	if name != "hair" || score != SpecificityRealm {
		t.Errorf("bare realm: got (%s, %d), want (hair, %d)", name, score, SpecificityRealm)
	}

	name, score = tables.ClassifyRealm("Does your character have blonde hair?")
	if name != "hair" || score != SpecificityValue {
		t.Errorf("named value: got (%s, %d), want (hair, %d)", name, score, SpecificityValue)
	}

	name, score = tables.ClassifyRealm("Does your character carry a sword?")
	if name != "weapons" || score != SpecificitySubterm {
		t.Errorf("subterm: got (%s, %d), want (weapons, %d)", name, score, SpecificitySubterm)
	}

	name, score = tables.ClassifyRealm("Is your character taller than average buildings?")
	if score == SpecificityNone && name != "" {
		t.Errorf("no realm should yield empty name, got %q", name)
	}
}

func TestIsForbidden(t *testing.T) {
	tables := mustDefault(t)
	if !tables.IsForbidden("Does your character have a background in finance?") {
		t.Error("biographical phrasing should be forbidden")
	}
	if tables.IsForbidden("Is your character fictional?") {
		t.Error("plain question should not be forbidden")
	}
}

func TestIsBlacklistedValue(t *testing.T) {
	tables := mustDefault(t)
	for _, v := range []string{"unknown", "N/A", "none", "not_applicable", "non_binary_placeholder", ""} {
		if !tables.IsBlacklistedValue(v) {
			t.Errorf("%q should be blacklisted", v)
		}
	}
	for _, v := range []string{"male", "anime", "true"} {
		if tables.IsBlacklistedValue(v) {
			t.Errorf("%q should be allowed", v)
		}
	}
}

func TestTouchesFantasy(t *testing.T) {
	tables := mustDefault(t)
	if !tables.TouchesFantasy("Can your character cast a magic spell?") {
		t.Error("expected fantasy vocabulary hit")
	}
	if tables.TouchesFantasy("Is your character a politician?") {
		t.Error("unexpected fantasy hit")
	}
}

func TestKeyKeywords_CoverClosedVocabulary(t *testing.T) {
	tables := mustDefault(t)
	for _, key := range types.AllTraitKeys {
		if len(tables.KeyKeywords[key]) == 0 {
			t.Errorf("key %q has no keyword table entry", key)
		}
	}
}

func TestContainsWord_Boundaries(t *testing.T) {
	if containsWord("is your character really tall", "real") {
		t.Error("'real' must not match inside 'really'")
	}
	if !containsWord("is your character real", "real") {
		t.Error("'real' should match at end of question")
	}
	if !containsWord("from a video game world", "video game") {
		t.Error("multi-word term should match by substring")
	}
}
