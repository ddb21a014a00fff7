package engine

import (
	"strings"

	"telepath/internal/rules"
	"telepath/internal/types"
)

// =============================================================================
// TRAIT PREDICATES
// =============================================================================
// Predicates are key-specific. Where a subject's attribute map is silent they
// fall back to derivation from the category and the fact text, so partially
// annotated dataset entries still filter correctly.

// matchTrait reports whether subject satisfies one confirmed trait.
func matchTrait(subject types.Subject, trait types.Trait, tables *rules.Tables) bool {
	value := strings.ToLower(strings.TrimSpace(trait.Value))

	switch trait.Key {
	case types.KeyFictional:
		want, ok := types.Trait{Value: value}.BoolValue()
		if !ok {
			return true
		}
		return subject.Fictional == want

	case types.KeyCategory:
		cat := strings.ToLower(subject.Category)
		return strings.Contains(cat, value) || strings.Contains(value, cat)

	case types.KeyHasPowers:
		want, ok := types.Trait{Value: value}.BoolValue()
		if !ok {
			return true
		}
		return subjectHasPowers(subject, tables) == want

	case types.KeyGender:
		got := subjectGender(subject)
		if got == "" {
			// No explicit tag and no pronoun signal: cannot contradict.
			return true
		}
		return got == value

	case types.KeyOriginMedium:
		if attr, ok := subject.Attribute(types.KeyOriginMedium); ok {
			return looseValueMatch(attr, value)
		}
		return strings.Contains(strings.ToLower(subject.Category), value) ||
			strings.Contains(subject.FactsText(), value)

	default:
		// Open-vocabulary keys: explicit attribute wins, fact text is the
		// fallback evidence.
		if attr, ok := subject.Attribute(trait.Key); ok {
			return looseValueMatch(attr, value)
		}
		return strings.Contains(subject.FactsText(), value)
	}
}

// looseValueMatch compares attribute values case-insensitively with substring
// containment in either direction, so "comic" matches "comic book".
func looseValueMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return a == b
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// subjectHasPowers derives the has_powers attribute when it is not tagged:
// superhero-adjacent categories imply powers, otherwise the fact text is
// scanned for fantasy vocabulary.
func subjectHasPowers(subject types.Subject, tables *rules.Tables) bool {
	if attr, ok := subject.Attribute(types.KeyHasPowers); ok {
		want, ok := types.Trait{Value: attr}.BoolValue()
		if ok {
			return want
		}
	}
	cat := strings.ToLower(subject.Category)
	for _, marker := range []string{"superhero", "supervillain", "monster", "pokemon"} {
		if strings.Contains(cat, marker) {
			return true
		}
	}
	return tables.TouchesFantasy(subject.FactsText())
}

// subjectGender returns the explicit gender attribute, or one inferred from
// pronoun frequency in the fact text, or "" when neither gives a clear signal.
func subjectGender(subject types.Subject) string {
	if attr, ok := subject.Attribute(types.KeyGender); ok {
		return strings.ToLower(attr)
	}
	text := " " + subject.FactsText() + " "
	he := countPronoun(text, "he") + countPronoun(text, "his") + countPronoun(text, "him")
	she := countPronoun(text, "she") + countPronoun(text, "her")
	switch {
	case he > 0 && he >= she*2:
		return "male"
	case she > 0 && she >= he*2:
		return "female"
	}
	return ""
}

func countPronoun(text, word string) int {
	n := 0
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return n
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isLetter(text[start-1])
		afterOK := end == len(text) || !isLetter(text[end])
		if beforeOK && afterOK {
			n++
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}
