// Package rules holds the engine's heuristic tables as versioned data:
// stop words, synonym groups, trait keyword vocabularies, topic realms,
// forbidden phrasings, negation corrections, and the question catalogues.
// Keeping these as embedded YAML (not inline literals) lets them be unit
// tested and extended without touching control flow.
package rules

import (
	"embed"
	"fmt"
	"strings"

	"telepath/internal/logging"
	"telepath/internal/types"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var defaultData embed.FS

// =============================================================================
// TABLE TYPES
// =============================================================================

// Realm is one named cluster of related question subjects.
type Realm struct {
	Name     string   `yaml:"name"`
	Terms    []string `yaml:"terms"`
	Subterms []string `yaml:"subterms"`
	Values   []string `yaml:"values"`
}

// Specificity levels returned by Realm matching.
const (
	SpecificityNone    = 0
	SpecificityRealm   = 1 // bare realm term
	SpecificitySubterm = 2 // sub-category
	SpecificityValue   = 3 // named color/value
)

// Score returns the highest specificity the question reaches inside this
// realm, or SpecificityNone when the question does not touch the realm.
func (r Realm) Score(question string) int {
	q := strings.ToLower(question)
	score := SpecificityNone
	for _, t := range r.Terms {
		if containsWord(q, t) {
			score = SpecificityRealm
			break
		}
	}
	for _, t := range r.Subterms {
		if containsWord(q, t) && score < SpecificitySubterm {
			score = SpecificitySubterm
		}
	}
	for _, t := range r.Values {
		if containsWord(q, t) {
			return SpecificityValue
		}
	}
	return score
}

// NegationCorrection maps question wording to the value a question asserts
// for a key, plus the opposite of each value. Applied when the answer is
// negative and the oracle returned the asserted (wrong) polarity.
type NegationCorrection struct {
	Key           types.TraitKey    `yaml:"key"`
	QuestionTerms map[string]string `yaml:"question_terms"`
	Opposites     map[string]string `yaml:"opposites"`
}

// BinaryPattern is one strict binary-question rule for the extractor's
// second pass.
type BinaryPattern struct {
	Key      types.TraitKey `yaml:"key"`
	Term     string         `yaml:"term"`
	YesValue string         `yaml:"yes_value"`
	NoValue  string         `yaml:"no_value"`
}

// CatalogueQuestion pairs a discriminator question with the (key, value)
// predicate that splits the pool.
type CatalogueQuestion struct {
	Question string         `yaml:"question"`
	Key      types.TraitKey `yaml:"key"`
	Value    string         `yaml:"value"`
}

// Tables bundles every rule table the engine consults.
type Tables struct {
	Version string

	StopWords         map[string]bool
	SynonymGroups     [][]string
	KeyKeywords       map[types.TraitKey][]string
	KeyVocabulary     map[types.TraitKey][]string
	ValueBlacklist    []string
	BlacklistPrefixes []string
	FantasyVocabulary []string

	Realms              []Realm
	ForbiddenPatterns   []string
	NegationCorrections []NegationCorrection
	BinaryPatterns      []BinaryPattern
	UniqueRoles         []string

	Discriminators    []CatalogueQuestion
	Fallbacks         []string
	ExtendedFallbacks []string

	// canonical resolves any synonym-group member to the group's first entry.
	canonical map[string]string
}

// =============================================================================
// LOADING
// =============================================================================

type lexiconFile struct {
	Version           string                      `yaml:"version"`
	StopWords         []string                    `yaml:"stop_words"`
	SynonymGroups     [][]string                  `yaml:"synonym_groups"`
	KeyKeywords       map[types.TraitKey][]string `yaml:"key_keywords"`
	KeyVocabulary     map[types.TraitKey][]string `yaml:"key_vocabulary"`
	ValueBlacklist    []string                    `yaml:"value_blacklist"`
	BlacklistPrefixes []string                    `yaml:"blacklist_prefixes"`
	FantasyVocabulary []string                    `yaml:"fantasy_vocabulary"`
}

type realmsFile struct {
	Version string  `yaml:"version"`
	Realms  []Realm `yaml:"realms"`
}

type patternsFile struct {
	Version             string               `yaml:"version"`
	ForbiddenPatterns   []string             `yaml:"forbidden_patterns"`
	NegationCorrections []NegationCorrection `yaml:"negation_corrections"`
	BinaryPatterns      []BinaryPattern      `yaml:"binary_patterns"`
	UniqueRoles         []string             `yaml:"unique_roles"`
}

type questionsFile struct {
	Version           string              `yaml:"version"`
	Discriminators    []CatalogueQuestion `yaml:"discriminators"`
	Fallbacks         []string            `yaml:"fallbacks"`
	ExtendedFallbacks []string            `yaml:"extended_fallbacks"`
}

// Default loads the embedded rule tables. Panics only on a corrupted build
// (the embedded YAML is covered by tests).
func Default() (*Tables, error) {
	read := func(name string) ([]byte, error) {
		return defaultData.ReadFile("data/" + name)
	}
	return load(read)
}

// LoadDir loads rule tables from an override directory holding the same four
// YAML files as the embedded defaults.
func LoadDir(readFile func(name string) ([]byte, error)) (*Tables, error) {
	return load(readFile)
}

func load(read func(name string) ([]byte, error)) (*Tables, error) {
	var lex lexiconFile
	if err := readYAML(read, "lexicon.yaml", &lex); err != nil {
		return nil, err
	}
	var rf realmsFile
	if err := readYAML(read, "realms.yaml", &rf); err != nil {
		return nil, err
	}
	var pf patternsFile
	if err := readYAML(read, "patterns.yaml", &pf); err != nil {
		return nil, err
	}
	var qf questionsFile
	if err := readYAML(read, "questions.yaml", &qf); err != nil {
		return nil, err
	}

	t := &Tables{
		Version:             lex.Version,
		StopWords:           make(map[string]bool, len(lex.StopWords)),
		SynonymGroups:       lex.SynonymGroups,
		KeyKeywords:         lex.KeyKeywords,
		KeyVocabulary:       lex.KeyVocabulary,
		ValueBlacklist:      lex.ValueBlacklist,
		BlacklistPrefixes:   lex.BlacklistPrefixes,
		FantasyVocabulary:   lex.FantasyVocabulary,
		Realms:              rf.Realms,
		ForbiddenPatterns:   pf.ForbiddenPatterns,
		NegationCorrections: pf.NegationCorrections,
		BinaryPatterns:      pf.BinaryPatterns,
		UniqueRoles:         pf.UniqueRoles,
		Discriminators:      qf.Discriminators,
		Fallbacks:           qf.Fallbacks,
		ExtendedFallbacks:   qf.ExtendedFallbacks,
		canonical:           make(map[string]string),
	}
	for _, w := range lex.StopWords {
		t.StopWords[strings.ToLower(w)] = true
	}
	for _, group := range lex.SynonymGroups {
		if len(group) == 0 {
			continue
		}
		head := strings.ToLower(group[0])
		for _, member := range group {
			t.canonical[strings.ToLower(member)] = head
		}
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	logging.Rules("Loaded rule tables version %s (%d realms, %d discriminators, %d fallbacks)",
		t.Version, len(t.Realms), len(t.Discriminators), len(t.Fallbacks)+len(t.ExtendedFallbacks))
	return t, nil
}

func readYAML(read func(name string) ([]byte, error), name string, out interface{}) error {
	data, err := read(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (t *Tables) validate() error {
	if len(t.Fallbacks) == 0 || len(t.ExtendedFallbacks) == 0 {
		return fmt.Errorf("fallback catalogues must be non-empty")
	}
	for _, d := range t.Discriminators {
		if !types.KnownTraitKey(d.Key) {
			return fmt.Errorf("discriminator %q uses unknown trait key %q", d.Question, d.Key)
		}
	}
	for _, b := range t.BinaryPatterns {
		if !types.KnownTraitKey(b.Key) {
			return fmt.Errorf("binary pattern %q uses unknown trait key %q", b.Term, b.Key)
		}
	}
	return nil
}

// =============================================================================
// LOOKUP HELPERS
// =============================================================================

// Canonical resolves a word through the synonym groups, lowercasing it.
func (t *Tables) Canonical(word string) string {
	w := strings.ToLower(word)
	if c, ok := t.canonical[w]; ok {
		return c
	}
	return w
}

// ContentWords tokenizes a question, strips stop words and punctuation, and
// resolves synonyms. The result is the question's topical signature.
func (t *Tables) ContentWords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '\'')
	})
	var out []string
	seen := make(map[string]bool)
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f == "" || t.StopWords[f] {
			continue
		}
		c := t.Canonical(f)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// IsForbidden reports whether the question matches a forbidden phrasing.
func (t *Tables) IsForbidden(question string) bool {
	q := strings.ToLower(question)
	for _, p := range t.ForbiddenPatterns {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// IsBlacklistedValue reports whether an extracted value is a non-answer.
func (t *Tables) IsBlacklistedValue(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	for _, b := range t.ValueBlacklist {
		if v == b {
			return true
		}
	}
	for _, p := range t.BlacklistPrefixes {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}

// IsUniqueRole reports whether an occupation value names a one-of-a-kind
// office held by exactly one person at a time.
func (t *Tables) IsUniqueRole(occupation string) bool {
	v := strings.ToLower(strings.TrimSpace(occupation))
	if v == "" {
		return false
	}
	for _, r := range t.UniqueRoles {
		if strings.Contains(v, r) {
			return true
		}
	}
	return false
}

// MentionsKeyword reports whether the question wording contains at least one
// keyword registered for key. Used to veto extractions whose claimed key the
// question never talked about.
func (t *Tables) MentionsKeyword(question string, key types.TraitKey) bool {
	q := strings.ToLower(question)
	for _, kw := range t.KeyKeywords[key] {
		if containsWord(q, kw) {
			return true
		}
	}
	return false
}

// ContainsTerm reports whether text contains term on word boundaries.
func ContainsTerm(text, term string) bool {
	return containsWord(strings.ToLower(text), term)
}

// TouchesFantasy reports whether text contains fantasy vocabulary.
func (t *Tables) TouchesFantasy(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range t.FantasyVocabulary {
		if containsWord(lower, w) {
			return true
		}
	}
	return false
}

// ClassifyRealm returns the best-matching realm for a question and the
// specificity reached in it. Returns ("", SpecificityNone) when the question
// touches no realm.
func (t *Tables) ClassifyRealm(question string) (string, int) {
	bestName := ""
	bestScore := SpecificityNone
	for _, r := range t.Realms {
		if s := r.Score(question); s > bestScore {
			bestName, bestScore = r.Name, s
		}
	}
	return bestName, bestScore
}

// containsWord reports whether lower-cased text contains term on word
// boundaries. Multi-word terms fall back to substring containment.
func containsWord(text, term string) bool {
	term = strings.ToLower(term)
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(text, term)
	}
	idx := 0
	for {
		i := strings.Index(text[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		beforeOK := start == 0 || !isWordChar(rune(text[start-1]))
		afterOK := end == len(text) || !isWordChar(rune(text[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
}
