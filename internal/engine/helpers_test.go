package engine

import (
	"fmt"
	"testing"

	"telepath/internal/lookup"
	"telepath/internal/rules"
	"telepath/internal/types"

	"github.com/stretchr/testify/require"
)

// loadTables loads the embedded rule tables once per test that needs them.
func loadTables(t *testing.T) *rules.Tables {
	t.Helper()
	tables, err := rules.Default()
	require.NoError(t, err)
	return tables
}

func lookupResult(name string) lookup.Result {
	return lookup.Result{Name: name, Found: true, Traits: map[types.TraitKey]string{}}
}

// subject builds a test subject with attribute pairs: key1, val1, key2, val2...
func subject(name, category string, fictional bool, attrs ...string) types.Subject {
	s := types.Subject{
		Name:       name,
		Category:   category,
		Fictional:  fictional,
		Attributes: make(map[string]string),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		s.Attributes[attrs[i]] = attrs[i+1]
	}
	return s
}

// comicPool builds n fictional male comic-book subjects whose remaining
// attributes alternate so several discriminators split the pool evenly.
func comicPool(n int) []types.Subject {
	pool := make([]types.Subject, 0, n)
	for i := 0; i < n; i++ {
		species, powers, alignment, age := "human", "true", "hero", "young"
		if i%2 == 1 {
			species = "alien"
		}
		if i%2 == 0 {
			powers = "false"
		}
		if i%4 < 2 {
			alignment = "villain"
		}
		if i%4 >= 2 {
			age = "adult"
		}
		pool = append(pool, subject(
			fmt.Sprintf("Subject %02d", i), "superhero", true,
			"gender", "male",
			"origin_medium", "comic",
			"species", species,
			"has_powers", powers,
			"alignment", alignment,
			"age_group", age,
		))
	}
	return pool
}
