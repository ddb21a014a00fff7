package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"telepath/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferTraits_Gender(t *testing.T) {
	male := InferTraits("He is a detective. His methods are unusual. People underestimate him.")
	assert.Equal(t, "male", male[types.KeyGender])

	female := InferTraits("She discovered radium. Her work won two Nobel Prizes. She was born in Warsaw.")
	assert.Equal(t, "female", female[types.KeyGender])

	ambiguous := InferTraits("The committee voted on the proposal and adjourned.")
	_, ok := ambiguous[types.KeyGender]
	assert.False(t, ok, "no pronoun signal should mean no gender trait")
}

func TestInferTraits_FictionalAndPowers(t *testing.T) {
	traits := InferTraits("A fictional superhero with superhuman strength appearing in comic books.")
	assert.Equal(t, "true", traits[types.KeyFictional])
	assert.Equal(t, "true", traits[types.KeyHasPowers])
	assert.Equal(t, "comic", traits[types.KeyOriginMedium])

	real := InferTraits("He is an American politician who served as the 44th president.")
	assert.Equal(t, "false", real[types.KeyFictional])
}

func TestClient_LookupSummaryEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Sherlock_Holmes":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"title":"Sherlock Holmes","type":"standard","extract":"Sherlock Holmes is a fictional character. He is a detective created by Arthur Conan Doyle."}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, nil)

	res, err := c.Lookup(context.Background(), "Sherlock Holmes")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, "true", res.Traits[types.KeyFictional])
	assert.Equal(t, "male", res.Traits[types.KeyGender])

	miss, err := c.Lookup(context.Background(), "Nobody In Particular")
	require.NoError(t, err)
	assert.False(t, miss.Found)
}

func TestClient_LookupHTMLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>She is a fictional character from an anime series.</p></body></html>`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, nil)
	res, err := c.Lookup(context.Background(), "Anyone")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, "anime", res.Traits[types.KeyOriginMedium])
	assert.Equal(t, "female", res.Traits[types.KeyGender])
}
