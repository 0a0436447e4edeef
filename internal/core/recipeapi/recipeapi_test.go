package recipeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"nutrition-engine/internal/core/cache"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "results": [{"id": 716429, "title": "Pasta with Garlic", "readyInMinutes": 45, "servings": 2,
    "cuisines": ["italian"], "diets": ["vegetarian"],
    "extendedIngredients": [{"id": 1, "name": "garlic", "original": "2 cloves garlic", "amount": 2, "unit": "cloves"}],
    "analyzedInstructions": [{"name": "", "steps": [{"number": 1, "step": "Boil pasta."}]}]}],
  "offset": 0, "number": 1, "totalResults": 86
}`

type spoonServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newSpoonServer(t *testing.T) *spoonServer {
	s := &spoonServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		assert.Equal(t, "secret", r.URL.Query().Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/recipes/complexSearch":
			assert.Equal(t, "pasta", r.URL.Query().Get("query"))
			assert.Equal(t, "gluten,dairy", r.URL.Query().Get("intolerances"))
			_, _ = w.Write([]byte(searchBody))
		case "/recipes/716429/information":
			_, _ = w.Write([]byte(`{"id": 716429, "title": "Pasta with Garlic", "servings": 2}`))
		case "/recipes/random":
			assert.Equal(t, "vegan,dessert", r.URL.Query().Get("tags"))
			assert.Equal(t, "2", r.URL.Query().Get("number"))
			_, _ = w.Write([]byte(`{"recipes": [{"id": 1, "title": "A"}, {"id": 2, "title": "B"}]}`))
		case "/recipes/500/information":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"failure"}`))
		case "/recipes/bad-json/information", "/recipes/777/information":
			_, _ = w.Write([]byte(`{"id": `))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func newAdapter(url string) *Spoonacular {
	return NewSpoonacular(config.RecipeAPIConfig{BaseURL: url, APIKey: "secret", Timeout: 5 * time.Second})
}

func TestSpoonacular_SearchRecipes(t *testing.T) {
	srv := newSpoonServer(t)
	res, err := newAdapter(srv.URL).SearchRecipes(context.Background(), SearchParams{
		Query: "pasta", Intolerances: []string{"gluten", "dairy"},
	})
	require.NoError(t, err)

	assert.Equal(t, 86, res.TotalResults)
	require.Len(t, res.Results, 1)
	r := res.Results[0]
	assert.Equal(t, "Pasta with Garlic", r.Title)
	assert.Equal(t, ProviderSpoonacular, r.APISource)
	assert.Equal(t, "garlic", r.ExtendedIngredients[0].Name)
	assert.Equal(t, "Boil pasta.", r.AnalyzedInstructions[0].Steps[0].Step)
}

func TestSpoonacular_GetRecipeByIDAndRandom(t *testing.T) {
	srv := newSpoonServer(t)
	a := newAdapter(srv.URL)

	r, err := a.GetRecipeByID(context.Background(), "716429")
	require.NoError(t, err)
	assert.Equal(t, 716429, r.ID)

	list, err := a.GetRandomRecipes(context.Background(), RandomParams{Tags: []string{"vegan", "dessert"}, Number: 2})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, ProviderSpoonacular, list[1].APISource)
}

func TestSpoonacular_Errors(t *testing.T) {
	srv := newSpoonServer(t)
	a := newAdapter(srv.URL)

	_, err := a.GetRecipeByID(context.Background(), "500")
	assert.ErrorIs(t, err, common.ErrUpstreamAPI)

	_, err = a.GetRecipeByID(context.Background(), "404")
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)

	_, err = a.GetRecipeByID(context.Background(), "777")
	assert.ErrorIs(t, err, common.ErrUpstreamAPI)

	_, err = a.GetRecipeByID(context.Background(), "abc")
	assert.True(t, common.IsValidationError(err))
}

func TestCachedClient_CachesSuccessOnly(t *testing.T) {
	srv := newSpoonServer(t)
	store := cache.NewManager()
	c := NewCachedClient(newAdapter(srv.URL), store, cache.Options{TTL: time.Minute})
	ctx := context.Background()

	params := SearchParams{Query: "pasta", Intolerances: []string{"gluten", "dairy"}}
	_, err := c.SearchRecipes(ctx, params)
	require.NoError(t, err)
	_, err = c.SearchRecipes(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())

	_, err = c.GetRecipeByID(ctx, "500")
	require.Error(t, err)
	_, err = c.GetRecipeByID(ctx, "500")
	require.Error(t, err)
	assert.Equal(t, int32(3), srv.hits.Load())

	n, err := store.InvalidateNamespace(ctx, Namespace(ProviderSpoonacular, OpSearchRecipes))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = c.SearchRecipes(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int32(4), srv.hits.Load())
}

func TestCachedClient_Namespaces(t *testing.T) {
	c := NewCachedClient(newAdapter("http://unused"), nil, cache.Options{})
	assert.Equal(t, []string{
		"spoonacular:searchRecipes",
		"spoonacular:getRecipeById",
		"spoonacular:getRandomRecipes",
	}, c.Namespaces())
	assert.Equal(t, ProviderSpoonacular, c.Provider())
}
