package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nutrition-engine/internal/core/agent"
	"nutrition-engine/internal/core/ai/provider"
	"nutrition-engine/internal/core/cache"
	"nutrition-engine/internal/core/planner"
	"nutrition-engine/internal/core/recipeapi"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/infrastructure/metrics"
	"nutrition-engine/internal/infrastructure/storage"
	"nutrition-engine/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type stubProvider struct{}

func (stubProvider) Generate(context.Context, *provider.Request) (*provider.Response, error) {
	return &provider.Response{Content: `{"name": "Lentil Soup", "calories": 480}`, Model: "stub"}, nil
}
func (stubProvider) GetModel() string          { return "stub" }
func (stubProvider) GetTimeout() time.Duration { return time.Second }
func (stubProvider) Close() error              { return nil }

type stubRecipes struct {
	calls atomic.Int32
}

func (s *stubRecipes) Provider() string { return "stub" }

func (s *stubRecipes) SearchRecipes(_ context.Context, p recipeapi.SearchParams) (recipeapi.SearchResult, error) {
	s.calls.Add(1)
	return recipeapi.SearchResult{
		Results:      []recipeapi.Recipe{{ID: 1, Title: p.Query + " " + strings.Join(p.Intolerances, "|")}},
		TotalResults: 1,
	}, nil
}

func (s *stubRecipes) GetRecipeByID(_ context.Context, id string) (recipeapi.Recipe, error) {
	s.calls.Add(1)
	if id == "404" {
		return recipeapi.Recipe{}, common.ErrRecipeNotFound
	}
	return recipeapi.Recipe{ID: 7, Title: "Seven"}, nil
}

func (s *stubRecipes) GetRandomRecipes(_ context.Context, p recipeapi.RandomParams) ([]recipeapi.Recipe, error) {
	s.calls.Add(1)
	out := make([]recipeapi.Recipe, 0, len(p.Tags))
	for i, tag := range p.Tags {
		out = append(out, recipeapi.Recipe{ID: i, Title: tag})
	}
	return out, nil
}

type RouterSuite struct {
	suite.Suite
	router  *gin.Engine
	recipes *stubRecipes
	store   *cache.Manager
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := storage.NewSQLiteStorage(filepath.Join(s.T().TempDir(), "api.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })

	m := metrics.New()
	s.store = cache.NewManager()
	s.recipes = &stubRecipes{}

	cfg := &config.Config{
		App:    config.AppConfig{Version: "test", Debug: true},
		Server: config.ServerConfig{MaxBodyBytes: 1 << 20},
	}
	s.router = SetupRouter(cfg, Dependencies{
		Profiles:   db,
		Pantry:     db,
		Plans:      planner.NewPlanner(db, db, db, planner.WithRecorder(m)),
		Agent:      agent.NewMealAgent(nil, stubProvider{}),
		Recipes:    recipeapi.NewCachedClient(s.recipes, s.store, cache.Options{TTL: time.Minute, Recorder: m}),
		CacheStore: s.store,
		Metrics:    m,
	})
}

func (s *RouterSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v))
}

const profileBody = `{"age": 30, "gender": "male", "height_cm": 180, "weight_kg": 80,
  "activity_level": "moderately_active", "dietary_preferences": ["vegetarian"],
  "cuisine_preferences": ["thai"], "cooking_skill_level": "beginner"}`

func (s *RouterSuite) TestHealthEndpoints() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health", "").Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/ready", "").Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/live", "").Code)

	w := s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "nutrition_engine_http_requests_total")
}

func (s *RouterSuite) TestNutritionAndPolicy() {
	w := s.do(http.MethodPost, "/api/v1/nutrition/targets", profileBody)
	s.Require().Equal(http.StatusOK, w.Code)
	var targets struct {
		Target common.NutritionTarget `json:"target"`
	}
	s.decode(w, &targets)
	s.Positive(targets.Target.Kcal)

	w = s.do(http.MethodPost, "/api/v1/policy", profileBody)
	s.Require().Equal(http.StatusOK, w.Code)
	var pol struct {
		Hard struct {
			DietRules []string `json:"diet_rules"`
		} `json:"hard"`
	}
	s.decode(w, &pol)
	s.Equal([]string{"vegetarian"}, pol.Hard.DietRules)

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/policy", `{"age": "old"}`).Code)
}

func (s *RouterSuite) TestPantryAnalysis() {
	body := `{"items": [{"name": "eggs", "quantity": 6}, {"name": "spinach", "quantity": 1},
	  {"name": "rice", "quantity": 2}, {"name": "apple", "quantity": 3}, {"name": "yogurt", "quantity": 1}]}`
	w := s.do(http.MethodPost, "/api/v1/pantry/analyze", body)
	s.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Enough bool `json:"enough_for_pantry_plan"`
	}
	s.decode(w, &resp)
	s.True(resp.Enough)

	w = s.do(http.MethodPost, "/api/v1/pantry/stock", body)
	s.Require().Equal(http.StatusOK, w.Code)
	var stock struct {
		LowStock []common.PantryItem `json:"low_stock"`
	}
	s.decode(w, &stock)
	s.Len(stock.LowStock, 3)
}

func (s *RouterSuite) TestUserPlanFlow() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/users/u1/profile", "").Code)
	s.Equal(http.StatusUnprocessableEntity, s.do(http.MethodPost, "/api/v1/users/u1/plans?date=2026-01-01", "").Code)

	s.Require().Equal(http.StatusOK, s.do(http.MethodPut, "/api/v1/users/u1/profile", profileBody).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/users/u1/pantry", `{"items": []}`).Code)
	s.Require().Equal(http.StatusCreated,
		s.do(http.MethodPost, "/api/v1/users/u1/pantry", `{"items": [{"name": "tofu", "quantity": 2, "unit": "blocks"}]}`).Code)

	w := s.do(http.MethodPost, "/api/v1/users/u1/plans?date=2026-01-02", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var result planner.PlanResult
	s.decode(w, &result)
	s.True(result.Success)
	s.Equal(planner.SourceFallback, result.Plan.Source)

	w = s.do(http.MethodGet, "/api/v1/users/u1/plans?date=2026-01-02", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var plan common.MealPlan
	s.decode(w, &plan)
	s.Equal(result.Plan.TotalCalories, plan.TotalCalories)

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/users/u1/plans?date=2026-01-03", "").Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/users/u1/plans?date=tomorrow", "").Code)
}

func (s *RouterSuite) TestMeals() {
	body := `{"profile": ` + profileBody + `, "meal_type": "lunch"}`
	w := s.do(http.MethodPost, "/api/v1/meals/prompt", body)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Target cuisine: thai.")

	w = s.do(http.MethodPost, "/api/v1/meals/generate", body)
	s.Require().Equal(http.StatusOK, w.Code)
	var gen agent.Generation
	s.decode(w, &gen)
	s.Require().NotNil(gen.Meal)
	s.Equal("Lentil Soup", gen.Meal.Name)

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/meals/prompt", `{"meal_type": "brunch"}`).Code)
}

func (s *RouterSuite) TestRecipesAreCachedAndInvalidated() {
	w := s.do(http.MethodGet, "/api/v1/recipes/search?query=curry&intolerances=gluten,dairy", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "curry gluten|dairy")
	s.do(http.MethodGet, "/api/v1/recipes/search?query=curry&intolerances=gluten,dairy", "")
	s.Equal(int32(1), s.recipes.calls.Load())

	w = s.do(http.MethodGet, "/api/v1/recipes/random?tags=vegan&tags=dessert", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "dessert")

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/v1/recipes/7", "").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/recipes/404", "").Code)

	w = s.do(http.MethodDelete, "/api/v1/cache/stub:searchRecipes", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"namespace": "stub:searchRecipes", "removed": 1}`, w.Body.String())
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func TestRecipesUnavailableWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Server: config.ServerConfig{MaxBodyBytes: 1024}}
	r := SetupRouter(cfg, Dependencies{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/recipes/search?query=x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/cache/x", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "CACHE_DISABLED")
}
