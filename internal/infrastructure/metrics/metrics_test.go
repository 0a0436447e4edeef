package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nutrition-engine/internal/core/cache"
	"nutrition-engine/internal/core/planner"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ cache.Recorder   = (*Metrics)(nil)
	_ planner.Recorder = (*Metrics)(nil)
)

func TestCacheCounters(t *testing.T) {
	m := New()
	m.CacheHit("spoonacular:searchRecipes")
	m.CacheHit("spoonacular:searchRecipes")
	m.CacheMiss("spoonacular:searchRecipes")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("spoonacular:searchRecipes", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("spoonacular:searchRecipes", "miss")))
}

func TestPlannerCounters(t *testing.T) {
	m := New()
	m.PlanGenerated("pantry")
	m.PlanFailed("profile")
	m.PlanPersistFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.plans.WithLabelValues("pantry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.planFailures.WithLabelValues("profile")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.planPersist))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("", http.MethodGet, http.StatusNotFound, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `nutrition_engine_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, "nutrition_engine_http_request_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
