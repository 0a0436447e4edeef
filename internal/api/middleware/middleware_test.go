package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type observed struct {
	route  string
	status int
}

type fakeObserver struct {
	calls []observed
}

func (f *fakeObserver) ObserveHTTP(route, _ string, status int, _ time.Duration) {
	f.calls = append(f.calls, observed{route: route, status: status})
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoggerObservesRoute(t *testing.T) {
	obs := &fakeObserver{}
	r := gin.New()
	r.Use(Logger(obs))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	perform(r, http.MethodGet, "/items/42", "")
	perform(r, http.MethodGet, "/missing", "")

	assert.Equal(t, []observed{
		{route: "/items/:id", status: http.StatusNoContent},
		{route: "", status: http.StatusNotFound},
	}, obs.calls)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(8))
	r.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/echo", "{}").Code)
	w := perform(r, http.MethodPost, "/echo", `{"too":"large"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestRateLimiter_PerClientRefill(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(500 * time.Millisecond)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	now = now.Add(time.Minute)
	rl.Allow("c")
	_, stale := rl.buckets["b"]
	assert.False(t, stale)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewRateLimiter(1, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/", "").Code)
	w := perform(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestDeduplicator(t *testing.T) {
	now := time.Unix(0, 0)
	d := NewDeduplicator(time.Second)
	d.now = func() time.Time { return now }

	r := gin.New()
	r.Use(d.Middleware())
	r.POST("/plans", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/plans", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusCreated, perform(r, http.MethodPost, "/plans", `{"a":1}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(r, http.MethodPost, "/plans", `{"a":1}`).Code)
	assert.Equal(t, http.StatusCreated, perform(r, http.MethodPost, "/plans", `{"a":2}`).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/plans", "").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/plans", "").Code)

	now = now.Add(2 * time.Second)
	assert.Equal(t, http.StatusCreated, perform(r, http.MethodPost, "/plans", `{"a":1}`).Code)
}
