package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"nutrition-engine/internal/core/ai/queue"
	"nutrition-engine/internal/core/cache"
	"nutrition-engine/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CheckFunc 依賴檢查，回傳 nil 代表正常
type CheckFunc func(ctx context.Context) error

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Cache     *cache.Stats           `json:"cache,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	checks  map[string]CheckFunc
	queue   func() queue.Status
	cache   func() cache.Stats
	timeout time.Duration
}

// Option Handler 選項
type Option func(*Handler)

// WithCheck 註冊 readiness 依賴檢查
func WithCheck(name string, fn CheckFunc) Option {
	return func(h *Handler) { h.checks[name] = fn }
}

// WithQueue 回報 AI 隊列狀態
func WithQueue(status func() queue.Status) Option {
	return func(h *Handler) { h.queue = status }
}

// WithCacheStats 回報記憶體快取統計
func WithCacheStats(stats func() cache.Stats) Option {
	return func(h *Handler) { h.cache = stats }
}

// NewHandler 創建健康檢查處理器
func NewHandler(version string, opts ...Option) *Handler {
	h := &Handler{version: version, checks: make(map[string]CheckFunc), timeout: 2 * time.Second}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck 健康檢查
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.queue != nil {
		s := h.queue()
		response.Queue = &s
	}
	if h.cache != nil {
		s := h.cache()
		response.Cache = &s
	}

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 執行所有已註冊的依賴檢查
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			common.LogWarn("Readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}

// LivenessCheck 存活檢查
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
