package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace 所有指標的前綴
const Namespace = "nutrition_engine"

// Metrics 快取、規劃器與 HTTP 指標；實作 cache.Recorder 與 planner.Recorder
type Metrics struct {
	registry *prometheus.Registry

	cacheRequests *prometheus.CounterVec
	plans         *prometheus.CounterVec
	planFailures  *prometheus.CounterVec
	planPersist   prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New 使用獨立的 registry 建立指標，避免與預設 registry 衝突
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "cache",
				Name:      "requests_total",
				Help:      "Cache lookups by namespace and result",
			},
			[]string{"namespace", "result"},
		),
		plans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "planner",
				Name:      "plans_generated_total",
				Help:      "Generated meal plans by source",
			},
			[]string{"source"},
		),
		planFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "planner",
				Name:      "plan_failures_total",
				Help:      "Meal plan generation failures by stage",
			},
			[]string{"stage"},
		),
		planPersist: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "planner",
				Name:      "plan_persist_failures_total",
				Help:      "Generated plans that could not be saved",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// CacheHit 快取命中
func (m *Metrics) CacheHit(namespace string) {
	m.cacheRequests.WithLabelValues(namespace, "hit").Inc()
}

// CacheMiss 快取未命中
func (m *Metrics) CacheMiss(namespace string) {
	m.cacheRequests.WithLabelValues(namespace, "miss").Inc()
}

// PlanGenerated 成功產生計畫
func (m *Metrics) PlanGenerated(source string) {
	m.plans.WithLabelValues(source).Inc()
}

// PlanFailed 計畫產生失敗
func (m *Metrics) PlanFailed(stage string) {
	m.planFailures.WithLabelValues(stage).Inc()
}

// PlanPersistFailed 計畫已產生但儲存失敗
func (m *Metrics) PlanPersistFailed() {
	m.planPersist.Inc()
}

// ObserveHTTP 記錄一次 HTTP 請求
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Registry 底層 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 處理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
