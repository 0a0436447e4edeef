package api

import (
	"context"
	"net/http"
	"time"

	"nutrition-engine/internal/api/handlers/analysis"
	"nutrition-engine/internal/api/handlers/health"
	"nutrition-engine/internal/api/handlers/meal"
	"nutrition-engine/internal/api/handlers/recipe"
	"nutrition-engine/internal/api/handlers/user"
	"nutrition-engine/internal/api/middleware"
	"nutrition-engine/internal/core/cache"
	"nutrition-engine/internal/core/recipeapi"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 單一請求的處理上限
const timeoutDuration = 120 * time.Second

// MetricsExporter 請求指標與 /metrics 輸出
type MetricsExporter interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// Dependencies 路由需要的服務；除 Profiles、Pantry、Plans 與 Agent 外皆可為 nil
type Dependencies struct {
	Profiles      user.ProfileRepository
	Pantry        user.PantryRepository
	Plans         user.PlanService
	Agent         meal.Agent
	Recipes       recipeapi.Client
	CacheStore    cache.Store
	Metrics       MetricsExporter
	HealthOptions []health.Option
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger(deps.Metrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	healthHandler := health.NewHandler(cfg.App.Version, deps.HealthOptions...)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)))
	}
	v1.Use(middleware.NewDeduplicator(cfg.DedupWindow).Middleware())

	analysisHandler := analysis.NewHandler()
	v1.POST("/nutrition/targets", analysisHandler.HandleTargets)
	v1.POST("/policy", analysisHandler.HandlePolicy)
	v1.POST("/pantry/analyze", analysisHandler.HandlePantryAnalyze)
	v1.POST("/pantry/stock", analysisHandler.HandlePantryStock)

	userHandler := user.NewHandler(deps.Profiles, deps.Pantry, deps.Plans)
	users := v1.Group("/users/:userId")
	{
		users.PUT("/profile", userHandler.HandlePutProfile)
		users.GET("/profile", userHandler.HandleGetProfile)
		users.POST("/pantry", userHandler.HandleAddPantry)
		users.GET("/pantry", userHandler.HandleListPantry)
		users.POST("/plans", userHandler.HandleGeneratePlan)
		users.GET("/plans", userHandler.HandleGetPlan)
	}

	mealHandler := meal.NewHandler(deps.Agent)
	v1.POST("/meals/prompt", mealHandler.HandlePrompt)
	v1.POST("/meals/generate", mealHandler.HandleGenerate)

	recipeHandler := recipe.NewHandler(deps.Recipes, deps.CacheStore)
	v1.GET("/recipes/search", recipeHandler.HandleSearch)
	v1.GET("/recipes/random", recipeHandler.HandleRandom)
	v1.GET("/recipes/:id", recipeHandler.HandleGetByID)
	v1.DELETE("/cache/:namespace", recipeHandler.HandleInvalidate)

	common.LogInfo("Router setup completed",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("recipe_api", deps.Recipes != nil),
		zap.Bool("cache", deps.CacheStore != nil),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)
	return router
}
