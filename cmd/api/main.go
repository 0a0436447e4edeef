package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutrition-engine/internal/api"
	"nutrition-engine/internal/api/handlers/health"
	"nutrition-engine/internal/core/agent"
	"nutrition-engine/internal/core/ai/openrouter"
	"nutrition-engine/internal/core/ai/provider"
	"nutrition-engine/internal/core/ai/queue"
	"nutrition-engine/internal/core/cache"
	"nutrition-engine/internal/core/planner"
	"nutrition-engine/internal/core/recipeapi"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/infrastructure/metrics"
	"nutrition-engine/internal/infrastructure/storage"
	"nutrition-engine/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("env", cfg.App.Env),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("openrouter_enabled", cfg.OpenRouter.Enabled),
		zap.String("openrouter_api_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
	)

	m := metrics.New()
	var healthOpts []health.Option

	// 快取
	var store cache.Store
	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "redis":
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Cache.RedisAddr,
				Password: cfg.Cache.RedisPassword,
				DB:       cfg.Cache.RedisDB,
			})
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			redisStore, err := cache.NewRedisStore(ctx, client, cfg.Cache.KeyPrefix, cfg.Cache.TTL)
			cancel()
			if err != nil {
				common.LogFatal("Failed to initialize Redis cache", zap.Error(err))
			}
			defer redisStore.Close()
			store = redisStore
			healthOpts = append(healthOpts, health.WithCheck("redis", redisStore.Ping))
		default:
			memStore := cache.NewManager(cache.WithDefaultTTL(cfg.Cache.TTL))
			store = memStore
			healthOpts = append(healthOpts, health.WithCacheStats(memStore.GetStats))
		}
	}

	// 儲存
	db, err := storage.NewSQLiteStorage(cfg.Storage.Path)
	if err != nil {
		common.LogFatal("Failed to open storage", zap.Error(err))
	}
	defer db.Close()
	healthOpts = append(healthOpts, health.WithCheck("storage", db.Ping))

	// AI 提供者
	var ai provider.Provider
	if cfg.OpenRouter.Enabled {
		aiQueue := queue.NewManager(openrouter.NewClient(cfg.OpenRouter), cfg.OpenRouter.Workers, cfg.OpenRouter.QueueSize)
		defer aiQueue.Close()
		ai = aiQueue
		healthOpts = append(healthOpts, health.WithQueue(aiQueue.Status))
	}

	var cultural agent.CulturalIntelligence
	if ai != nil {
		cultural = agent.NewLLMCulturalIntelligence(ai)
	}
	mealAgent := agent.NewMealAgent(
		agent.NewContextAnalyzer(cultural),
		ai,
		agent.WithSampling(cfg.OpenRouter.MaxTokens, cfg.OpenRouter.Temperature),
	)

	mealPlanner := planner.NewPlanner(db, db, db,
		planner.WithSnack(cfg.Planner.IncludeSnack),
		planner.WithRecorder(m),
	)

	deps := api.Dependencies{
		Profiles:      db,
		Pantry:        db,
		Plans:         mealPlanner,
		Agent:         mealAgent,
		CacheStore:    store,
		Metrics:       m,
		HealthOptions: healthOpts,
	}
	if cfg.RecipeAPI.APIKey != "" {
		deps.Recipes = recipeapi.NewCachedClient(recipeapi.NewSpoonacular(cfg.RecipeAPI), store, cache.Options{
			TTL:      cfg.Cache.TTL,
			Coalesce: cfg.Cache.Coalesce,
			Recorder: m,
		})
	} else {
		common.LogWarn("未設定食譜 API 金鑰，食譜搜尋端點停用")
	}

	router := api.SetupRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
