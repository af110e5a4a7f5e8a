package api

import (
	"errors"
	"net/http"
	"time"

	"knowlabel/internal/api/handlers/health"
	ingredientHandler "knowlabel/internal/api/handlers/ingredient"
	"knowlabel/internal/api/middleware"
	"knowlabel/internal/core/ai/queue"
	ingredientService "knowlabel/internal/core/ingredient"
	"knowlabel/internal/infrastructure/config"
	"knowlabel/internal/metrics"
	"knowlabel/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Pipeline *ingredientService.Pipeline
	Resolver *ingredientService.Resolver
	Chat     *ingredientService.ChatService
	Queue    *queue.Manager // 僅用於健康檢查，可為 nil
	Model    string
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Pipeline == nil || deps.Resolver == nil || deps.Chat == nil {
		return nil, errors.New("router dependencies are incomplete")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())
	if cfg.Metrics.Enabled {
		router.Use(metrics.Middleware())
	}

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(cfg.MaxBodySize))

	// 健康檢查路由不受限流與逾時影響
	table := deps.Resolver.Table()
	healthHandler := health.NewHandler(cfg.App.Version, deps.Model, table.Len, deps.Queue)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, metrics.Handler())
	}

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	api.Use(middleware.Deduplication(cfg.DedupWindow))
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		h := ingredientHandler.NewHandler(deps.Pipeline, deps.Resolver, deps.Chat, cfg.App.Debug)

		ingredientGroup := api.Group("/ingredients")
		{
			ingredientGroup.POST("/analyze", h.HandleAnalyze)
			ingredientGroup.GET("/:name", h.HandleLookup)
		}

		api.POST("/chat", h.HandleChat)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, common.ErrNotFound.Response(false))
	})

	common.LogInfo("Router setup completed successfully",
		zap.Int("dataset_records", table.Len()),
		zap.String("model", deps.Model),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
		zap.Duration("timeout", cfg.RequestTimeout),
		zap.Int64("max_body_size", cfg.MaxBodySize),
	)

	return router, nil
}
