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

	"knowlabel/internal/api"
	"knowlabel/internal/core/ai/cache"
	"knowlabel/internal/core/ai/ollama"
	"knowlabel/internal/core/ai/queue"
	"knowlabel/internal/core/ai/service"
	"knowlabel/internal/core/ingredient"
	"knowlabel/internal/infrastructure/config"
	"knowlabel/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("ollama_base_url", cfg.Ollama.BaseURL),
		zap.String("ollama_model", cfg.Ollama.Model),
		zap.String("dataset_path", cfg.Dataset.Path),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	// 資料集缺失或損毀時無法提供服務
	table, err := ingredient.LoadTable(cfg.Dataset.Path)
	if err != nil {
		common.LogFatal("Failed to load dataset", zap.Error(err))
	}

	// 初始化快取
	store, err := cache.NewStore(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}

	// 初始化模型服務
	aiService, err := service.NewService(ollama.NewClientFromConfig(cfg), store)
	if err != nil {
		common.LogFatal("Failed to initialize AI service", zap.Error(err))
	}
	defer func() {
		if err := aiService.Close(); err != nil {
			common.LogWarn("Failed to close AI service", zap.Error(err))
		}
	}()

	// 解說工作隊列，限制同時送往模型的請求數
	explainQueue := queue.NewManager(cfg.Explainer.Workers, cfg.Explainer.QueueSize)
	defer explainQueue.Close()

	resolver := ingredient.NewResolver(table)
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Pipeline: ingredient.NewPipeline(resolver, ingredient.NewExplainer(aiService), explainQueue),
		Resolver: resolver,
		Chat:     ingredient.NewChatService(table, aiService),
		Queue:    explainQueue,
		Model:    aiService.Model(),
	})
	if err != nil {
		common.LogFatal("Failed to setup router", zap.Error(err))
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Int("dataset_records", table.Len()),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
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
