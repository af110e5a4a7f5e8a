package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"knowlabel/internal/core/ai/cache"
	"knowlabel/internal/core/ai/provider"
	"knowlabel/internal/metrics"
	"knowlabel/internal/pkg/common"

	"go.uber.org/zap"
)

// Response AI 回應結構
type Response struct {
	Content  string
	Model    string
	CacheHit bool
}

// Service AI 服務：在模型提供者前加上逾時、快取與指標
type Service struct {
	provider provider.Provider
	cache    cache.Store
}

// NewService 創建 AI 服務，store 可為 nil（不使用快取）
func NewService(p provider.Provider, store cache.Store) (*Service, error) {
	if p == nil {
		return nil, errors.New("ai provider is required")
	}
	return &Service{
		provider: p,
		cache:    store,
	}, nil
}

// Model 目前使用的模型名稱
func (s *Service) Model() string {
	return s.provider.GetModel()
}

// ProcessRequest 統一對外方法
func (s *Service) ProcessRequest(ctx context.Context, in *provider.Request) (*Response, error) {
	req := *in
	// 統一 prompt 空白，確保快取 key 一致
	req.Prompt = strings.Join(strings.Fields(req.Prompt), " ")
	if req.Prompt == "" {
		return nil, common.NewValidationError("prompt is empty")
	}

	key := s.cacheKey(&req)
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key); err == nil && val != "" {
			metrics.ModelCacheTotal.WithLabelValues("hit").Inc()
			return &Response{Content: val, Model: s.provider.GetModel(), CacheHit: true}, nil
		} else if err != nil && !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("Cache lookup failed", zap.Error(err))
		}
		metrics.ModelCacheTotal.WithLabelValues("miss").Inc()
	}

	// 每次模型調用都有獨立的逾時
	if timeout := s.provider.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.provider.Generate(ctx, &req)
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ModelRequestDuration.WithLabelValues(s.provider.GetModel(), status).Observe(duration.Seconds())
	common.LogModelCall(s.provider.GetModel(), duration, err)

	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}

	if s.cache != nil {
		s.store(ctx, key, &req, resp.Content)
	}

	return &Response{Content: resp.Content, Model: resp.Model}, nil
}

// store 寫入快取；呼叫者判定無效的回覆不寫入，下次仍會重新詢問模型
func (s *Service) store(ctx context.Context, key string, req *provider.Request, content string) {
	if req.Validate != nil {
		if err := req.Validate(content); err != nil {
			metrics.ModelCacheTotal.WithLabelValues("rejected").Inc()
			common.LogDebug("Reply not cached", zap.Error(err))
			return
		}
	}
	if err := s.cache.Set(ctx, key, content); err != nil {
		common.LogWarn("Cache store failed", zap.Error(err))
	}
}

// cacheKey 以模型、輸出格式與 prompt 組成快取鍵
func (s *Service) cacheKey(req *provider.Request) string {
	return fmt.Sprintf("%s|%s|%s|%s", s.provider.GetModel(), req.Format, req.System, req.Prompt)
}

// Close 關閉提供者與快取
func (s *Service) Close() error {
	var errs []error
	if err := s.provider.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
