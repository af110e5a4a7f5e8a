// Package providertest 提供測試用的假模型提供者
package providertest

import (
	"context"
	"sync"
	"time"

	"knowlabel/internal/core/ai/provider"
)

// Fake 以函式決定回應的假提供者，並記錄收到的 prompt
type Fake struct {
	Model   string
	Timeout time.Duration
	Reply   func(ctx context.Context, req *provider.Request) (string, error)

	mu      sync.Mutex
	prompts []string
	closed  bool
}

var _ provider.Provider = (*Fake)(nil)

// Generate 呼叫 Reply 產生回應
func (f *Fake) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()

	content, err := f.Reply(ctx, req)
	if err != nil {
		return nil, err
	}
	return &provider.Response{Content: content, Model: f.GetModel()}, nil
}

// Calls 回傳目前為止收到的 prompt
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Closed 是否已被關閉
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// GetModel 模型名稱
func (f *Fake) GetModel() string {
	if f.Model == "" {
		return "fake-model"
	}
	return f.Model
}

// GetTimeout 逾時設定
func (f *Fake) GetTimeout() time.Duration {
	return f.Timeout
}

// Close 標記為已關閉
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Static 固定回傳內容
func Static(content string) func(context.Context, *provider.Request) (string, error) {
	return func(context.Context, *provider.Request) (string, error) {
		return content, nil
	}
}

// Failing 固定回傳錯誤
func Failing(err error) func(context.Context, *provider.Request) (string, error) {
	return func(context.Context, *provider.Request) (string, error) {
		return "", err
	}
}

// Blocking 等到 context 結束才回傳
func Blocking() func(context.Context, *provider.Request) (string, error) {
	return func(ctx context.Context, _ *provider.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
}
