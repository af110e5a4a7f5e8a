package ollama

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"knowlabel/internal/core/ai/provider"
	"knowlabel/internal/infrastructure/config"
	"knowlabel/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const generatePath = "/api/generate"

var (
	// ErrEmptyResponse 模型回應內容為空
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrMalformedResponse 模型回應無法解析
	ErrMalformedResponse = errors.New("malformed response from model")
)

// StatusError 表示 Ollama 回傳非 200 狀態碼
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama returned status %d: %s", e.StatusCode, e.Body)
}

// generateRequest Ollama /api/generate 請求
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Format  string         `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// generateChunk Ollama 回應（單一物件或 NDJSON 串流中的一行）
type generateChunk struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	Error           string `json:"error"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Client Ollama API 客戶端
type Client struct {
	client *resty.Client
	cfg    provider.Config
}

var _ provider.Provider = (*Client)(nil)

// NewClient 創建新的 Ollama 客戶端
func NewClient(cfg provider.Config) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		client: client,
		cfg:    cfg,
	}
}

// NewClientFromConfig 由應用設定創建客戶端
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(provider.Config{
		BaseURL:     cfg.Ollama.BaseURL,
		Model:       cfg.Ollama.Model,
		Timeout:     cfg.Ollama.Timeout,
		MaxRetries:  cfg.Ollama.MaxRetries,
		Temperature: cfg.Ollama.Temperature,
		MaxTokens:   cfg.Ollama.MaxTokens,
	})
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := generateRequest{
		Model:  c.cfg.Model,
		Prompt: req.Prompt,
		System: req.System,
		Format: req.Format,
		Stream: false,
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxTokens
	}
	body.Options = map[string]any{"temperature": temperature}
	if maxTokens > 0 {
		body.Options["num_predict"] = maxTokens
	}

	common.LogDebug("Sending request to Ollama",
		zap.String("model", body.Model),
		zap.Int("prompt_length", len(body.Prompt)),
		zap.String("format", body.Format),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(generatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Ollama: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{
			StatusCode: resp.StatusCode(),
			Body:       common.Truncate(strings.TrimSpace(resp.String()), 200),
		}
	}

	result, err := parseGenerateBody(resp.Body())
	if err != nil {
		common.LogWarn("Failed to parse Ollama response",
			zap.Error(err),
			zap.String("model", body.Model),
			zap.String("response", common.Truncate(resp.String(), 200)),
		)
		return nil, err
	}
	if result.Model == "" {
		result.Model = c.cfg.Model
	}

	return result, nil
}

// parseGenerateBody 解析單一 JSON 物件或 NDJSON 串流，串接每行的 response 欄位
func parseGenerateBody(raw []byte) (*provider.Response, error) {
	var (
		sb     strings.Builder
		parsed int
		out    provider.Response
	)

	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := common.ParseJSONBytes(line, &chunk); err != nil {
			continue
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, chunk.Error)
		}
		parsed++
		sb.WriteString(chunk.Response)
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		if chunk.Done {
			out.Usage.PromptTokens = chunk.PromptEvalCount
			out.Usage.CompletionTokens = chunk.EvalCount
		}
	}

	if parsed == 0 {
		return nil, ErrMalformedResponse
	}

	out.Content = strings.TrimSpace(sb.String())
	if out.Content == "" {
		return nil, ErrEmptyResponse
	}
	return &out, nil
}

// IsTimeout 判斷錯誤是否為逾時
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.cfg.Model
}

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.cfg.Timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
