package ingredient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"knowlabel/internal/core/ai/ollama"
	"knowlabel/internal/core/ai/provider"
	"knowlabel/internal/core/ai/service"
	"knowlabel/internal/metrics"
	"knowlabel/internal/pkg/common"

	"go.uber.org/zap"
)

const maxAlternatives = 8

// Generator 文字生成協作者（AI 服務）
type Generator interface {
	ProcessRequest(ctx context.Context, req *provider.Request) (*service.Response, error)
}

// Explainer 未知成分的模型解說
type Explainer struct {
	generator Generator
}

// NewExplainer 創建模型解說器
func NewExplainer(generator Generator) *Explainer {
	return &Explainer{generator: generator}
}

// explanationReply 模型被要求回傳的 JSON 格式
type explanationReply struct {
	Description  string          `json:"description"`
	Alternatives json.RawMessage `json:"alternatives"`
}

// BuildExplainPrompt 組裝解說 prompt
func BuildExplainPrompt(key string) string {
	return fmt.Sprintf(`You are a cosmetic chemistry assistant. Explain the cosmetic or skincare ingredient "%s".
Cover its purpose in formulations, its general safety profile, and suggest natural alternatives.
Respond ONLY with a JSON object, no markdown, of this form:
{"description": "2-4 sentences about purpose and safety", "alternatives": ["natural alternative", "..."]}
If you do not know the ingredient, say so in the description and return an empty alternatives list.`, key)
}

// Explain 向模型請求解說；任何失敗都以 FailureReason 回報，不回傳 error
func (e *Explainer) Explain(ctx context.Context, key string) Explanation {
	if err := ctx.Err(); err != nil {
		return e.fail(key, classifyError(err), err)
	}

	resp, err := e.generator.ProcessRequest(ctx, &provider.Request{
		Prompt:   BuildExplainPrompt(key),
		Format:   "json",
		Validate: validateExplanation,
	})
	if err != nil {
		return e.fail(key, classifyError(err), err)
	}

	if strings.TrimSpace(resp.Content) == "" {
		return e.fail(key, FailureEmpty, ollama.ErrEmptyResponse)
	}

	exp, err := parseExplanation(resp.Content)
	if err != nil {
		return e.fail(key, FailureMalformed, err)
	}

	metrics.ExplanationsTotal.WithLabelValues("ok").Inc()
	common.LogDebug("Ingredient explained by model",
		zap.String("key", key),
		zap.Bool("cache_hit", resp.CacheHit),
		zap.Int("alternatives", len(exp.Alternatives)),
	)
	return exp
}

// fail 記錄失敗並回傳帶原因的解說結果
func (e *Explainer) fail(key string, reason FailureReason, err error) Explanation {
	metrics.ExplanationsTotal.WithLabelValues(string(reason)).Inc()
	common.LogWarn("Fallback explanation unavailable",
		zap.String("key", key),
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
	return Explanation{Failure: reason, Err: err}
}

// classifyError 將模型錯誤對應到失敗原因
func classifyError(err error) FailureReason {
	var statusErr *ollama.StatusError
	switch {
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case ollama.IsTimeout(err):
		return FailureTimeout
	case errors.As(err, &statusErr):
		return FailureBadStatus
	case errors.Is(err, ollama.ErrEmptyResponse):
		return FailureEmpty
	case errors.Is(err, ollama.ErrMalformedResponse):
		return FailureMalformed
	default:
		return FailureUnavailable
	}
}

// validateExplanation 只有可解析的回覆才能進入快取
func validateExplanation(content string) error {
	_, err := parseExplanation(content)
	return err
}

// parseExplanation 解析模型回覆；JSON 優先，純文字則整段當作描述
func parseExplanation(content string) (Explanation, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Explanation{}, errors.New("empty explanation")
	}

	raw, ok := common.ExtractJSONObject(content)
	if !ok {
		return Explanation{Description: content}, nil
	}

	var reply explanationReply
	if err := common.ParseJSON(raw, &reply); err != nil {
		// 模型偶爾會漏掉鍵的雙引號
		if err2 := common.ParseJSON(common.QuoteJSONKeys(raw), &reply); err2 != nil {
			return Explanation{}, fmt.Errorf("failed to parse model reply: %w", err)
		}
	}

	description := strings.TrimSpace(reply.Description)
	if description == "" {
		return Explanation{}, errors.New("model reply has no description")
	}

	return Explanation{
		Description:  description,
		Alternatives: parseAlternatives(reply.Alternatives),
	}, nil
}

// parseAlternatives 接受字串陣列或以逗號/分號分隔的字串，去重並限制數量
func parseAlternatives(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		var joined string
		if err := json.Unmarshal(raw, &joined); err != nil {
			return nil
		}
		items = strings.FieldsFunc(joined, func(r rune) bool { return r == ',' || r == ';' })
	}

	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		k := strings.ToLower(item)
		if item == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
		if len(out) == maxAlternatives {
			break
		}
	}
	return out
}
