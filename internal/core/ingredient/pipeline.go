package ingredient

import (
	"context"
	"sync"
	"time"

	"knowlabel/internal/core/ai/queue"
	"knowlabel/internal/pkg/common"

	"go.uber.org/zap"
)

// Explaining 模型解說協作者
type Explaining interface {
	Explain(ctx context.Context, key string) Explanation
}

// Pipeline 成分分析流程：切割、正規化、查表，未命中者交給共用隊列並行解說
type Pipeline struct {
	resolver  *Resolver
	explainer Explaining
	queue     *queue.Manager
}

// NewPipeline 創建分析流程，queue 的 worker 數即同時進行的模型請求上限
func NewPipeline(resolver *Resolver, explainer Explaining, q *queue.Manager) *Pipeline {
	return &Pipeline{
		resolver:  resolver,
		explainer: explainer,
		queue:     q,
	}
}

// Summary 依來源統計的結果數量
type Summary struct {
	Database    int `json:"database"`
	AIGenerated int `json:"ai_generated"`
	Failed      int `json:"failed"`
}

// Summarize 統計結果來源
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Source == common.SourceDatabase:
			s.Database++
		case r.Failure != "":
			s.Failed++
		default:
			s.AIGenerated++
		}
	}
	return s
}

// Analyze 分析一或多段原始文字，結果順序與輸入片段順序一致；
// 每個片段恰有一筆結果，同一批次中相同的未知鍵只請求一次模型
func (p *Pipeline) Analyze(ctx context.Context, inputs ...string) []Result {
	start := time.Now()

	var segments []Segment
	for _, in := range inputs {
		segments = append(segments, Split(in)...)
	}
	if len(segments) == 0 {
		return []Result{}
	}

	results := make([]Result, len(segments))
	pending := make(map[string][]int) // 未命中鍵 -> 片段位置
	var order []string
	for i, seg := range segments {
		if res, ok := p.resolver.Resolve(seg); ok {
			results[i] = res
			continue
		}
		if _, seen := pending[seg.Key]; !seen {
			order = append(order, seg.Key)
		}
		pending[seg.Key] = append(pending[seg.Key], i)
	}

	explanations := p.explainAll(ctx, order)
	for key, positions := range pending {
		exp := explanations[key]
		for _, i := range positions {
			results[i] = exp.Result(segments[i])
		}
	}

	summary := Summarize(results)
	common.LogInfo("成分分析完成",
		zap.Int("segments", len(segments)),
		zap.Int("database", summary.Database),
		zap.Int("ai_generated", summary.AIGenerated),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return results
}

// explainAll 經由隊列請求模型解說，等待全部完成
func (p *Pipeline) explainAll(ctx context.Context, keys []string) map[string]Explanation {
	out := make(map[string]Explanation, len(keys))
	if len(keys) == 0 {
		return out
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, key := range keys {
		key := key
		wg.Add(1)
		task := func() {
			defer wg.Done()
			exp := p.explainer.Explain(ctx, key)
			mu.Lock()
			out[key] = exp
			mu.Unlock()
		}
		if err := p.queue.Submit(ctx, task); err != nil {
			// 無法排入時就地執行；ctx 已結束時 Explain 會立即回報失敗
			task()
		}
	}
	wg.Wait()
	return out
}
