package ingredient

import (
	"knowlabel/internal/pkg/common"
)

// Record 資料集中的成分紀錄
type Record = common.IngredientRecord

// Result 單一成分的分析結果
type Result = common.Result

// Segment 正規化後的輸入片段
type Segment struct {
	Input string // 使用者輸入（去除前後空白）
	Key   string // 查詢用的正規化鍵
}

// FailureReason 模型解說失敗原因，空字串代表成功
type FailureReason string

const (
	FailureNone        FailureReason = ""
	FailureUnavailable FailureReason = "unavailable"
	FailureTimeout     FailureReason = "timeout"
	FailureCanceled    FailureReason = "canceled"
	FailureBadStatus   FailureReason = "bad_status"
	FailureMalformed   FailureReason = "malformed"
	FailureEmpty       FailureReason = "empty"
)

// Message 給使用者看的失敗說明
func (r FailureReason) Message() string {
	switch r {
	case FailureNone:
		return ""
	case FailureTimeout:
		return "the local language model did not answer in time"
	case FailureCanceled:
		return "the request was canceled before the model answered"
	case FailureBadStatus:
		return "the local language model returned an error"
	case FailureMalformed:
		return "the local language model returned an unreadable answer"
	case FailureEmpty:
		return "the local language model returned an empty answer"
	default:
		return "the local language model could not be reached"
	}
}

// Explanation 模型解說結果：成功時帶有描述，失敗時帶有原因
type Explanation struct {
	Description  string
	Alternatives []string
	Failure      FailureReason
	Err          error // 僅供診斷
}

// OK 是否成功取得解說
func (e Explanation) OK() bool {
	return e.Failure == FailureNone
}

// Result 轉為與資料集命中相同形狀的結果，AI 來源一律標為 Unknown
func (e Explanation) Result(seg Segment) Result {
	res := Result{
		InputText:      seg.Input,
		Key:            seg.Key,
		Classification: common.ClassificationUnknown,
		Source:         common.SourceAIGenerated,
		Alternatives:   []string{},
	}
	if !e.OK() {
		res.Description = "Explanation unavailable: " + e.Failure.Message() + "."
		res.Failure = string(e.Failure)
		return res
	}
	res.Description = e.Description
	if len(e.Alternatives) > 0 {
		res.Alternatives = append([]string(nil), e.Alternatives...)
	}
	return res
}
