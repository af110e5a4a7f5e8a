package common

import (
	"fmt"
	"strings"
)

// Classification 成分分類
type Classification string

const (
	ClassificationBeneficial Classification = "beneficial"
	ClassificationHarmful    Classification = "harmful"
	ClassificationUnknown    Classification = "unknown"
)

// ParseClassification 解析資料集中的分類欄位，支援 beneficial/harmful 與布林寫法
func ParseClassification(raw string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "beneficial", "good", "safe", "true", "yes", "1":
		return ClassificationBeneficial, nil
	case "harmful", "bad", "controversial", "false", "no", "0":
		return ClassificationHarmful, nil
	}
	return "", fmt.Errorf("invalid classification %q", raw)
}

// Source 結果來源
type Source string

const (
	SourceDatabase    Source = "database"
	SourceAIGenerated Source = "ai_generated"
)

// IngredientRecord 資料集中的成分紀錄（載入後不可變）
type IngredientRecord struct {
	CanonicalName  string         `json:"canonical_name"`
	Classification Classification `json:"classification"`
	Description    string         `json:"description"`
	Alternatives   []string       `json:"alternatives"`
}

// Result 單一成分的分析結果
type Result struct {
	InputText      string            `json:"input_text"`
	Key            string            `json:"key"`
	MatchedRecord  *IngredientRecord `json:"matched_record,omitempty"`
	Classification Classification    `json:"classification"`
	Description    string            `json:"description"`
	Alternatives   []string          `json:"alternatives"`
	Source         Source            `json:"source"`
	Failure        string            `json:"failure,omitempty"`
}

// FormatRecord 將成分紀錄格式化為 markdown 摘要（聊天回覆使用）
func FormatRecord(rec IngredientRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**%s**\n\n", titleCase(rec.CanonicalName)))
	if rec.Classification == ClassificationBeneficial {
		sb.WriteString("✅ This ingredient is *beneficial*.\n")
	} else {
		sb.WriteString("⚠ This ingredient may be *harmful or controversial*.\n")
	}
	sb.WriteString(fmt.Sprintf("**Description:** %s\n", rec.Description))
	if len(rec.Alternatives) > 0 {
		sb.WriteString(fmt.Sprintf("**Alternatives:** %s\n", StringSliceToString(rec.Alternatives)))
	}
	return sb.String()
}

// titleCase 每個單字首字母大寫
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
