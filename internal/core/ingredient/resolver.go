package ingredient

import (
	"strings"

	"knowlabel/internal/metrics"
	"knowlabel/internal/pkg/common"
)

// Resolver 以參考資料表分類成分
type Resolver struct {
	table *Table
}

// NewResolver 創建分類查詢器
func NewResolver(table *Table) *Resolver {
	return &Resolver{table: table}
}

// Table 回傳使用中的資料表
func (r *Resolver) Table() *Table {
	return r.table
}

// Lookup 查詢正規化鍵，依序嘗試完整鍵、括號外名稱、括號內名稱、斜線分隔的名稱
func (r *Resolver) Lookup(key string) (Record, bool) {
	for _, candidate := range lookupCandidates(key) {
		if rec, ok := r.table.Lookup(candidate); ok {
			metrics.LookupsTotal.WithLabelValues("hit").Inc()
			return rec, true
		}
	}
	metrics.LookupsTotal.WithLabelValues("miss").Inc()
	return Record{}, false
}

// Resolve 命中時回傳 source=database 的結果；未命中回傳 false，由呼叫端走模型解說
func (r *Resolver) Resolve(seg Segment) (Result, bool) {
	rec, ok := r.Lookup(seg.Key)
	if !ok {
		return Result{}, false
	}

	alternatives := make([]string, len(rec.Alternatives))
	copy(alternatives, rec.Alternatives)
	return Result{
		InputText:      seg.Input,
		Key:            seg.Key,
		MatchedRecord:  &rec,
		Classification: rec.Classification,
		Description:    rec.Description,
		Alternatives:   alternatives,
		Source:         common.SourceDatabase,
	}, true
}

// lookupCandidates INCI 常見寫法：「aqua (water)」、「aqua/water/eau」
func lookupCandidates(key string) []string {
	candidates := []string{key}
	add := func(s string) {
		if s = CanonicalKey(s); s != "" && s != key {
			candidates = append(candidates, s)
		}
	}

	if open, end := strings.Index(key, "("), strings.LastIndex(key, ")"); open > 0 && end > open {
		add(key[:open] + key[end+1:])
		add(key[open+1 : end])
	}
	if strings.Contains(key, "/") {
		for _, part := range strings.Split(key, "/") {
			add(part)
		}
	}
	return candidates
}
