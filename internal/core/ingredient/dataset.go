package ingredient

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"knowlabel/internal/metrics"
	"knowlabel/internal/pkg/common"

	"go.uber.org/zap"
)

const defaultDescription = "No description available."

// 欄位別名：原始資料集使用 ingredient / beneficial
var columnAliases = map[string][]string{
	"name":           {"name", "ingredient", "canonical_name"},
	"classification": {"classification", "beneficial"},
	"description":    {"description"},
	"alternatives":   {"alternatives"},
}

// Table 不可變的參考資料表，載入後只讀，可安全地並行查詢
type Table struct {
	records map[string]Record
	names   []string // 載入順序
}

// NewTable 由紀錄建立資料表，名稱會正規化，重複名稱以後者為準
func NewTable(records []Record) *Table {
	t := &Table{records: make(map[string]Record, len(records))}
	for _, rec := range records {
		key := CanonicalKey(rec.CanonicalName)
		if key == "" {
			continue
		}
		if _, exists := t.records[key]; !exists {
			t.names = append(t.names, key)
		}
		rec.CanonicalName = key
		rec.Alternatives = append([]string(nil), rec.Alternatives...)
		t.records[key] = rec
	}
	return t
}

// LoadTable 從 CSV 檔案載入資料表，檔案缺失或損毀時回傳錯誤
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.ErrDatasetUnavailable.Wrap(fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	table, err := ParseTable(f)
	if err != nil {
		return nil, common.ErrDatasetUnavailable.Wrap(fmt.Errorf("parse %s: %w", path, err))
	}

	metrics.DatasetRecords.Set(float64(table.Len()))
	common.LogInfo("資料集已載入",
		zap.String("path", path),
		zap.Int("records", table.Len()),
	)
	return table, nil
}

// ParseTable 解析 CSV 內容，需有 name/ingredient、classification/beneficial、description 欄位
func ParseTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		name := strings.TrimSpace(row[cols["name"]])
		if name == "" {
			common.LogDebug("Skipping dataset row without name", zap.Int("line", line))
			continue
		}

		var classification common.Classification
		if raw := strings.TrimSpace(row[cols["classification"]]); raw == "" {
			// 空白分類視為有疑慮
			common.LogWarn("Dataset row without classification, treated as harmful",
				zap.Int("line", line),
				zap.String("name", name),
			)
			classification = common.ClassificationHarmful
		} else if classification, err = common.ParseClassification(raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		description := strings.TrimSpace(row[cols["description"]])
		if description == "" {
			common.LogWarn("Dataset row without description",
				zap.Int("line", line),
				zap.String("name", name),
			)
			description = defaultDescription
		}

		var alternatives []string
		if idx, ok := cols["alternatives"]; ok {
			alternatives = common.SplitList(row[idx], ";")
		}

		records = append(records, Record{
			CanonicalName:  name,
			Classification: classification,
			Description:    description,
			Alternatives:   alternatives,
		})
	}

	return NewTable(records), nil
}

// resolveColumns 對應表頭欄位位置
func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		index[h] = i
	}

	cols := make(map[string]int, len(columnAliases))
	for col, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				cols[col] = i
				break
			}
		}
	}

	for _, required := range []string{"name", "classification", "description"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return cols, nil
}

// Lookup 以正規化鍵查詢，回傳紀錄的複本
func (t *Table) Lookup(key string) (Record, bool) {
	rec, ok := t.records[key]
	if !ok {
		return Record{}, false
	}
	rec.Alternatives = append([]string(nil), rec.Alternatives...)
	return rec, true
}

// Len 紀錄筆數
func (t *Table) Len() int {
	return len(t.records)
}

// Names 依載入順序回傳所有正規化名稱
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}
