package ingredient

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// typographic 變體折疊為 ASCII
var punctuationFolder = strings.NewReplacer(
	"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "−", "-",
	"‘", "'", "’", "'", "´", "'",
	"“", "\"", "”", "\"",
)

// 片段前後可去除的裝飾符號（有機標記 * 、項目符號等）
const decoration = ".;:*•·\"'!?"

// Split 將原始成分清單切成片段，逗號與換行為分隔符，空片段直接略過
func Split(raw string) []Segment {
	var segments []Segment
	for _, part := range splitList(raw) {
		key := CanonicalKey(part)
		if key == "" {
			continue
		}
		segments = append(segments, Segment{
			Input: strings.Join(strings.Fields(part), " "),
			Key:   key,
		})
	}
	return segments
}

// splitList 逗號或換行切割；數字之間的逗號（1,2-Hexanediol）不是分隔符
func splitList(raw string) []string {
	runes := []rune(raw)
	var parts []string
	start := 0
	for i, r := range runes {
		switch r {
		case '\n', '\r':
		case ',':
			if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				continue
			}
		default:
			continue
		}
		parts = append(parts, string(runes[start:i]))
		start = i + 1
	}
	return append(parts, string(runes[start:]))
}

// CanonicalKey 產生查詢用的正規化鍵：NFKC、小寫、壓縮空白、折疊標點並去除前後裝飾符號
func CanonicalKey(s string) string {
	s = norm.NFKC.String(s)
	s = punctuationFolder.Replace(s)
	s = strings.ToLower(s)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(decoration, r)
	})
	return strings.Join(strings.Fields(s), " ")
}
