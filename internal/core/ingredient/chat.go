package ingredient

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"knowlabel/internal/core/ai/provider"
	"knowlabel/internal/pkg/common"

	"go.uber.org/zap"
)

const chatSystemPrompt = `You are KnowLabel, a friendly assistant for cosmetic and skincare ingredient questions.
Answer concisely in plain language. If a question is unrelated to ingredients or skincare, answer briefly.`

// ChatReply 聊天回覆
type ChatReply struct {
	Answer     string        `json:"answer"`
	Source     common.Source `json:"source"`
	Ingredient *Record       `json:"ingredient,omitempty"`
	Failure    FailureReason `json:"failure,omitempty"`
}

// ChatService 無狀態的成分問答：問題提到資料集成分時直接以資料集回答，否則轉給模型
type ChatService struct {
	table     *Table
	generator Generator
}

// NewChatService 創建問答服務
func NewChatService(table *Table, generator Generator) *ChatService {
	return &ChatService{table: table, generator: generator}
}

// Answer 回答單一問題；模型失敗時回傳友善的替代回答而不是錯誤
func (s *ChatService) Answer(ctx context.Context, message string) (ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatReply{}, common.NewValidationError("message is required")
	}

	if rec, ok := s.match(message); ok {
		common.LogDebug("Chat answered from dataset", zap.String("ingredient", rec.CanonicalName))
		return ChatReply{
			Answer:     common.FormatRecord(rec),
			Source:     common.SourceDatabase,
			Ingredient: &rec,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return s.unavailable(classifyError(err), err), nil
	}

	resp, err := s.generator.ProcessRequest(ctx, &provider.Request{
		Prompt: message,
		System: chatSystemPrompt,
	})
	if err != nil {
		return s.unavailable(classifyError(err), err), nil
	}

	return ChatReply{
		Answer: strings.TrimSpace(resp.Content),
		Source: common.SourceAIGenerated,
	}, nil
}

// unavailable 模型無法回答時的替代回覆
func (s *ChatService) unavailable(reason FailureReason, err error) ChatReply {
	common.LogWarn("Chat model answer unavailable",
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
	return ChatReply{
		Answer:  "Sorry, I can't answer right now: " + reason.Message() + ". Please try again later.",
		Source:  common.SourceAIGenerated,
		Failure: reason,
	}
}

// match 找出問題中提到的最長資料集成分名稱（需位於字詞邊界），同長度以資料集順序為準
func (s *ChatService) match(message string) (Record, bool) {
	text := CanonicalKey(message)
	best := ""
	for _, name := range s.table.Names() {
		if len(name) <= len(best) {
			continue
		}
		if containsWord(text, name) {
			best = name
		}
	}
	if best == "" {
		return Record{}, false
	}
	return s.table.Lookup(best)
}

// containsWord 判斷 name 是否以完整字詞出現在 text 中
func containsWord(text, name string) bool {
	for offset := 0; offset <= len(text); {
		i := strings.Index(text[offset:], name)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(name)
		if isBoundary(text, start, true) && isBoundary(text, end, false) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isBoundary(text string, pos int, before bool) bool {
	var r rune
	if before {
		if pos == 0 {
			return true
		}
		r, _ = utf8.DecodeLastRuneInString(text[:pos])
	} else {
		if pos >= len(text) {
			return true
		}
		r, _ = utf8.DecodeRuneInString(text[pos:])
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
