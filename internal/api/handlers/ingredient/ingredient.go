package ingredient

import (
	"net/http"
	"strings"

	"knowlabel/internal/api/middleware"
	ingredientService "knowlabel/internal/core/ingredient"
	"knowlabel/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AnalyzeRequest 成分分析請求，text 與 items 可擇一或同時提供
type AnalyzeRequest struct {
	Text  string   `json:"text"`  // 原始成分清單（逗號或換行分隔）
	Items []string `json:"items"` // 已拆分的成分
}

// AnalyzeResponse 成分分析回應
type AnalyzeResponse struct {
	Results []common.Result           `json:"results"`
	Count   int                       `json:"count"`
	Summary ingredientService.Summary `json:"summary"`
}

// ChatRequest 成分問答請求
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Handler 成分相關處理程序
type Handler struct {
	pipeline *ingredientService.Pipeline
	resolver *ingredientService.Resolver
	chat     *ingredientService.ChatService
	debug    bool
}

// NewHandler 創建成分處理程序
func NewHandler(pipeline *ingredientService.Pipeline, resolver *ingredientService.Resolver, chat *ingredientService.ChatService, debug bool) *Handler {
	return &Handler{
		pipeline: pipeline,
		resolver: resolver,
		chat:     chat,
		debug:    debug,
	}
}

// HandleAnalyze 分析成分清單
func (h *Handler) HandleAnalyze(c *gin.Context) {
	requestID := requestid.Get(c)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		h.abort(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	inputs := make([]string, 0, len(req.Items)+1)
	if strings.TrimSpace(req.Text) != "" {
		inputs = append(inputs, req.Text)
	}
	inputs = append(inputs, req.Items...)

	common.LogInfo("開始處理成分分析請求",
		zap.String("request_id", requestID),
		zap.Int("text_length", len(req.Text)),
		zap.Int("items", len(req.Items)),
	)

	results := h.pipeline.Analyze(c.Request.Context(), inputs...)
	if len(results) == 0 {
		h.abort(c, common.ErrNoIngredients)
		return
	}

	summary := ingredientService.Summarize(results)
	middleware.AddLogFields(c,
		zap.Int("segments", len(results)),
		zap.Int("database", summary.Database),
		zap.Int("ai_generated", summary.AIGenerated),
		zap.Int("failed", summary.Failed),
	)

	c.JSON(http.StatusOK, AnalyzeResponse{
		Results: results,
		Count:   len(results),
		Summary: summary,
	})
}

// HandleLookup 只查詢資料集，不呼叫模型
func (h *Handler) HandleLookup(c *gin.Context) {
	name := c.Param("name")
	key := ingredientService.CanonicalKey(name)
	if key == "" {
		h.abort(c, common.ErrInvalidRequest)
		return
	}

	result, ok := h.resolver.Resolve(ingredientService.Segment{Input: strings.TrimSpace(name), Key: key})
	middleware.AddLogFields(c, zap.String("key", key), zap.Bool("found", ok))
	if !ok {
		h.abort(c, common.ErrIngredientNotFound)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleChat 成分問答
func (h *Handler) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	reply, err := h.chat.Answer(c.Request.Context(), req.Message)
	if err != nil {
		if common.IsValidationError(err) {
			h.abort(c, common.ErrInvalidRequest.Wrap(err))
			return
		}
		h.abort(c, err)
		return
	}

	middleware.AddLogFields(c, zap.String("source", string(reply.Source)))
	if reply.Failure != "" {
		middleware.AddLogFields(c, zap.String("failure", string(reply.Failure)))
	}
	c.JSON(http.StatusOK, reply)
}

// abort 以統一格式回傳錯誤
func (h *Handler) abort(c *gin.Context, err error) {
	ce := common.AsCustomError(err)
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("Request failed",
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, ce.Response(h.debug))
}
