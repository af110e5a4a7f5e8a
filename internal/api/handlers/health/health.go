package health

import (
	"net/http"
	"runtime"
	"time"

	"knowlabel/internal/core/ai/queue"
	"knowlabel/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Dataset   DatasetStatus          `json:"dataset"`
	Model     string                 `json:"model"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
}

// DatasetStatus 參考資料集狀態
type DatasetStatus struct {
	Records int `json:"records"`
}

// Handler 健康檢查處理程序
type Handler struct {
	version   string
	model     string
	records   func() int
	queue     *queue.Manager
	startedAt time.Time
}

// NewHandler 創建健康檢查處理程序，records 回傳目前資料集筆數；q 可為 nil
func NewHandler(version, model string, records func() int, q *queue.Manager) *Handler {
	return &Handler{
		version:   version,
		model:     model,
		records:   records,
		queue:     q,
		startedAt: time.Now(),
	}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Dataset:   DatasetStatus{Records: h.records()},
		Model:     h.model,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	if h.queue != nil {
		response.Queue = h.queue.GetQueueStatus()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器：資料集必須已載入
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.records() == 0 {
		common.LogWarn("Readiness check failed: dataset is empty")
		c.JSON(http.StatusServiceUnavailable, common.ErrServiceUnavailable.Response(false))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
