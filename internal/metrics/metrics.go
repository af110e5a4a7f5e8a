package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "knowlabel"

var (
	// LookupsTotal 資料集查詢次數（hit / miss）
	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingredient_lookups_total",
			Help:      "Total number of reference dataset lookups",
		},
		[]string{"result"},
	)

	// ExplanationsTotal 模型解說結果（ok 或失敗原因）
	ExplanationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explanations_total",
			Help:      "Total number of fallback explanations by outcome",
		},
		[]string{"outcome"},
	)

	// ModelRequestDuration 模型請求耗時
	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Model request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model", "status"},
	)

	// ModelCacheTotal 模型回應快取命中
	ModelCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_cache_total",
			Help:      "Model response cache lookups and skipped stores",
		},
		[]string{"result"}, // "hit" / "miss" / "rejected"
	)

	// DatasetRecords 已載入的資料集筆數
	DatasetRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Number of ingredient records loaded from the reference dataset",
		},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		LookupsTotal,
		ExplanationsTotal,
		ModelRequestDuration,
		ModelCacheTotal,
		DatasetRecords,
		httpRequestDuration,
		httpRequestsTotal,
	)
}

// Middleware 記錄 HTTP 請求耗時與次數
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// 使用路由模板避免 label 爆量
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	}
}

// Handler Prometheus 抓取端點
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
