package middleware

import (
	"net/http"
	"time"

	"knowlabel/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// logFieldsKey 處理程序附加的請求日誌欄位
const logFieldsKey = "knowlabel.log_fields"

// AddLogFields 把處理程序的業務欄位附加到請求完成日誌
func AddLogFields(c *gin.Context, fields ...zap.Field) {
	if v, ok := c.Get(logFieldsKey); ok {
		if prev, ok := v.([]zap.Field); ok {
			fields = append(prev, fields...)
		}
	}
	c.Set(logFieldsKey, fields)
}

// Logger 請求日誌中間件，每個請求一筆，依狀態碼決定級別
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("request_id", requestid.Get(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if v, ok := c.Get(logFieldsKey); ok {
			if extra, ok := v.([]zap.Field); ok {
				fields = append(fields, extra...)
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			common.LogError("請求失敗", fields...)
		case status >= http.StatusBadRequest:
			common.LogWarn("請求被拒絕", fields...)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

// Recovery 恢復中間件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				common.LogError("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.Stack("stack"),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, common.ErrInternalError.Response(false))
			}
		}()

		c.Next()
	}
}
