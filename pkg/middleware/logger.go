package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger はリクエストごとのアクセスログを構造化ログとして出力するGinミドルウェアを返す。
// ステータスコードが500以上はError、400以上はWarn、それ以外はInfoで出力する。
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"origin", c.GetHeader("Origin"),
			"request_id", GetRequestID(c),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.ErrorContext(ctx, "http request", attrs...)
		case status >= 400:
			logger.WarnContext(ctx, "http request", attrs...)
		default:
			logger.InfoContext(ctx, "http request", attrs...)
		}
	}
}
