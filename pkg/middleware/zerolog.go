package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	ctxPkg "github.com/RadiumAg/image-saas/pkg/context"
)

// GinLoggerMiddleware 为每个请求输出一条访问日志，附带调用方与追踪 id.
// 5xx 记为 error，4xx 记为 warn，健康检查只在 debug 级别输出.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		logger := ctxPkg.Logger(c.Request.Context())

		var event *zerolog.Event

		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		case strings.HasSuffix(route, "/health") || strings.Contains(route, "/health/"):
			event = logger.Debug()
		default:
			event = logger.Info()
		}

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		event = event.
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("route", route).
			Int("bytes", c.Writer.Size()).
			Str("client_ip", c.ClientIP())

		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.Msg("HTTP request")
	}
}
