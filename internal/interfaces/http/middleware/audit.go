// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"thoth-writer-api/pkg/logger"
)

// AccessLogConfig 访问日志配置
type AccessLogConfig struct {
	Enabled   bool
	SkipPaths []string
	// SlowThreshold 超过该耗时的请求以 warn 级别记录
	SlowThreshold time.Duration
}

// AccessLog 访问日志中间件；user_id 与 request_id 由 logger 从 context 注入
func AccessLog(cfg AccessLogConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		for _, p := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", duration.Milliseconds(),
			"ip", c.ClientIP(),
			"bytes", c.Writer.Size(),
			"trace_id", c.GetString("trace_id"),
		}
		if cfg.SlowThreshold > 0 && duration > cfg.SlowThreshold {
			logger.Warn(c.Request.Context(), "slow request", fields...)
			return
		}
		logger.Info(c.Request.Context(), "api request", fields...)
	}
}

// DefaultAccessLogSkipPaths 默认不记录的路径
var DefaultAccessLogSkipPaths = []string{
	"/health",
	"/ready",
	"/metrics",
}
