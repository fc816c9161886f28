// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/interfaces/http/dto"
	"thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
)

// 限流作用域
const (
	ScopeAPI        = "api"
	ScopeGeneration = "generation"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool
	// Scope 区分普通接口与生成接口的配额
	Scope string
	// Limit 每个窗口允许的请求数
	Limit  int
	Window time.Duration
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// KeyFunc 构建限流 key
type KeyFunc func(userID, scope string) string

// RateLimit 按用户的滑动窗口限流
func RateLimit(cfg RateLimitConfig, limiter RateLimiter, keyFn KeyFunc) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Scope == "" {
		cfg.Scope = ScopeAPI
	}

	return func(c *gin.Context) {
		subject := GetUserIDFromGin(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}

		allowed, remaining, err := limiter.Allow(c.Request.Context(), keyFn(subject, cfg.Scope), cfg.Limit, cfg.Window)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			dto.Fail(c, errors.ErrTooManyRequests.WithDetail(cfg.Scope+" quota exceeded"))
			return
		}

		c.Next()
	}
}
