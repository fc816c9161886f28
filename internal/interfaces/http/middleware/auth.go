// Package middleware 提供 HTTP 中间件
package middleware

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/interfaces/http/dto"
	"thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/utils"
)

// gin 上下文中的用户键
const ctxUserID = "user_id"

// AuthConfig 认证配置
type AuthConfig struct {
	Secret string
	Issuer string
	// SkipPaths 按前缀跳过认证
	SkipPaths []string
	Enabled   bool
	// DevUserID 认证关闭时使用的固定用户
	DevUserID string
}

// Auth Bearer JWT 认证，subject 即用户 ID
func Auth(cfg AuthConfig) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			if cfg.DevUserID != "" {
				setUser(c, cfg.DevUserID)
			}
			c.Next()
			return
		}

		for _, path := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			dto.Fail(c, errors.ErrTokenMissing)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			dto.Fail(c, errors.ErrTokenInvalid.WithDetail("invalid authorization format"))
			return
		}

		claims, err := jwtManager.ParseToken(parts[1])
		if err != nil {
			if stderrors.Is(err, utils.ErrExpiredToken) {
				dto.Fail(c, errors.ErrTokenExpired)
				return
			}
			dto.Fail(c, errors.ErrTokenInvalid)
			return
		}
		if claims.UserID == "" {
			dto.Fail(c, errors.ErrTokenInvalid.WithDetail("token has no subject"))
			return
		}

		setUser(c, claims.UserID)
		c.Next()
	}
}

func setUser(c *gin.Context, userID string) {
	c.Set(ctxUserID, userID)
	ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, userID)
	c.Request = c.Request.WithContext(ctx)
}

// GetUserIDFromGin 获取当前请求的用户 ID
func GetUserIDFromGin(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/metrics",
}
