// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/domain/repository"
	"thoth-writer-api/internal/interfaces/http/dto"
	"thoth-writer-api/internal/interfaces/http/middleware"
	"thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
)

// ContextInvalidator 项目数据变更后清理上下文缓存
type ContextInvalidator interface {
	Invalidate(ctx context.Context, projectID string)
}

// currentUser 返回当前用户；认证中间件未注入时按未认证处理
func currentUser(c *gin.Context) (string, bool) {
	userID := middleware.GetUserIDFromGin(c)
	if userID == "" {
		return "", false
	}
	return userID, true
}

// requestContext 返回带用户与请求信息的 context，未认证时直接写出 401
func requestContext(c *gin.Context) (context.Context, string, bool) {
	userID, ok := currentUser(c)
	if !ok {
		failWith(c, errors.ErrUnauthorized)
		return nil, "", false
	}
	return c.Request.Context(), userID, true
}

// ownedProject 加载属于当前用户的项目
func ownedProject(ctx context.Context, projects repository.ProjectRepository, projectID, userID string) (*entity.Project, error) {
	project, err := projects.GetOwned(ctx, projectID, userID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to load project")
	}
	if project == nil {
		return nil, errors.ErrProjectNotFound
	}
	return project, nil
}

// withProject 把项目 ID 写入日志上下文
func withProject(ctx context.Context, projectID string) context.Context {
	return logger.WithContext(ctx, logger.ProjectIDKey, projectID)
}

// withDocument 把文档 ID 写入日志上下文
func withDocument(ctx context.Context, documentID string) context.Context {
	return logger.WithContext(ctx, logger.DocumentIDKey, documentID)
}

func failWith(c *gin.Context, err error) {
	dto.Fail(c, err)
}

func badRequest(c *gin.Context, err error) {
	dto.BadRequest(c, err)
}
