package repository

import (
	"context"
	"errors"

	"thoth-writer-api/internal/domain/entity"
)

// ErrStaleWrite 条件写入失败，记录已被并发修改
var ErrStaleWrite = errors.New("record modified concurrently")

// JobRepository 生成任务仓储接口
type JobRepository interface {
	Create(ctx context.Context, job *entity.GenerationJob) error

	GetByID(ctx context.Context, id string) (*entity.GenerationJob, error)

	// GetForUser 仅返回该用户创建的任务
	GetForUser(ctx context.Context, id, userID string) (*entity.GenerationJob, error)

	Update(ctx context.Context, job *entity.GenerationJob) error

	// UpdateProgress 更新任务进度（0-100）
	UpdateProgress(ctx context.Context, id string, progress int) error

	ListByProject(ctx context.Context, projectID string, status entity.JobStatus, pagination Pagination) (*PagedResult[*entity.GenerationJob], error)
}
