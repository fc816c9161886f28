package repository

import (
	"context"

	"thoth-writer-api/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error

	// GetOwned 获取属于该用户的项目，不存在或不属于该用户时返回 nil
	GetOwned(ctx context.Context, id, ownerID string) (*entity.Project, error)

	Update(ctx context.Context, project *entity.Project) error

	Delete(ctx context.Context, id, ownerID string) (bool, error)

	ListByOwner(ctx context.Context, ownerID string, pagination Pagination) (*PagedResult[*entity.Project], error)

	// UpdateWordCount 写入项目当前总字数
	UpdateWordCount(ctx context.Context, id string, total int) error
}
