package repository

import (
	"context"

	"thoth-writer-api/internal/domain/entity"
)

// DocumentRepository 文档仓储接口
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error

	// GetByIDForOwner 通过项目归属校验获取文档，不可见时返回 nil
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*entity.Document, error)

	// Update 整体写回文档；pre 非空且记录已被修改时返回 ErrStaleWrite
	Update(ctx context.Context, doc *entity.Document, pre *Precondition) error

	Delete(ctx context.Context, id string) error

	// ListByProject 按 order_index 升序
	ListByProject(ctx context.Context, projectID string, pagination Pagination) (*PagedResult[*entity.Document], error)

	// ListAllByProject 按 order_index 升序返回全部文档
	ListAllByProject(ctx context.Context, projectID string) ([]*entity.Document, error)

	// NextOrderIndex 返回 MAX(order_index)+1，项目无文档时返回 0
	NextOrderIndex(ctx context.Context, projectID string) (int, error)

	// SumWordCount 项目文档总字数
	SumWordCount(ctx context.Context, projectID string) (int, error)
}
