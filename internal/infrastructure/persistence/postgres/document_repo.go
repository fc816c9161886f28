package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/domain/repository"
)

// DocumentRepository 文档仓储实现
type DocumentRepository struct {
	client *Client
}

// NewDocumentRepository 创建文档仓储
func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

// Create 创建文档
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(doc).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByIDForOwner 仅返回 ownerID 名下项目中的文档
func (r *DocumentRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetByIDForOwner")
	defer span.End()

	var doc entity.Document
	err := getDB(ctx, r.client.db).
		Select("documents.*").
		Joins("JOIN projects ON projects.id = documents.project_id").
		Where("documents.id = ? AND projects.owner_id = ?", id, ownerID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// Update 写回标题、正文、字数与 metadata
func (r *DocumentRepository) Update(ctx context.Context, doc *entity.Document, pre *repository.Precondition) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Update")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(doc)
	if pre != nil && !pre.ExpectedUpdatedAt.IsZero() {
		query = query.Where("updated_at = ?", pre.ExpectedUpdatedAt)
	}
	res := query.
		Select("title", "content", "word_count", "document_metadata", "updated_at").
		Updates(doc)
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to update document: %w", res.Error)
	}
	if res.RowsAffected == 0 && pre != nil && !pre.ExpectedUpdatedAt.IsZero() {
		return repository.ErrStaleWrite
	}
	return nil
}

// Delete 删除文档
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Delete")
	defer span.End()

	if err := getDB(ctx, r.client.db).Delete(&entity.Document{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// ListByProject 分页列出项目文档
func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.ListByProject")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&entity.Document{}).Where("project_id = ?", projectID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	var docs []*entity.Document
	if err := query.Order("order_index ASC, created_at ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return repository.NewPagedResult(docs, total, pagination), nil
}

// ListAllByProject 返回项目全部文档
func (r *DocumentRepository) ListAllByProject(ctx context.Context, projectID string) ([]*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.ListAllByProject")
	defer span.End()

	var docs []*entity.Document
	if err := getDB(ctx, r.client.db).
		Where("project_id = ?", projectID).
		Order("order_index ASC, created_at ASC").
		Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// NextOrderIndex 返回 MAX(order_index)+1，没有文档时为 0
func (r *DocumentRepository) NextOrderIndex(ctx context.Context, projectID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.NextOrderIndex")
	defer span.End()

	var next int
	err := getDB(ctx, r.client.db).Model(&entity.Document{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(MAX(order_index) + 1, 0)").
		Scan(&next).Error
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to compute next order index: %w", err)
	}
	return next, nil
}

// SumWordCount 项目文档总字数
func (r *DocumentRepository) SumWordCount(ctx context.Context, projectID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.SumWordCount")
	defer span.End()

	var total int
	err := getDB(ctx, r.client.db).Model(&entity.Document{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(SUM(word_count), 0)").
		Scan(&total).Error
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to sum word count: %w", err)
	}
	return total, nil
}
