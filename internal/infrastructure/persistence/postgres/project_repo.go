// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/domain/repository"
)

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(project).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetOwned 获取属于 ownerID 的项目
func (r *ProjectRepository) GetOwned(ctx context.Context, id, ownerID string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetOwned")
	defer span.End()

	var project entity.Project
	err := getDB(ctx, r.client.db).First(&project, "id = ? AND owner_id = ?", id, ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(project).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// Delete 删除项目及其文档与角色
func (r *ProjectRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Delete")
	defer span.End()

	var deleted bool
	err := getDB(ctx, r.client.db).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&entity.Project{}, "id = ? AND owner_id = ?", id, ownerID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		if err := tx.Delete(&entity.Document{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Character{}, "project_id = ?", id).Error
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	return deleted, nil
}

// ListByOwner 获取用户项目列表，最近更新的在前
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.ListByOwner")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&entity.Project{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	var projects []*entity.Project
	if err := query.Order("updated_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&projects).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return repository.NewPagedResult(projects, total, pagination), nil
}

// UpdateWordCount 更新字数统计
func (r *ProjectRepository) UpdateWordCount(ctx context.Context, id string, total int) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdateWordCount")
	defer span.End()

	err := getDB(ctx, r.client.db).Model(&entity.Project{}).
		Where("id = ?", id).
		Update("current_word_count", total).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update word count: %w", err)
	}
	return nil
}
