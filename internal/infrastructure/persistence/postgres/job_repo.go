package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/domain/repository"
)

// JobRepository 任务仓储实现
type JobRepository struct {
	client *Client
}

// NewJobRepository 创建任务仓储
func NewJobRepository(client *Client) *JobRepository {
	return &JobRepository{client: client}
}

// Create 创建任务
func (r *JobRepository) Create(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(job).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取任务
func (r *JobRepository) GetByID(ctx context.Context, id string) (*entity.GenerationJob, error) {
	return r.first(ctx, "postgres.JobRepository.GetByID", "id = ?", id)
}

// GetForUser 获取该用户创建的任务
func (r *JobRepository) GetForUser(ctx context.Context, id, userID string) (*entity.GenerationJob, error) {
	return r.first(ctx, "postgres.JobRepository.GetForUser", "id = ? AND user_id = ?", id, userID)
}

func (r *JobRepository) first(ctx context.Context, spanName string, cond string, args ...any) (*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	var job entity.GenerationJob
	if err := getDB(ctx, r.client.db).Where(cond, args...).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// Update 更新任务
func (r *JobRepository) Update(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(job).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// UpdateProgress 更新任务进度
func (r *JobRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.UpdateProgress")
	defer span.End()

	err := getDB(ctx, r.client.db).Model(&entity.GenerationJob{}).
		Where("id = ?", id).
		Update("progress", entity.ClampProgress(progress)).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// ListByProject 获取项目任务列表，status 为空时不过滤
func (r *JobRepository) ListByProject(ctx context.Context, projectID string, status entity.JobStatus, pagination repository.Pagination) (*repository.PagedResult[*entity.GenerationJob], error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.ListByProject")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&entity.GenerationJob{}).Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	var jobs []*entity.GenerationJob
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&jobs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return repository.NewPagedResult(jobs, total, pagination), nil
}
