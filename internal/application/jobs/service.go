// Package jobs 异步整书生成：接口侧创建任务并投递消息，worker 侧消费并执行
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"thoth-writer-api/internal/application/writing"
	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/infrastructure/messaging"
	apperrors "thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/metrics"
)

// Store 任务持久化
type Store interface {
	Create(ctx context.Context, job *entity.GenerationJob) error
	GetByID(ctx context.Context, id string) (*entity.GenerationJob, error)
	GetForUser(ctx context.Context, id, userID string) (*entity.GenerationJob, error)
	Update(ctx context.Context, job *entity.GenerationJob) error
	UpdateProgress(ctx context.Context, id string, progress int) error
}

// ProjectReader 投递前校验项目归属
type ProjectReader interface {
	GetOwned(ctx context.Context, id, ownerID string) (*entity.Project, error)
}

// Publisher 消息投递
type Publisher interface {
	PublishBookJob(ctx context.Context, job *messaging.BookJobMessage) (string, error)
}

// BookRunner 整书生成
type BookRunner interface {
	Generate(ctx context.Context, req *writing.BookRequest, progress writing.ProgressFunc) (*writing.BookResult, error)
}

// BookParams 整书任务参数，随任务持久化
type BookParams struct {
	BookPrompt          string         `json:"book_prompt"`
	ChapterCount        int            `json:"chapter_count"`
	PerChapterWordCount *int           `json:"per_chapter_word_count,omitempty"`
	Constraints         map[string]any `json:"constraints,omitempty"`
	UseRAG              bool           `json:"use_rag"`
	ReindexDocuments    bool           `json:"reindex_documents"`
	CreateDocuments     bool           `json:"create_documents"`
}

// Request 转换为生成请求
func (p BookParams) Request(projectID, userID string) *writing.BookRequest {
	return &writing.BookRequest{
		ProjectID:           projectID,
		UserID:              userID,
		BookPrompt:          p.BookPrompt,
		ChapterCount:        p.ChapterCount,
		PerChapterWordCount: p.PerChapterWordCount,
		Constraints:         p.Constraints,
		UseRAG:              p.UseRAG,
		ReindexDocuments:    p.ReindexDocuments,
		CreateDocuments:     p.CreateDocuments,
	}
}

// Service 整书任务服务
type Service struct {
	store       Store
	projects    ProjectReader
	publisher   Publisher
	runner      BookRunner
	maxChapters int
}

// NewService publisher 与 runner 按进程角色可为 nil：接口进程不执行任务，worker 不投递任务
func NewService(store Store, projects ProjectReader, publisher Publisher, runner BookRunner, maxChapters int) *Service {
	return &Service{
		store:       store,
		projects:    projects,
		publisher:   publisher,
		runner:      runner,
		maxChapters: maxChapters,
	}
}

// SubmitBook 校验请求、创建任务并投递到 stream:book_gen
func (s *Service) SubmitBook(ctx context.Context, projectID, userID string, params BookParams) (*entity.GenerationJob, error) {
	if err := params.Request(projectID, userID).Validate(s.maxChapters); err != nil {
		return nil, err
	}
	project, err := s.projects.GetOwned(ctx, projectID, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, apperrors.ErrInvalidParam.WithError(err)
	}
	job := entity.NewGenerationJob(projectID, userID, entity.JobTypeBookGeneration, raw)
	if err := s.store.Create(ctx, job); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create job")
	}
	ctx = logger.WithContext(ctx, logger.JobIDKey, job.ID)

	_, err = s.publisher.PublishBookJob(ctx, &messaging.BookJobMessage{
		JobID:     job.ID,
		ProjectID: projectID,
		UserID:    userID,
		Params:    raw,
	})
	if err != nil {
		job.Fail(string(apperrors.CodeQueueError), err.Error())
		if uerr := s.store.Update(ctx, job); uerr != nil {
			logger.Error(ctx, "failed to mark unpublished job as failed", uerr)
		}
		metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusFailed)).Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeQueueError, "failed to enqueue job")
	}

	metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusPending)).Inc()
	logger.Info(ctx, "book job submitted", "chapter_count", params.ChapterCount)
	return job, nil
}

// Get 仅返回该用户的任务
func (s *Service) Get(ctx context.Context, jobID, userID string) (*entity.GenerationJob, error) {
	job, err := s.store.GetForUser(ctx, jobID, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load job")
	}
	if job == nil {
		return nil, apperrors.ErrJobNotFound
	}
	return job, nil
}

// terminal 这些错误重试无意义，任务直接失败且消息不再重投
func terminal(err error) bool {
	return apperrors.IsCode(err, apperrors.CodeGenerationFailed) ||
		apperrors.IsCode(err, apperrors.CodeGenerationTimeout) ||
		apperrors.IsCode(err, apperrors.CodeInvalidParam) ||
		apperrors.IsNotFound(err)
}

// partiallyPersisted 已有章节落库时重试会按新的 order_index 重复创建，只能终止
func partiallyPersisted(err error) ([]string, bool) {
	var ce *writing.ChapterError
	if errors.As(err, &ce) && len(ce.Persisted) > 0 {
		return ce.Persisted, true
	}
	return nil, false
}

// HandleBookMessage worker 侧消息处理。已处于终态的任务直接忽略，重复投递是安全的。
func (s *Service) HandleBookMessage(ctx context.Context, msg *messaging.Message) error {
	var m messaging.BookJobMessage
	if err := msg.UnmarshalPayload(&m); err != nil {
		return messaging.Permanent(fmt.Errorf("decode book job: %w", err))
	}

	job, err := s.store.GetByID(ctx, m.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", m.JobID, err)
	}
	if job == nil {
		return messaging.Permanent(apperrors.ErrJobNotFound.WithDetail(m.JobID))
	}
	if job.Status.IsTerminal() {
		logger.Warn(ctx, "job already finished, skipping", "status", job.Status)
		return nil
	}

	var params BookParams
	if err := json.Unmarshal(job.InputParams, &params); err != nil {
		s.fail(ctx, job, apperrors.ErrInvalidParam.WithError(err))
		return messaging.Permanent(err)
	}

	job.Start()
	if err := s.store.Update(ctx, job); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusRunning)).Inc()

	result, err := s.runner.Generate(ctx, params.Request(job.ProjectID, job.UserID), func(ctx context.Context, done, total int) {
		progress := 0
		if total > 0 {
			progress = done * 100 / total
		}
		if err := s.store.UpdateProgress(ctx, job.ID, progress); err != nil {
			logger.Error(ctx, "failed to update job progress", err)
		}
		logger.Info(ctx, "book job progress", "chapters_done", done, "chapter_count", total)
	})
	if err != nil {
		if terminal(err) {
			s.fail(ctx, job, err)
			return messaging.Permanent(err)
		}
		if ids, ok := partiallyPersisted(err); ok {
			logger.Warn(ctx, "book job failed after chapters were saved, not retrying", "persisted_document_ids", ids)
			cause := apperrors.ErrInternalError.
				WithDetail(fmt.Sprintf("%v; %d chapter(s) already saved", err, len(ids))).
				WithError(err)
			s.fail(ctx, job, cause)
			return messaging.Permanent(cause)
		}
		job.Status = entity.JobStatusPending
		job.RetryCount++
		if uerr := s.store.Update(ctx, job); uerr != nil {
			logger.Error(ctx, "failed to reset job for retry", uerr)
		}
		return err
	}

	out, err := json.Marshal(result)
	if err != nil {
		s.fail(ctx, job, err)
		return messaging.Permanent(err)
	}
	job.Complete(out)
	if err := s.store.Update(ctx, job); err != nil {
		return fmt.Errorf("store job result: %w", err)
	}
	metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusCompleted)).Inc()
	logger.Info(ctx, "book job completed", "chapters", len(result.Chapters), "duration_ms", job.DurationMs)
	return nil
}

func (s *Service) fail(ctx context.Context, job *entity.GenerationJob, cause error) {
	appErr := apperrors.AsAppError(cause)
	msg := appErr.Message
	if appErr.Detail != "" {
		msg += ": " + appErr.Detail
	}
	job.Fail(string(appErr.Code), msg)
	if err := s.store.Update(ctx, job); err != nil {
		logger.Error(ctx, "failed to mark job as failed", err)
	}
	metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusFailed)).Inc()
	logger.Error(ctx, "book job failed", cause)
}
