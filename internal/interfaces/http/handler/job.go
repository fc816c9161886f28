package handler

import (
	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/application/jobs"
	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/domain/repository"
	"thoth-writer-api/internal/interfaces/http/dto"
	"thoth-writer-api/pkg/errors"
)

// JobHandler 生成任务查询
type JobHandler struct {
	jobs     *jobs.Service
	projects repository.ProjectRepository
	store    repository.JobRepository
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobService *jobs.Service, projects repository.ProjectRepository, store repository.JobRepository) *JobHandler {
	return &JobHandler{jobs: jobService, projects: projects, store: store}
}

// GetJob 查询任务状态与结果
// @Router /v1/jobs/{jid} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	job, err := h.jobs.Get(ctx, dto.BindJobID(c), userID)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, dto.ToJobResponse(job))
}

// ListProjectJobs 分页列出项目任务，可按 status 过滤
// @Router /v1/projects/{pid}/jobs [get]
func (h *JobHandler) ListProjectJobs(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	project, err := ownedProject(ctx, h.projects, dto.BindProjectID(c), userID)
	if err != nil {
		failWith(c, err)
		return
	}

	status := entity.JobStatus(c.Query("status"))
	page := dto.BindPage(c)
	result, err := h.store.ListByProject(ctx, project.ID, status, page.Pagination())
	if err != nil {
		failWith(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to list jobs"))
		return
	}
	dto.SuccessWithPage(c, result, func(j *entity.GenerationJob) any { return dto.ToJobResponse(j) })
}
