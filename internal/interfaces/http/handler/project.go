package handler

import (
	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/domain/repository"
	"thoth-writer-api/internal/interfaces/http/dto"
	"thoth-writer-api/pkg/errors"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	projects repository.ProjectRepository
	contexts ContextInvalidator
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(projects repository.ProjectRepository, contexts ContextInvalidator) *ProjectHandler {
	return &ProjectHandler{projects: projects, contexts: contexts}
}

// ListProjects 获取当前用户的项目列表
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	page := dto.BindPage(c)
	result, err := h.projects.ListByOwner(ctx, userID, page.Pagination())
	if err != nil {
		failWith(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to list projects"))
		return
	}
	dto.SuccessWithPage(c, result, func(p *entity.Project) any { return dto.ToProjectResponse(p) })
}

// CreateProject 创建项目
// @Router /v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project := req.ToEntity(userID)
	if err := h.projects.Create(ctx, project); err != nil {
		failWith(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to create project"))
		return
	}
	dto.Created(c, dto.ToProjectResponse(project))
}

// GetProject 获取项目详情
// @Router /v1/projects/{pid} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	project, err := ownedProject(ctx, h.projects, dto.BindProjectID(c), userID)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, dto.ToProjectResponse(project))
}

// UpdateProject 更新项目
// @Router /v1/projects/{pid} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	projectID := dto.BindProjectID(c)
	ctx = withProject(ctx, projectID)

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := ownedProject(ctx, h.projects, projectID, userID)
	if err != nil {
		failWith(c, err)
		return
	}
	req.Apply(project)
	if err := h.projects.Update(ctx, project); err != nil {
		failWith(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to update project"))
		return
	}
	h.contexts.Invalidate(ctx, projectID)
	dto.Success(c, dto.ToProjectResponse(project))
}

// DeleteProject 删除项目及其文档和角色
// @Router /v1/projects/{pid} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	projectID := dto.BindProjectID(c)

	deleted, err := h.projects.Delete(withProject(ctx, projectID), projectID, userID)
	if err != nil {
		failWith(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to delete project"))
		return
	}
	if !deleted {
		failWith(c, errors.ErrProjectNotFound)
		return
	}
	h.contexts.Invalidate(ctx, projectID)
	dto.NoContent(c)
}
