package handler

import (
	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/application/jobs"
	"thoth-writer-api/internal/application/writing"
	"thoth-writer-api/internal/interfaces/http/dto"
)

// WritingHandler 索引、章节与整书生成
type WritingHandler struct {
	index       *writing.IndexService
	chapters    *writing.ChapterPipeline
	books       *writing.BookGenerator
	jobs        *jobs.Service
	maxChapters int
}

// NewWritingHandler 创建写作处理器
func NewWritingHandler(
	index *writing.IndexService,
	chapters *writing.ChapterPipeline,
	books *writing.BookGenerator,
	jobService *jobs.Service,
	maxChapters int,
) *WritingHandler {
	return &WritingHandler{
		index:       index,
		chapters:    chapters,
		books:       books,
		jobs:        jobService,
		maxChapters: maxChapters,
	}
}

// IndexProject 重建项目文档的检索索引
// @Router /v1/writing/index [post]
func (h *WritingHandler) IndexProject(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.IndexProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	n, err := h.index.IndexProject(withProject(ctx, req.ProjectID), req.ProjectID, userID, req.ClearExistingOrDefault())
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, dto.IndexProjectResponse{ChunksIndexed: n})
}

// GenerateChapter 同步生成单章
// @Router /v1/writing/chapter [post]
func (h *WritingHandler) GenerateChapter(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.ChapterGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	chapterReq := req.ToRequest(userID)
	if err := chapterReq.Validate(); err != nil {
		failWith(c, err)
		return
	}

	result, err := h.chapters.Generate(withProject(ctx, req.ProjectID), chapterReq)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, result)
}

// GenerateBook 同步生成整书，章节数较多时应使用任务接口
// @Router /v1/writing/book [post]
func (h *WritingHandler) GenerateBook(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.BookGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	bookReq := req.ToParams().Request(req.ProjectID, userID)
	if err := bookReq.Validate(h.maxChapters); err != nil {
		failWith(c, err)
		return
	}

	result, err := h.books.Generate(withProject(ctx, req.ProjectID), bookReq, nil)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, result)
}

// SubmitBookJob 异步整书生成，返回 202 与任务
// @Router /v1/writing/book/jobs [post]
func (h *WritingHandler) SubmitBookJob(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.BookGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	job, err := h.jobs.SubmitBook(withProject(ctx, req.ProjectID), req.ProjectID, userID, req.ToParams())
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Accepted(c, dto.ToJobResponse(job))
}
