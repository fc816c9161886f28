package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/application/writing"
	"thoth-writer-api/internal/interfaces/http/dto"
	"thoth-writer-api/pkg/errors"
)

// VersionHandler 文档版本、评论与单文档生成
type VersionHandler struct {
	elements *writing.ElementService
}

// NewVersionHandler 创建版本处理器
func NewVersionHandler(elements *writing.ElementService) *VersionHandler {
	return &VersionHandler{elements: elements}
}

// ListVersions 列出版本，include_content=true 时附带正文
// @Router /v1/documents/{did}/versions [get]
func (h *VersionHandler) ListVersions(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	includeContent := false
	if raw := c.Query("include_content"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			failWith(c, errors.ErrInvalidParam.WithDetail("include_content must be a boolean"))
			return
		}
		includeContent = v
	}

	documentID := dto.BindDocumentID(c)
	list, err := h.elements.ListVersions(withDocument(ctx, documentID), documentID, userID, includeContent)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, list)
}

// GetVersion 获取单个版本
// @Router /v1/documents/{did}/versions/{vid} [get]
func (h *VersionHandler) GetVersion(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	documentID := dto.BindDocumentID(c)
	view, err := h.elements.GetVersion(withDocument(ctx, documentID), documentID, dto.BindVersionID(c), userID)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, view)
}

// CreateVersion 人工编辑，追加 manual_edit 版本
// @Router /v1/documents/{did}/versions [post]
func (h *VersionHandler) CreateVersion(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.ManualEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	documentID := dto.BindDocumentID(c)
	view, err := h.elements.ManualEdit(withDocument(ctx, documentID), &writing.ManualEditRequest{
		DocumentID:      documentID,
		UserID:          userID,
		Content:         req.Content,
		SourceVersionID: req.SourceVersionID,
		Summary:         req.Summary,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Created(c, view)
}

// ListComments 列出文档评论
// @Router /v1/documents/{did}/comments [get]
func (h *VersionHandler) ListComments(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	documentID := dto.BindDocumentID(c)
	comments, err := h.elements.ListComments(withDocument(ctx, documentID), documentID, userID)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, comments)
}

// AddComment 添加评论，可关联到具体版本
// @Router /v1/documents/{did}/comments [post]
func (h *VersionHandler) AddComment(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	documentID := dto.BindDocumentID(c)
	comment, err := h.elements.AddComment(withDocument(ctx, documentID), documentID, userID, req.Content, req.VersionID)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Created(c, comment)
}

// GenerateElement 生成或改写单个文档，结果作为新版本写入
// @Router /v1/documents/{did}/generate [post]
func (h *VersionHandler) GenerateElement(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.GenerateElementRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	documentID := dto.BindDocumentID(c)
	result, err := h.elements.Generate(withDocument(ctx, documentID), &writing.ElementRequest{
		DocumentID:      documentID,
		UserID:          userID,
		Instructions:    req.Instructions,
		MinWordCount:    req.MinWordCount,
		MaxWordCount:    req.MaxWordCount,
		Summary:         req.Summary,
		SourceVersionID: req.SourceVersionID,
		CommentIDs:      req.CommentIDs,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, result)
}
