package handler

import (
	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/application/document"
	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/interfaces/http/dto"
	"thoth-writer-api/pkg/errors"
)

// DocumentHandler 文档处理器
type DocumentHandler struct {
	documents *document.Service
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(documents *document.Service) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// CreateDocument 创建文档
// @Router /v1/documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx = withProject(ctx, req.ProjectID)

	orderIndex := 0
	if req.OrderIndex != nil {
		orderIndex = *req.OrderIndex
	} else {
		next, err := h.documents.NextOrderIndex(ctx, req.ProjectID)
		if err != nil {
			failWith(c, err)
			return
		}
		orderIndex = next
	}

	doc, err := h.documents.Create(ctx, req.ToEntity(orderIndex), userID)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Created(c, dto.ToDocumentResponse(doc, true))
}

// ListDocuments 分页列出项目文档，按 order_index 排序
// @Router /v1/documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	projectID := c.Query("project_id")
	if projectID == "" {
		failWith(c, errors.ErrInvalidParam.WithDetail("project_id is required"))
		return
	}

	page := dto.BindPage(c)
	result, err := h.documents.List(withProject(ctx, projectID), projectID, userID, page.Pagination())
	if err != nil {
		failWith(c, err)
		return
	}
	dto.SuccessWithPage(c, result, func(d *entity.Document) any { return dto.ToDocumentResponse(d, false) })
}

// GetDocument 获取文档详情
// @Router /v1/documents/{did} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	doc, err := h.documents.GetByID(ctx, dto.BindDocumentID(c), userID)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, dto.ToDocumentResponse(doc, true))
}

// UpdateDocument 更新文档；expected_updated_at 不匹配时返回 409
// @Router /v1/documents/{did} [put]
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	documentID := dto.BindDocumentID(c)

	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	doc, err := h.documents.Update(withDocument(ctx, documentID), documentID, req.ToPatch(), userID)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, dto.ToDocumentResponse(doc, true))
}

// DeleteDocument 删除文档
// @Router /v1/documents/{did} [delete]
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	documentID := dto.BindDocumentID(c)
	if err := h.documents.Delete(withDocument(ctx, documentID), documentID, userID); err != nil {
		failWith(c, err)
		return
	}
	dto.NoContent(c)
}
