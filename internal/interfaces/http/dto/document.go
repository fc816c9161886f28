package dto

import (
	"time"

	"thoth-writer-api/internal/domain/entity"
)

// CreateDocumentRequest 创建文档请求；order_index 缺省时追加到末尾
type CreateDocumentRequest struct {
	ProjectID    string         `json:"project_id" binding:"required"`
	Title        string         `json:"title" binding:"required,max=255"`
	Content      string         `json:"content"`
	DocumentType string         `json:"document_type"`
	OrderIndex   *int           `json:"order_index" binding:"omitempty,gte=0"`
	Metadata     map[string]any `json:"metadata"`
}

// ToEntity 转换为文档实体
func (r *CreateDocumentRequest) ToEntity(orderIndex int) *entity.Document {
	d := &entity.Document{
		ProjectID:    r.ProjectID,
		Title:        r.Title,
		DocumentType: entity.DocumentType(r.DocumentType),
		OrderIndex:   orderIndex,
		Metadata:     r.Metadata,
	}
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	d.SetContent(r.Content)
	return d
}

// UpdateDocumentRequest 更新文档请求；metadata 传入时整体替换。
// expected_updated_at 用于乐观锁，文档已被修改时返回 409。
type UpdateDocumentRequest struct {
	Title             *string        `json:"title" binding:"omitempty,max=255"`
	Content           *string        `json:"content"`
	Metadata          map[string]any `json:"metadata"`
	ExpectedUpdatedAt *time.Time     `json:"expected_updated_at"`
}

// ToPatch 转换为文档补丁
func (r *UpdateDocumentRequest) ToPatch() entity.DocumentPatch {
	p := entity.DocumentPatch{Title: r.Title, Content: r.Content, Metadata: r.Metadata}
	if r.ExpectedUpdatedAt != nil {
		p.ExpectedUpdatedAt = *r.ExpectedUpdatedAt
	}
	return p
}

// DocumentResponse 文档响应
type DocumentResponse struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	Title        string         `json:"title"`
	Content      string         `json:"content,omitempty"`
	DocumentType string         `json:"document_type"`
	OrderIndex   int            `json:"order_index"`
	WordCount    int            `json:"word_count"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ToDocumentResponse 列表中省略正文与版本历史
func ToDocumentResponse(d *entity.Document, full bool) *DocumentResponse {
	resp := &DocumentResponse{
		ID:           d.ID,
		ProjectID:    d.ProjectID,
		Title:        d.Title,
		DocumentType: string(d.DocumentType),
		OrderIndex:   d.OrderIndex,
		WordCount:    d.WordCount,
		Metadata:     d.Metadata,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if full {
		resp.Content = d.Content
		return resp
	}
	meta := make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		if k == entity.MetaVersions || k == entity.MetaComments {
			continue
		}
		meta[k] = v
	}
	resp.Metadata = meta
	return resp
}

// GenerateElementRequest 单文档生成/改写请求。
// comment_ids 缺省时全部评论参与，传空数组时不使用评论。
type GenerateElementRequest struct {
	Instructions    *string  `json:"instructions"`
	MinWordCount    *int     `json:"min_word_count"`
	MaxWordCount    *int     `json:"max_word_count"`
	Summary         *string  `json:"summary"`
	SourceVersionID *string  `json:"source_version_id"`
	CommentIDs      []string `json:"comment_ids"`
}

// ManualEditRequest 人工编辑生成新版本
type ManualEditRequest struct {
	Content         string  `json:"content" binding:"required"`
	SourceVersionID *string `json:"source_version_id"`
	Summary         *string `json:"summary"`
}

// AddCommentRequest 添加评论
type AddCommentRequest struct {
	Content   string  `json:"content" binding:"required"`
	VersionID *string `json:"version_id"`
}
