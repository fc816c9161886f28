package dto

import (
	"time"

	"thoth-writer-api/internal/domain/entity"
)

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title             string         `json:"title" binding:"required,max=255"`
	Description       string         `json:"description"`
	Genre             string         `json:"genre" binding:"max=100"`
	StructureTemplate string         `json:"structure_template" binding:"max=100"`
	TargetWordCount   int            `json:"target_word_count" binding:"gte=0"`
	Metadata          map[string]any `json:"metadata"`
}

// ToEntity 转换为项目实体
func (r *CreateProjectRequest) ToEntity(ownerID string) *entity.Project {
	p := entity.NewProject(ownerID, r.Title)
	p.Description = r.Description
	p.Genre = r.Genre
	p.StructureTemplate = r.StructureTemplate
	p.TargetWordCount = r.TargetWordCount
	if r.Metadata != nil {
		p.Metadata = r.Metadata
	}
	return p
}

// UpdateProjectRequest 更新项目请求，未传字段保持不变
type UpdateProjectRequest struct {
	Title             *string               `json:"title" binding:"omitempty,max=255"`
	Description       *string               `json:"description"`
	Genre             *string               `json:"genre"`
	Status            *entity.ProjectStatus `json:"status"`
	StructureTemplate *string               `json:"structure_template"`
	TargetWordCount   *int                  `json:"target_word_count" binding:"omitempty,gte=0"`
	Metadata          map[string]any        `json:"metadata"`
}

// Apply 写入项目实体
func (r *UpdateProjectRequest) Apply(p *entity.Project) {
	if r.Title != nil {
		p.Title = *r.Title
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Genre != nil {
		p.Genre = *r.Genre
	}
	if r.Status != nil {
		p.Status = *r.Status
	}
	if r.StructureTemplate != nil {
		p.StructureTemplate = *r.StructureTemplate
	}
	if r.TargetWordCount != nil {
		p.TargetWordCount = *r.TargetWordCount
	}
	if r.Metadata != nil {
		p.Metadata = r.Metadata
	}
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	Genre             string         `json:"genre,omitempty"`
	Status            string         `json:"status"`
	StructureTemplate string         `json:"structure_template,omitempty"`
	TargetWordCount   int            `json:"target_word_count"`
	CurrentWordCount  int            `json:"current_word_count"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ToProjectResponse 转换为项目响应
func ToProjectResponse(p *entity.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:                p.ID,
		Title:             p.Title,
		Description:       p.Description,
		Genre:             p.Genre,
		Status:            string(p.Status),
		StructureTemplate: p.StructureTemplate,
		TargetWordCount:   p.TargetWordCount,
		CurrentWordCount:  p.CurrentWordCount,
		Metadata:          p.Metadata,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
