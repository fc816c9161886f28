// Package entity 定义领域实体
package entity

import (
	"time"
)

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "draft"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusArchived   ProjectStatus = "archived"
)

// 项目 metadata 中的保留键
const (
	ProjectMetaConstraints  = "constraints"
	ProjectMetaInstructions = "instructions"
)

// Instruction 项目级写作指令
type Instruction struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Project 写作项目实体
type Project struct {
	ID                string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID           string         `json:"owner_id" gorm:"type:uuid;index;not null"`
	Title             string         `json:"title" gorm:"type:varchar(255);not null"`
	Description       string         `json:"description,omitempty" gorm:"type:text"`
	Genre             string         `json:"genre,omitempty" gorm:"type:varchar(100)"`
	Status            ProjectStatus  `json:"status" gorm:"type:varchar(50);default:'draft'"`
	StructureTemplate string         `json:"structure_template,omitempty" gorm:"type:varchar(100)"`
	TargetWordCount   int            `json:"target_word_count,omitempty"`
	CurrentWordCount  int            `json:"current_word_count" gorm:"default:0"`
	Metadata          map[string]any `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt         time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// NewProject 创建新项目
func NewProject(ownerID, title string) *Project {
	return &Project{
		OwnerID:  ownerID,
		Title:    title,
		Status:   ProjectStatusDraft,
		Metadata: map[string]any{},
	}
}

// Constraints 返回 metadata 中的写作约束
func (p *Project) Constraints() map[string]any {
	if p == nil || p.Metadata == nil {
		return map[string]any{}
	}
	if c, ok := p.Metadata[ProjectMetaConstraints].(map[string]any); ok {
		return c
	}
	return map[string]any{}
}

// Instructions 解析 metadata 中的指令列表，缺少 title 或 detail 的条目被跳过
func (p *Project) Instructions() []Instruction {
	if p == nil || p.Metadata == nil {
		return nil
	}
	raw, ok := p.Metadata[ProjectMetaInstructions].([]any)
	if !ok {
		return nil
	}
	out := make([]Instruction, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title, _ := m["title"].(string)
		detail, _ := m["detail"].(string)
		if title == "" || detail == "" {
			continue
		}
		ins := Instruction{Title: title, Detail: detail}
		ins.ID, _ = m["id"].(string)
		ins.CreatedAt, _ = m["created_at"].(string)
		out = append(out, ins)
	}
	return out
}
