package dto

import "thoth-writer-api/internal/domain/entity"

// CharacterRequest 创建或更新角色；更新时未传字段保持不变
type CharacterRequest struct {
	Name        *string        `json:"name" binding:"omitempty,max=255"`
	Description *string        `json:"description"`
	Personality *string        `json:"personality"`
	Backstory   *string        `json:"backstory"`
	Metadata    map[string]any `json:"metadata"`
}

// Apply 写入角色实体
func (r *CharacterRequest) Apply(c *entity.Character) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Description != nil {
		c.Description = *r.Description
	}
	if r.Personality != nil {
		c.Personality = *r.Personality
	}
	if r.Backstory != nil {
		c.Backstory = *r.Backstory
	}
	if r.Metadata != nil {
		c.Metadata = r.Metadata
	}
}
