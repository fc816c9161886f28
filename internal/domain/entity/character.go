package entity

import "time"

// Character 角色实体
type Character struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID   string         `json:"project_id" gorm:"type:uuid;index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	Personality string         `json:"personality,omitempty" gorm:"type:text"`
	Backstory   string         `json:"backstory,omitempty" gorm:"type:text"`
	Metadata    map[string]any `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Character) TableName() string {
	return "characters"
}

// Role 返回 metadata.role
func (c *Character) Role() string {
	if c == nil || c.Metadata == nil {
		return ""
	}
	role, _ := c.Metadata["role"].(string)
	return role
}
