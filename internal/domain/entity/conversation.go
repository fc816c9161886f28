package entity

import (
	"strings"
	"time"
)

// TurnRole 对话消息角色
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

// ConversationTurn 写作助手的一条对话消息；ProjectID 为空表示未绑定项目
type ConversationTurn struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string         `json:"user_id" gorm:"type:uuid;index:idx_turns_user_created,priority:1;not null"`
	ProjectID *string        `json:"project_id,omitempty" gorm:"type:uuid;index"`
	Role      TurnRole       `json:"role" gorm:"type:varchar(16);not null"`
	Content   string         `json:"content" gorm:"type:text;not null"`
	Metadata  map[string]any `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_turns_user_created,priority:2"`
}

// TableName 指定表名
func (ConversationTurn) TableName() string {
	return "conversation_turns"
}

// NewConversationTurn projectID 为空白时不绑定项目
func NewConversationTurn(userID, projectID string, role TurnRole, content string, at time.Time) *ConversationTurn {
	turn := &ConversationTurn{
		UserID:    userID,
		Role:      role,
		Content:   content,
		Metadata:  map[string]any{},
		CreatedAt: at,
	}
	if pid := strings.TrimSpace(projectID); pid != "" {
		turn.ProjectID = &pid
	}
	return turn
}

// ProjectIDOrEmpty 未绑定项目时返回空串
func (t *ConversationTurn) ProjectIDOrEmpty() string {
	if t == nil || t.ProjectID == nil {
		return ""
	}
	return *t.ProjectID
}
