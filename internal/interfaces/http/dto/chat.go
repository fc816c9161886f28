package dto

import (
	"time"

	"thoth-writer-api/internal/domain/entity"
)

// ChatMessageRequest 向写作助手发送消息；project_id 为空时不附带项目概况
type ChatMessageRequest struct {
	Message   string `json:"message" binding:"required"`
	ProjectID string `json:"project_id"`
}

// ChatHistoryQuery 对话历史查询参数
type ChatHistoryQuery struct {
	ProjectID string `form:"project_id"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ChatTurnResponse 单条对话消息
type ChatTurnResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ProjectID string    `json:"project_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatHistoryResponse 对话历史
type ChatHistoryResponse struct {
	Messages []*ChatTurnResponse `json:"messages"`
	Total    int                 `json:"total"`
}

// ToChatHistoryResponse 保持仓储返回的时间正序
func ToChatHistoryResponse(turns []*entity.ConversationTurn) *ChatHistoryResponse {
	resp := &ChatHistoryResponse{Messages: make([]*ChatTurnResponse, 0, len(turns))}
	for _, t := range turns {
		resp.Messages = append(resp.Messages, &ChatTurnResponse{
			ID:        t.ID,
			Role:      string(t.Role),
			Content:   t.Content,
			ProjectID: t.ProjectIDOrEmpty(),
			CreatedAt: t.CreatedAt,
		})
	}
	resp.Total = len(resp.Messages)
	return resp
}
