package repository

import (
	"context"

	"thoth-writer-api/internal/domain/entity"
)

// ConversationRepository 写作助手对话仓储接口
type ConversationRepository interface {
	Create(ctx context.Context, turn *entity.ConversationTurn) error

	// ListRecent 返回用户最近 limit 条消息，按时间正序；projectID 为空时不按项目过滤
	ListRecent(ctx context.Context, userID, projectID string, limit int) ([]*entity.ConversationTurn, error)
}
