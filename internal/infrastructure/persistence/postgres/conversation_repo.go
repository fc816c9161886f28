package postgres

import (
	"context"
	"fmt"
	"slices"

	"thoth-writer-api/internal/domain/entity"
)

// ConversationRepository 对话仓储实现
type ConversationRepository struct {
	client *Client
}

// NewConversationRepository 创建对话仓储
func NewConversationRepository(client *Client) *ConversationRepository {
	return &ConversationRepository{client: client}
}

// Create 写入一条消息
func (r *ConversationRepository) Create(ctx context.Context, turn *entity.ConversationTurn) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(turn).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create conversation turn: %w", err)
	}
	return nil
}

// ListRecent 按创建时间倒序取最近 limit 条后翻转为正序
func (r *ConversationRepository) ListRecent(ctx context.Context, userID, projectID string, limit int) ([]*entity.ConversationTurn, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.ListRecent")
	defer span.End()

	query := getDB(ctx, r.client.db).Where("user_id = ?", userID)
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	var turns []*entity.ConversationTurn
	if err := query.Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&turns).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list conversation turns: %w", err)
	}
	slices.Reverse(turns)
	return turns, nil
}
