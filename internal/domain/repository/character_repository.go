package repository

import (
	"context"

	"thoth-writer-api/internal/domain/entity"
)

// CharacterRepository 角色仓储接口
type CharacterRepository interface {
	Create(ctx context.Context, character *entity.Character) error

	GetByID(ctx context.Context, id string) (*entity.Character, error)

	Update(ctx context.Context, character *entity.Character) error

	Delete(ctx context.Context, id string) error

	ListByProject(ctx context.Context, projectID string) ([]*entity.Character, error)
}
