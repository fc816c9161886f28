package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/domain/repository"
	"thoth-writer-api/internal/interfaces/http/dto"
	"thoth-writer-api/pkg/errors"
)

// CharacterHandler 角色处理器
type CharacterHandler struct {
	projects   repository.ProjectRepository
	characters repository.CharacterRepository
	contexts   ContextInvalidator
}

// NewCharacterHandler 创建角色处理器
func NewCharacterHandler(projects repository.ProjectRepository, characters repository.CharacterRepository, contexts ContextInvalidator) *CharacterHandler {
	return &CharacterHandler{projects: projects, characters: characters, contexts: contexts}
}

// ListCharacters 列出项目角色
// @Router /v1/projects/{pid}/characters [get]
func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}
	project, err := ownedProject(ctx, h.projects, dto.BindProjectID(c), userID)
	if err != nil {
		failWith(c, err)
		return
	}

	items, err := h.characters.ListByProject(ctx, project.ID)
	if err != nil {
		failWith(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to list characters"))
		return
	}
	if items == nil {
		items = []*entity.Character{}
	}
	dto.Success(c, items)
}

// CreateCharacter 创建角色
// @Router /v1/projects/{pid}/characters [post]
func (h *CharacterHandler) CreateCharacter(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.CharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		failWith(c, errors.ErrInvalidParam.WithDetail("name is required"))
		return
	}

	project, err := ownedProject(ctx, h.projects, dto.BindProjectID(c), userID)
	if err != nil {
		failWith(c, err)
		return
	}

	character := &entity.Character{ProjectID: project.ID}
	req.Apply(character)
	if err := h.characters.Create(ctx, character); err != nil {
		failWith(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to create character"))
		return
	}
	h.contexts.Invalidate(ctx, project.ID)
	dto.Created(c, character)
}

// UpdateCharacter 更新角色
// @Router /v1/characters/{cid} [put]
func (h *CharacterHandler) UpdateCharacter(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.CharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	character, err := h.ownedCharacter(c, dto.BindCharacterID(c), userID)
	if err != nil {
		failWith(c, err)
		return
	}
	req.Apply(character)
	if err := h.characters.Update(ctx, character); err != nil {
		failWith(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to update character"))
		return
	}
	h.contexts.Invalidate(ctx, character.ProjectID)
	dto.Success(c, character)
}

// DeleteCharacter 删除角色
// @Router /v1/characters/{cid} [delete]
func (h *CharacterHandler) DeleteCharacter(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	character, err := h.ownedCharacter(c, dto.BindCharacterID(c), userID)
	if err != nil {
		failWith(c, err)
		return
	}
	if err := h.characters.Delete(ctx, character.ID); err != nil {
		failWith(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to delete character"))
		return
	}
	h.contexts.Invalidate(ctx, character.ProjectID)
	dto.NoContent(c)
}

// ownedCharacter 角色须属于当前用户的项目，否则按不存在处理
func (h *CharacterHandler) ownedCharacter(c *gin.Context, id, userID string) (*entity.Character, error) {
	ctx := c.Request.Context()
	character, err := h.characters.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to load character")
	}
	if character == nil {
		return nil, errors.ErrCharacterNotFound
	}
	if _, err := ownedProject(ctx, h.projects, character.ProjectID, userID); err != nil {
		if errors.IsCode(err, errors.CodeProjectNotFound) {
			return nil, errors.ErrCharacterNotFound
		}
		return nil, err
	}
	return character, nil
}
