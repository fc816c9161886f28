// Package projectctx 组装生成流程所需的项目上下文，并按 (项目, 用户) 缓存
package projectctx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"thoth-writer-api/internal/domain/entity"
	wfmodel "thoth-writer-api/internal/workflow/model"
	apperrors "thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/tracer"
	"thoth-writer-api/pkg/utils"
)

const (
	DefaultPreviewChars = 800
	DefaultCacheTTL     = 5 * time.Minute
)

// ProjectReader 项目读取
type ProjectReader interface {
	GetOwned(ctx context.Context, id, ownerID string) (*entity.Project, error)
}

// CharacterLister 角色列表
type CharacterLister interface {
	ListByProject(ctx context.Context, projectID string) ([]*entity.Character, error)
}

// DocumentLister 文档列表
type DocumentLister interface {
	ListAllByProject(ctx context.Context, projectID string) ([]*entity.Document, error)
}

// Cache 读穿缓存
type Cache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error)
	InvalidatePattern(ctx context.Context, pattern string) error
}

// Options 上下文参数
type Options struct {
	PreviewChars int
	CacheTTL     time.Duration
}

// Service 项目上下文服务；cache 为 nil 时每次都直接查询
type Service struct {
	projects   ProjectReader
	characters CharacterLister
	documents  DocumentLister
	cache      Cache
	opts       Options
}

func NewService(projects ProjectReader, characters CharacterLister, documents DocumentLister, cache Cache, opts Options) *Service {
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = DefaultPreviewChars
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &Service{
		projects:   projects,
		characters: characters,
		documents:  documents,
		cache:      cache,
		opts:       opts,
	}
}

func cacheKey(projectID, userID string) string {
	return fmt.Sprintf("ctx:%s:%s", projectID, userID)
}

// BuildProjectContext 项目不存在或不属于该用户时返回 ErrProjectNotFound
func (s *Service) BuildProjectContext(ctx context.Context, projectID, userID string) (*wfmodel.ProjectContext, error) {
	ctx, span := tracer.Start(ctx, "projectctx.Build")
	var err error
	defer func() { tracer.End(span, err) }()

	if s.cache == nil {
		var pc *wfmodel.ProjectContext
		pc, err = s.build(ctx, projectID, userID)
		return pc, err
	}

	raw, err := s.cache.GetOrLoadSafe(ctx, cacheKey(projectID, userID), s.opts.CacheTTL, func(ctx context.Context) (any, error) {
		return s.build(ctx, projectID, userID)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		logger.Warn(ctx, "project context cache unavailable", "error", err.Error())
		var pc *wfmodel.ProjectContext
		pc, err = s.build(ctx, projectID, userID)
		return pc, err
	}

	var pc wfmodel.ProjectContext
	if jsonErr := json.Unmarshal(raw, &pc); jsonErr != nil {
		logger.Warn(ctx, "cached project context is malformed, rebuilding", "error", jsonErr.Error())
		var fresh *wfmodel.ProjectContext
		fresh, err = s.build(ctx, projectID, userID)
		return fresh, err
	}
	return &pc, nil
}

// Invalidate 项目下任何写操作之后调用
func (s *Service) Invalidate(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePattern(ctx, fmt.Sprintf("ctx:%s:*", projectID)); err != nil {
		logger.Warn(ctx, "failed to invalidate project context", "project_id", projectID, "error", err.Error())
	}
}

func (s *Service) build(ctx context.Context, projectID, userID string) (*wfmodel.ProjectContext, error) {
	project, err := s.projects.GetOwned(ctx, projectID, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}

	docs, err := s.documents.ListAllByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load documents")
	}
	chars, err := s.characters.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load characters")
	}

	pc := &wfmodel.ProjectContext{
		Project: wfmodel.ProjectSummary{
			ID:                project.ID,
			Title:             project.Title,
			Description:       project.Description,
			Genre:             project.Genre,
			StructureTemplate: project.StructureTemplate,
			CurrentWordCount:  project.CurrentWordCount,
			TargetWordCount:   project.TargetWordCount,
		},
		Characters:   make([]wfmodel.CharacterSummary, 0, len(chars)),
		Documents:    make([]wfmodel.DocumentSummary, 0, len(docs)),
		Instructions: []wfmodel.Instruction{},
		Constraints:  project.Constraints(),
	}
	for _, c := range chars {
		pc.Characters = append(pc.Characters, wfmodel.CharacterSummary{
			ID:          c.ID,
			Name:        c.Name,
			Role:        c.Role(),
			Description: c.Description,
		})
	}
	for _, d := range docs {
		pc.Documents = append(pc.Documents, wfmodel.DocumentSummary{
			ID:           d.ID,
			Title:        d.Title,
			DocumentType: string(d.DocumentType),
			OrderIndex:   d.OrderIndex,
			WordCount:    d.WordCount,
			Preview:      utils.HeadRunes(d.Content, s.opts.PreviewChars),
		})
	}
	for _, ins := range project.Instructions() {
		pc.Instructions = append(pc.Instructions, wfmodel.Instruction{Title: ins.Title, Detail: ins.Detail})
	}

	logger.Debug(ctx, "project context built",
		"documents", len(pc.Documents),
		"characters", len(pc.Characters),
		"instructions", len(pc.Instructions),
	)
	return pc, nil
}
