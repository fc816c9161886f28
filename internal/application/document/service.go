// Package document 文档的增删改查，负责归属校验、元素层级校验与项目字数维护
package document

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/domain/repository"
	apperrors "thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/tracer"
)

// ProjectStore 项目归属与字数
type ProjectStore interface {
	GetOwned(ctx context.Context, id, ownerID string) (*entity.Project, error)
	UpdateWordCount(ctx context.Context, id string, total int) error
}

// ContextInvalidator 项目上下文缓存失效
type ContextInvalidator interface {
	Invalidate(ctx context.Context, projectID string)
}

// Service 文档服务
type Service struct {
	projects  ProjectStore
	documents repository.DocumentRepository
	contexts  ContextInvalidator
	tx        repository.Transactor
}

// NewService tx 为 nil 时写入与字数刷新不在同一事务中
func NewService(projects ProjectStore, documents repository.DocumentRepository, contexts ContextInvalidator, tx repository.Transactor) *Service {
	return &Service{projects: projects, documents: documents, contexts: contexts, tx: tx}
}

// inTx 文档写入与项目字数刷新同时提交
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithTransaction(ctx, fn)
}

func dbError(err error, msg string) error {
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, msg)
}

func (s *Service) ownedProject(ctx context.Context, projectID, userID string) (*entity.Project, error) {
	project, err := s.projects.GetOwned(ctx, projectID, userID)
	if err != nil {
		return nil, dbError(err, "failed to load project")
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	return project, nil
}

// GetByID 文档不存在或不属于该用户时返回 ErrDocumentNotFound
func (s *Service) GetByID(ctx context.Context, id, userID string) (*entity.Document, error) {
	doc, err := s.documents.GetByIDForOwner(ctx, id, userID)
	if err != nil {
		return nil, dbError(err, "failed to load document")
	}
	if doc == nil {
		return nil, apperrors.ErrDocumentNotFound
	}
	return doc, nil
}

// Create 在用户的项目下创建文档
func (s *Service) Create(ctx context.Context, doc *entity.Document, userID string) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "document.Create", attribute.String("project_id", doc.ProjectID))
	var err error
	defer func() { tracer.End(span, err) }()

	if _, err = s.ownedProject(ctx, doc.ProjectID, userID); err != nil {
		return nil, err
	}
	if doc.DocumentType == "" {
		doc.DocumentType = entity.DocumentTypeChapter
	}
	if !doc.DocumentType.IsValid() {
		err = apperrors.ErrInvalidParam.WithDetail("unknown document_type: " + string(doc.DocumentType))
		return nil, err
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	if err = s.validateHierarchy(ctx, doc, userID); err != nil {
		return nil, err
	}
	doc.SetContent(doc.Content)

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.documents.Create(ctx, doc); err != nil {
			return dbError(err, "failed to create document")
		}
		return s.refreshWordCount(ctx, doc.ProjectID)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, doc.ProjectID)

	logger.Info(ctx, "document created", "document_id", doc.ID, "order_index", doc.OrderIndex)
	return doc, nil
}

// Update 应用补丁；Metadata 非 nil 时整体替换。
// patch.ExpectedUpdatedAt 非零且记录已被修改时返回 ErrConflict。
func (s *Service) Update(ctx context.Context, id string, patch entity.DocumentPatch, userID string) (*entity.Document, error) {
	ctx = logger.WithContext(ctx, logger.DocumentIDKey, id)
	ctx, span := tracer.Start(ctx, "document.Update")
	var err error
	defer func() { tracer.End(span, err) }()

	doc, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	patch.Apply(doc)
	if patch.Metadata != nil {
		if err = s.validateHierarchy(ctx, doc, userID); err != nil {
			return nil, err
		}
	}

	var pre *repository.Precondition
	if !patch.ExpectedUpdatedAt.IsZero() {
		pre = &repository.Precondition{ExpectedUpdatedAt: patch.ExpectedUpdatedAt}
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.documents.Update(ctx, doc, pre); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return apperrors.ErrConflict.WithDetail("document was modified concurrently")
			}
			return dbError(err, "failed to update document")
		}
		return s.refreshWordCount(ctx, doc.ProjectID)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, doc.ProjectID)
	return doc, nil
}

// Delete 删除文档
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	doc, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.documents.Delete(ctx, id); err != nil {
			return dbError(err, "failed to delete document")
		}
		return s.refreshWordCount(ctx, doc.ProjectID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, doc.ProjectID)
	return nil
}

// NextOrderIndex 项目下一个顺序号
func (s *Service) NextOrderIndex(ctx context.Context, projectID string) (int, error) {
	next, err := s.documents.NextOrderIndex(ctx, projectID)
	if err != nil {
		return 0, dbError(err, "failed to compute order index")
	}
	return next, nil
}

// ListAllByProject 按顺序返回项目全部文档
func (s *Service) ListAllByProject(ctx context.Context, projectID, userID string) ([]*entity.Document, error) {
	if _, err := s.ownedProject(ctx, projectID, userID); err != nil {
		return nil, err
	}
	docs, err := s.documents.ListAllByProject(ctx, projectID)
	if err != nil {
		return nil, dbError(err, "failed to list documents")
	}
	return docs, nil
}

// List 分页列出项目文档
func (s *Service) List(ctx context.Context, projectID, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	if _, err := s.ownedProject(ctx, projectID, userID); err != nil {
		return nil, err
	}
	page, err := s.documents.ListByProject(ctx, projectID, pagination)
	if err != nil {
		return nil, dbError(err, "failed to list documents")
	}
	return page, nil
}

// validateHierarchy 父元素须在同一项目中且层级严格更浅
func (s *Service) validateHierarchy(ctx context.Context, doc *entity.Document, userID string) error {
	if raw := strings.TrimSpace(doc.MetaString(entity.MetaElementType)); raw != "" {
		t, ok := entity.ParseElementType(raw)
		if !ok {
			return apperrors.ErrInvalidParam.WithDetail("unknown element_type: " + raw)
		}
		doc.Metadata[entity.MetaElementType] = string(t)
	}

	parentID := strings.TrimSpace(doc.MetaString(entity.MetaParentID))
	if parentID == "" {
		return nil
	}
	if parentID == doc.ID {
		return apperrors.ErrInvalidParam.WithDetail("document cannot be its own parent")
	}
	parent, err := s.documents.GetByIDForOwner(ctx, parentID, userID)
	if err != nil {
		return dbError(err, "failed to load parent document")
	}
	if parent == nil || parent.ProjectID != doc.ProjectID {
		return apperrors.ErrInvalidParam.WithDetail("parent document not found in project")
	}

	parentType, _ := entity.ElementOf(parent)
	childType, _ := entity.ElementOf(doc)
	if !parentType.CanContain(childType) {
		return apperrors.ErrInvalidParam.WithDetail(
			"a " + string(childType) + " cannot be placed under a " + string(parentType))
	}
	return nil
}

func (s *Service) refreshWordCount(ctx context.Context, projectID string) error {
	total, err := s.documents.SumWordCount(ctx, projectID)
	if err != nil {
		return dbError(err, "failed to sum word count")
	}
	if err := s.projects.UpdateWordCount(ctx, projectID, total); err != nil {
		return dbError(err, "failed to update project word count")
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, projectID string) {
	if s.contexts != nil {
		s.contexts.Invalidate(ctx, projectID)
	}
}
