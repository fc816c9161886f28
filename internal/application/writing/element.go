package writing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"thoth-writer-api/internal/application/generation"
	"thoth-writer-api/internal/application/versioning"
	"thoth-writer-api/internal/domain/entity"
	llmctx "thoth-writer-api/internal/domain/service"
	wfmodel "thoth-writer-api/internal/workflow/model"
	workflowprompt "thoth-writer-api/internal/workflow/prompt"
	apperrors "thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/metrics"
	"thoth-writer-api/pkg/tracer"
)

// 生成模式
const (
	ModeWrite   = "write"
	ModeRewrite = "rewrite"
)

// ElementRequest 单文档生成/改写请求
type ElementRequest struct {
	DocumentID string
	UserID     string

	Instructions    *string
	MinWordCount    *int
	MaxWordCount    *int
	Summary         *string
	SourceVersionID *string
	// CommentIDs 为 nil 时全部评论参与生成
	CommentIDs []string
}

// ElementResult 单文档生成结果
type ElementResult struct {
	Document     *entity.Document       `json:"document"`
	Version      versioning.VersionView `json:"version"`
	Mode         string                 `json:"mode"`
	ElementType  entity.ElementType     `json:"element_type"`
	ElementLabel string                 `json:"element_label"`
}

// ManualEditRequest 人工编辑请求
type ManualEditRequest struct {
	DocumentID      string
	UserID          string
	Content         string
	SourceVersionID *string
	Summary         *string
}

// VersionList 版本列表
type VersionList struct {
	CurrentVersion string                   `json:"current_version,omitempty"`
	Versions       []versioning.VersionView `json:"versions"`
}

// ElementService 带版本账本与评论的单文档生成
type ElementService struct {
	documents DocumentStore
	contexts  ContextProvider
	generator TextGenerator
	prompts   *workflowprompt.Builder
	ledger    *versioning.Ledger
	settings  Settings
}

func NewElementService(
	documents DocumentStore,
	contexts ContextProvider,
	generator TextGenerator,
	prompts *workflowprompt.Builder,
	ledger *versioning.Ledger,
	settings Settings,
) *ElementService {
	if prompts == nil {
		prompts = workflowprompt.NewBuilder(nil)
	}
	if ledger == nil {
		ledger = versioning.NewLedger()
	}
	return &ElementService{
		documents: documents,
		contexts:  contexts,
		generator: generator,
		prompts:   prompts,
		ledger:    ledger,
		settings:  settings.withDefaults(),
	}
}

// Generate 生成新版本并写回文档；任何前置校验失败都不会产生写入
func (s *ElementService) Generate(ctx context.Context, req *ElementRequest) (*ElementResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.DocumentIDKey, req.DocumentID)
	ctx, span := tracer.Start(ctx, "writing.element", attribute.String("document_id", req.DocumentID))
	var err error
	defer func() { tracer.End(span, err) }()

	doc, err := s.documents.GetByID(ctx, req.DocumentID, req.UserID)
	if err != nil {
		return nil, err
	}
	elementType, elementLabel := entity.ElementOf(doc)

	minWords := firstInt(req.MinWordCount, metaInt(doc.Metadata, entity.MetaMinWordCount))
	maxWords := firstInt(req.MaxWordCount, metaInt(doc.Metadata, entity.MetaMaxWordCount))
	if err = generation.ValidateBounds(minWords, maxWords); err != nil {
		return nil, err
	}
	summary := firstString(req.Summary, metaString(doc.Metadata, entity.MetaSummary))

	mode := ModeWrite
	if strings.TrimSpace(doc.Content) != "" || req.SourceVersionID != nil {
		mode = ModeRewrite
	}

	state := versioning.LoadState(doc.Metadata)
	state, _ = s.ledger.EnsureBackfilled(state, doc.Content)

	var (
		source        *versioning.Version
		sourceContent string
		sourceLabel   string
	)
	if req.SourceVersionID != nil {
		sourceContent, sourceLabel, err = s.ledger.ResolveSource(state.Versions, *req.SourceVersionID)
		if err != nil {
			return nil, err
		}
		v, _ := versioning.Find(state.Versions, *req.SourceVersionID)
		source = &v
	} else if mode == ModeRewrite {
		// 未指定源版本时，改写以当前版本正文为依据；版本来源仍记为 generate
		if cur, ok := currentVersion(state); ok && cur.ID != "" {
			sourceContent, sourceLabel, err = s.ledger.ResolveSource(state.Versions, cur.ID)
			if err != nil {
				return nil, err
			}
		}
	}

	commentLines, consumed, err := versioning.SelectComments(state.Comments, req.CommentIDs, state.Versions)
	if err != nil {
		return nil, err
	}

	pc, err := s.contexts.BuildProjectContext(ctx, doc.ProjectID, req.UserID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.prompts.Element(ctx, &wfmodel.ElementPromptInput{
		Title:         doc.Title,
		ElementLabel:  elementLabel,
		Rewrite:       mode == ModeRewrite,
		Instructions:  deref(req.Instructions),
		Summary:       deref(summary),
		CommentLines:  commentLines,
		MinWordCount:  minWords,
		MaxWordCount:  maxWords,
		SourceContent: sourceContent,
		SourceLabel:   sourceLabel,
		ContextBlock:  workflowprompt.FormatProjectContext(pc, nil),
	})
	if err != nil {
		return nil, err
	}

	res, err := s.generator.Generate(llmctx.WithWorkflow(ctx, llmctx.WorkflowElementGenerate), &generation.Request{
		Pipeline:     "element",
		Messages:     msgs,
		MinWordCount: minWords,
		MaxWordCount: maxWords,
		Temperature:  elementTemperature,
		MaxTokens:    s.settings.WriteMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if res.Content == "" {
		err = apperrors.ErrGenerationFailed.WithDetail("model returned empty content")
		return nil, err
	}

	version := s.ledger.NewGenerated(state.Versions, versioning.Draft{
		Content:      res.Content,
		MinWordCount: minWords,
		MaxWordCount: maxWords,
		Summary:      summary,
		Instructions: trimmedPtr(req.Instructions),
		Source:       source,
		CommentIDs:   consumed,
	})
	state.Versions = versioning.Append(state.Versions, version)
	state.Comments = versioning.MarkApplied(state.Comments, consumed, version.ID)
	state.CurrentVersion = version.Label

	meta := state.Apply(doc.Metadata)
	setOptional(meta, entity.MetaMinWordCount, req.MinWordCount)
	setOptional(meta, entity.MetaMaxWordCount, req.MaxWordCount)
	setOptional(meta, entity.MetaSummary, req.Summary)

	content := res.Content
	updated, err := s.documents.Update(ctx, doc.ID, entity.DocumentPatch{
		Content:           &content,
		Metadata:          meta,
		ExpectedUpdatedAt: doc.UpdatedAt,
	}, req.UserID)
	if err != nil {
		return nil, err
	}

	metrics.VersionsAppendedTotal.WithLabelValues(string(*version.SourceType)).Inc()
	logger.Info(ctx, "element version created",
		"version", version.Label,
		"source_type", string(*version.SourceType),
		"mode", mode,
		"comments", len(consumed),
		"word_count", version.WordCount,
	)

	return &ElementResult{
		Document:     updated,
		Version:      *versioning.Serialize(version, version.Label, true),
		Mode:         mode,
		ElementType:  elementType,
		ElementLabel: elementLabel,
	}, nil
}

// ManualEdit 记录一次人工编辑；未指定源版本时以当前版本为源
func (s *ElementService) ManualEdit(ctx context.Context, req *ManualEditRequest) (*versioning.VersionView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	doc, err := s.documents.GetByID(ctx, req.DocumentID, req.UserID)
	if err != nil {
		return nil, err
	}

	state := versioning.LoadState(doc.Metadata)
	state, _ = s.ledger.EnsureBackfilled(state, doc.Content)

	var source *versioning.Version
	if req.SourceVersionID != nil {
		v, err := versioning.Get(state.Versions, *req.SourceVersionID)
		if err != nil {
			return nil, err
		}
		source = &v
	} else if v, ok := versioning.FindByLabel(state.Versions, state.CurrentVersion); ok {
		source = &v
	}

	summary := firstString(req.Summary, metaString(doc.Metadata, entity.MetaSummary))
	version := s.ledger.NewManualEdit(state.Versions, versioning.Draft{
		Content: req.Content,
		Summary: summary,
		Source:  source,
	}, req.UserID)
	state.Versions = versioning.Append(state.Versions, version)
	state.CurrentVersion = version.Label

	meta := state.Apply(doc.Metadata)
	setOptional(meta, entity.MetaSummary, req.Summary)

	content := req.Content
	if _, err := s.documents.Update(ctx, doc.ID, entity.DocumentPatch{
		Content:           &content,
		Metadata:          meta,
		ExpectedUpdatedAt: doc.UpdatedAt,
	}, req.UserID); err != nil {
		return nil, err
	}

	metrics.VersionsAppendedTotal.WithLabelValues(string(versioning.SourceManualEdit)).Inc()
	return versioning.Serialize(version, version.Label, true), nil
}

// ListVersions 按时间顺序列出版本；补建 v1 时顺带持久化
func (s *ElementService) ListVersions(ctx context.Context, documentID, userID string, includeContent bool) (*VersionList, error) {
	_, state, err := s.loadBackfilled(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	return &VersionList{
		CurrentVersion: state.CurrentVersion,
		Versions:       versioning.SerializeAll(state.Versions, state.CurrentVersion, includeContent),
	}, nil
}

// GetVersion 返回单个版本（含正文）
func (s *ElementService) GetVersion(ctx context.Context, documentID, versionID, userID string) (*versioning.VersionView, error) {
	_, state, err := s.loadBackfilled(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	v, err := versioning.Get(state.Versions, versionID)
	if err != nil {
		return nil, err
	}
	view := versioning.Serialize(v, state.CurrentVersion, true)
	if view == nil {
		return nil, apperrors.ErrVersionNotFound.WithDetail(versionID)
	}
	return view, nil
}

// AddComment 添加评审评论；锚定版本必须存在
func (s *ElementService) AddComment(ctx context.Context, documentID, userID, content string, versionID *string) (*versioning.CommentView, error) {
	doc, err := s.documents.GetByID(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	state := versioning.LoadState(doc.Metadata)
	state, _ = s.ledger.EnsureBackfilled(state, doc.Content)

	if versionID != nil && strings.TrimSpace(*versionID) != "" {
		if _, err := versioning.Get(state.Versions, *versionID); err != nil {
			return nil, err
		}
	}

	comments, comment, err := s.ledger.AddComment(state.Comments, content, userID, versionID)
	if err != nil {
		return nil, err
	}
	state.Comments = comments

	if _, err := s.documents.Update(ctx, doc.ID, entity.DocumentPatch{
		Metadata:          state.Apply(doc.Metadata),
		ExpectedUpdatedAt: doc.UpdatedAt,
	}, userID); err != nil {
		return nil, err
	}
	views := versioning.CommentViews([]versioning.Comment{comment}, state.Versions)
	return &views[0], nil
}

// ListComments 列出评论
func (s *ElementService) ListComments(ctx context.Context, documentID, userID string) ([]versioning.CommentView, error) {
	doc, err := s.documents.GetByID(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	state := versioning.LoadState(doc.Metadata)
	return versioning.CommentViews(state.Comments, state.Versions), nil
}

// currentVersion 当前版本标签缺失或失效时取最后一个版本
func currentVersion(state versioning.State) (versioning.Version, bool) {
	if v, ok := versioning.FindByLabel(state.Versions, state.CurrentVersion); ok {
		return v, true
	}
	if n := len(state.Versions); n > 0 {
		return state.Versions[n-1], true
	}
	return versioning.Version{}, false
}

func (s *ElementService) loadBackfilled(ctx context.Context, documentID, userID string) (*entity.Document, versioning.State, error) {
	doc, err := s.documents.GetByID(ctx, documentID, userID)
	if err != nil {
		return nil, versioning.State{}, err
	}
	state, changed := s.ledger.EnsureBackfilled(versioning.LoadState(doc.Metadata), doc.Content)
	if changed {
		updated, err := s.documents.Update(ctx, doc.ID, entity.DocumentPatch{
			Metadata:          state.Apply(doc.Metadata),
			ExpectedUpdatedAt: doc.UpdatedAt,
		}, userID)
		if err != nil {
			return nil, versioning.State{}, err
		}
		doc = updated
	}
	return doc, state, nil
}
