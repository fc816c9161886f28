package writing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"go.opentelemetry.io/otel/attribute"

	"thoth-writer-api/internal/application/generation"
	llmctx "thoth-writer-api/internal/domain/service"
	wfmodel "thoth-writer-api/internal/workflow/model"
	wfnode "thoth-writer-api/internal/workflow/node"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/metrics"
	"thoth-writer-api/pkg/tracer"
)

// BookRequest 整书生成请求
type BookRequest struct {
	ProjectID string
	UserID    string

	BookPrompt          string
	ChapterCount        int
	PerChapterWordCount *int
	Constraints         map[string]any

	UseRAG           bool
	ReindexDocuments bool
	CreateDocuments  bool
}

// BookResult 整书生成结果
type BookResult struct {
	Outline  []wfmodel.OutlineEntry `json:"outline"`
	Chapters []*ChapterResult       `json:"chapters"`
}

// ChapterError 第 Chapter 章（从 1 开始）失败；Persisted 为此前已落库的章节文档 ID
type ChapterError struct {
	Chapter   int
	Persisted []string
	Err       error
}

func (e *ChapterError) Error() string {
	return fmt.Sprintf("chapter %d: %v", e.Chapter, e.Err)
}

func (e *ChapterError) Unwrap() error {
	return e.Err
}

// ProgressFunc 每完成一章回调一次
type ProgressFunc func(ctx context.Context, done, total int)

// BookGenerator 先生成大纲，再逐章顺序执行章节流水线
type BookGenerator struct {
	chapters  *ChapterPipeline
	contexts  ContextProvider
	documents DocumentStore
	completer generation.Completer
}

func NewBookGenerator(chapters *ChapterPipeline) *BookGenerator {
	return &BookGenerator{
		chapters:  chapters,
		contexts:  chapters.contexts,
		documents: chapters.documents,
		completer: chapters.completer,
	}
}

// Generate 章节严格顺序生成；仅第一章会触发重建索引
func (g *BookGenerator) Generate(ctx context.Context, req *BookRequest, progress ProgressFunc) (*BookResult, error) {
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, req.ProjectID)
	ctx, span := tracer.Start(ctx, "writing.book",
		attribute.String("project_id", req.ProjectID),
		attribute.Int("chapter_count", req.ChapterCount),
	)
	var err error
	defer func() { tracer.End(span, err) }()

	outline, err := g.outline(ctx, req)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("book", "failed").Inc()
		return nil, err
	}

	base := 0
	if req.CreateDocuments {
		if base, err = g.documents.NextOrderIndex(ctx, req.ProjectID); err != nil {
			metrics.PipelineRunsTotal.WithLabelValues("book", "failed").Inc()
			return nil, err
		}
	}

	result := &BookResult{Outline: outline, Chapters: make([]*ChapterResult, 0, len(outline))}
	for idx, entry := range outline {
		chReq := &ChapterRequest{
			ProjectID:        req.ProjectID,
			UserID:           req.UserID,
			ChapterTitle:     entry.Title,
			ChapterPrompt:    entry.Prompt,
			TargetWordCount:  req.PerChapterWordCount,
			Constraints:      req.Constraints,
			UseRAG:           req.UseRAG,
			ReindexDocuments: req.ReindexDocuments && idx == 0,
			CreateDocument:   req.CreateDocuments,
		}
		if req.CreateDocuments {
			order := base + idx
			chReq.OrderIndex = &order
		}

		var ch *ChapterResult
		if ch, err = g.chapters.Generate(ctx, chReq); err != nil {
			metrics.PipelineRunsTotal.WithLabelValues("book", "failed").Inc()
			err = &ChapterError{Chapter: idx + 1, Persisted: persistedIDs(result.Chapters), Err: err}
			return nil, err
		}
		result.Chapters = append(result.Chapters, ch)
		if progress != nil {
			progress(ctx, idx+1, len(outline))
		}
	}

	metrics.PipelineRunsTotal.WithLabelValues("book", "succeeded").Inc()
	return result, nil
}

func persistedIDs(chapters []*ChapterResult) []string {
	var ids []string
	for _, ch := range chapters {
		if ch.DocumentID != "" {
			ids = append(ids, ch.DocumentID)
		}
	}
	return ids
}

// outline 大纲解析失败时回退为占位章节，不中断整书生成。
// 项目上下文总是先加载，用于归属校验；请求未带约束时沿用项目约束。
func (g *BookGenerator) outline(ctx context.Context, req *BookRequest) ([]wfmodel.OutlineEntry, error) {
	pc, err := g.contexts.BuildProjectContext(ctx, req.ProjectID, req.UserID)
	if err != nil {
		return nil, err
	}
	constraints := req.Constraints
	if len(constraints) == 0 {
		constraints = pc.Constraints
	}

	msgs, err := g.chapters.prompts.BookOutline(ctx, &wfmodel.OutlineInput{
		BookPrompt:   req.BookPrompt,
		ChapterCount: req.ChapterCount,
		Constraints:  constraints,
	})
	if err != nil {
		return nil, err
	}

	ctx = llmctx.WithWorkflow(ctx, llmctx.WorkflowBookOutline)
	raw, err := g.completer.Complete(ctx, msgs,
		model.WithTemperature(outlineTemperature),
		model.WithMaxTokens(g.chapters.settings.OutlineMaxTokens),
	)
	if err != nil {
		return nil, generation.Classify(err)
	}

	outline, ok := ParseOutline(raw, req.ChapterCount, req.BookPrompt)
	if !ok {
		metrics.OutlineFallbackTotal.Inc()
		logger.Warn(ctx, "outline parse failed, using placeholder chapters", "chapter_count", req.ChapterCount)
	}
	return outline, nil
}

// ParseOutline 解析 [{title, prompt}] 数组并补齐到 chapterCount 项。
// 无法解析时返回全部占位章节与 false；单项缺失字段时按项回退。
func ParseOutline(raw string, chapterCount int, fallbackPrompt string) ([]wfmodel.OutlineEntry, bool) {
	out := make([]wfmodel.OutlineEntry, 0, chapterCount)

	var items []any
	parsed := json.Unmarshal([]byte(wfnode.ExtractJSONObject(raw)), &items) == nil
	if parsed {
		for idx, item := range items {
			if len(out) == chapterCount {
				break
			}
			entry := placeholderEntry(idx, fallbackPrompt)
			if m, ok := item.(map[string]any); ok {
				if t, ok := m["title"].(string); ok && strings.TrimSpace(t) != "" {
					entry.Title = strings.TrimSpace(t)
				}
				if p, ok := m["prompt"].(string); ok && strings.TrimSpace(p) != "" {
					entry.Prompt = strings.TrimSpace(p)
				}
			}
			out = append(out, entry)
		}
	}
	for len(out) < chapterCount {
		out = append(out, placeholderEntry(len(out), fallbackPrompt))
	}
	return out, parsed
}

func placeholderEntry(idx int, prompt string) wfmodel.OutlineEntry {
	return wfmodel.OutlineEntry{Title: fmt.Sprintf("Chapter %d", idx+1), Prompt: prompt}
}
