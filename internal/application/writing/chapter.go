package writing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"go.opentelemetry.io/otel/attribute"

	"thoth-writer-api/internal/application/generation"
	"thoth-writer-api/internal/domain/entity"
	llmctx "thoth-writer-api/internal/domain/service"
	wfmodel "thoth-writer-api/internal/workflow/model"
	workflowprompt "thoth-writer-api/internal/workflow/prompt"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/metrics"
	"thoth-writer-api/pkg/tracer"
)

// ChapterRequest 章节生成请求
type ChapterRequest struct {
	ProjectID string
	UserID    string

	ChapterTitle    string
	ChapterPrompt   string
	TargetWordCount *int
	Constraints     map[string]any

	UseRAG           bool
	ReindexDocuments bool

	OrderIndex     *int
	CreateDocument bool
}

// ChapterResult 章节生成结果
type ChapterResult struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	WordCount       int      `json:"word_count"`
	Plan            string   `json:"plan"`
	RetrievedChunks []string `json:"retrieved_chunks"`
	DocumentID      string   `json:"document_id,omitempty"`
	OrderIndex      *int     `json:"order_index,omitempty"`
}

// chapterState 流水线各阶段之间传递的状态
type chapterState struct {
	req   *ChapterRequest
	title string

	projectContext *wfmodel.ProjectContext
	contextBlock   string
	snippets       []string
	plan           string
	content        string
	wordCount      int
	documentID     string
	orderIndex     *int
}

type stage struct {
	name string
	run  func(ctx context.Context, st *chapterState) error
}

// ChapterPipeline collect_context → retrieve_context → plan → write → persist，严格顺序执行
type ChapterPipeline struct {
	contexts  ContextProvider
	retriever Retriever
	documents DocumentStore
	completer generation.Completer
	generator TextGenerator
	prompts   *workflowprompt.Builder
	settings  Settings
}

func NewChapterPipeline(
	contexts ContextProvider,
	retriever Retriever,
	documents DocumentStore,
	completer generation.Completer,
	generator TextGenerator,
	prompts *workflowprompt.Builder,
	settings Settings,
) *ChapterPipeline {
	if prompts == nil {
		prompts = workflowprompt.NewBuilder(nil)
	}
	return &ChapterPipeline{
		contexts:  contexts,
		retriever: retriever,
		documents: documents,
		completer: completer,
		generator: generator,
		prompts:   prompts,
		settings:  settings.withDefaults(),
	}
}

func (p *ChapterPipeline) stages() []stage {
	return []stage{
		{"collect_context", p.collectContext},
		{"retrieve_context", p.retrieveContext},
		{"plan", p.planChapter},
		{"write", p.writeChapter},
		{"persist", p.persistChapter},
	}
}

// Generate 执行一次章节流水线；任一阶段失败即终止，不保留中间状态
func (p *ChapterPipeline) Generate(ctx context.Context, req *ChapterRequest) (*ChapterResult, error) {
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, req.ProjectID)
	ctx, span := tracer.Start(ctx, "writing.chapter",
		attribute.String("project_id", req.ProjectID),
		attribute.Bool("use_rag", req.UseRAG),
	)
	var err error
	defer func() { tracer.End(span, err) }()

	st := &chapterState{req: req, title: strings.TrimSpace(req.ChapterTitle)}
	for _, s := range p.stages() {
		if err = p.runStage(ctx, s, st); err != nil {
			metrics.PipelineRunsTotal.WithLabelValues("chapter", "failed").Inc()
			logger.Error(ctx, "chapter pipeline failed", err, "stage", s.name)
			return nil, err
		}
	}
	metrics.PipelineRunsTotal.WithLabelValues("chapter", "succeeded").Inc()

	return &ChapterResult{
		Title:           st.title,
		Content:         st.content,
		WordCount:       st.wordCount,
		Plan:            st.plan,
		RetrievedChunks: st.snippets,
		DocumentID:      st.documentID,
		OrderIndex:      st.orderIndex,
	}, nil
}

func (p *ChapterPipeline) runStage(ctx context.Context, s stage, st *chapterState) error {
	ctx, span := tracer.Start(ctx, "writing.chapter."+s.name)
	start := time.Now()
	err := s.run(ctx, st)
	metrics.PipelineStageDuration.WithLabelValues("chapter", s.name).Observe(time.Since(start).Seconds())
	tracer.End(span, err)
	return err
}

func (p *ChapterPipeline) collectContext(ctx context.Context, st *chapterState) error {
	pc, err := p.contexts.BuildProjectContext(ctx, st.req.ProjectID, st.req.UserID)
	if err != nil {
		return err
	}
	st.projectContext = pc
	st.contextBlock = workflowprompt.FormatProjectContext(pc, st.req.Constraints)
	return nil
}

func (p *ChapterPipeline) retrieveContext(ctx context.Context, st *chapterState) error {
	st.snippets = []string{}
	if !st.req.UseRAG || p.retriever == nil {
		return nil
	}

	if st.req.ReindexDocuments {
		docs, err := p.documents.ListAllByProject(ctx, st.req.ProjectID, st.req.UserID)
		if err != nil {
			return err
		}
		n, err := p.retriever.Index(ctx, st.req.ProjectID, docs, true)
		if err != nil {
			return err
		}
		logger.Info(ctx, "project documents reindexed", "documents", len(docs), "chunks", n)
	}

	query := strings.TrimSpace(st.req.ChapterTitle + "\n" + st.req.ChapterPrompt)
	snippets, err := p.retriever.Retrieve(ctx, st.req.ProjectID, query, p.settings.RAGTopK)
	if err != nil {
		return err
	}
	if snippets != nil {
		st.snippets = snippets
	}
	return nil
}

func (p *ChapterPipeline) planChapter(ctx context.Context, st *chapterState) error {
	msgs, err := p.prompts.ChapterPlan(ctx, p.promptInput(st))
	if err != nil {
		return err
	}
	ctx = llmctx.WithWorkflow(ctx, llmctx.WorkflowChapterPlan)
	plan, err := p.completer.Complete(ctx, msgs,
		model.WithTemperature(planTemperature),
		model.WithMaxTokens(p.settings.PlanMaxTokens),
	)
	if err != nil {
		return generation.Classify(err)
	}
	st.plan = strings.TrimSpace(plan)
	return nil
}

func (p *ChapterPipeline) writeChapter(ctx context.Context, st *chapterState) error {
	msgs, err := p.prompts.ChapterWrite(ctx, p.promptInput(st))
	if err != nil {
		return err
	}
	ctx = llmctx.WithWorkflow(ctx, llmctx.WorkflowChapterWrite)
	res, err := p.generator.Generate(ctx, &generation.Request{
		Pipeline:     "chapter",
		Messages:     msgs,
		MinWordCount: st.req.TargetWordCount,
		Temperature:  writeTemperature,
		MaxTokens:    p.settings.WriteMaxTokens,
	})
	if err != nil {
		return err
	}
	st.content = res.Content
	st.wordCount = res.WordCount
	return nil
}

func (p *ChapterPipeline) persistChapter(ctx context.Context, st *chapterState) error {
	if !st.req.CreateDocument {
		return nil
	}
	order := 0
	if st.req.OrderIndex != nil {
		order = *st.req.OrderIndex
	} else {
		next, err := p.documents.NextOrderIndex(ctx, st.req.ProjectID)
		if err != nil {
			return err
		}
		order = next
	}

	title := strings.TrimSpace(st.req.ChapterTitle)
	if title == "" {
		title = fmt.Sprintf("Chapter %d", order+1)
	}
	st.title = title

	doc := entity.NewDocument(st.req.ProjectID, title, st.content, entity.DocumentTypeChapter, order)
	created, err := p.documents.Create(ctx, doc, st.req.UserID)
	if err != nil {
		return err
	}
	st.documentID = created.ID
	st.orderIndex = &order
	return nil
}

func (p *ChapterPipeline) promptInput(st *chapterState) *wfmodel.ChapterPromptInput {
	target := 0
	if st.req.TargetWordCount != nil {
		target = *st.req.TargetWordCount
	}
	return &wfmodel.ChapterPromptInput{
		Title:           strings.TrimSpace(st.req.ChapterTitle),
		Prompt:          st.req.ChapterPrompt,
		TargetWordCount: target,
		Plan:            st.plan,
		ContextBlock:    st.contextBlock,
		Snippets:        st.snippets,
	}
}
