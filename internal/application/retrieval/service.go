// Package retrieval 将项目文档切片、向量化写入向量库，并按语义召回片段
package retrieval

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"thoth-writer-api/internal/domain/entity"
	apperrors "thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/metrics"
	"thoth-writer-api/pkg/tracer"
)

const (
	defaultChunkSizeRunes    = 512
	defaultChunkOverlapRunes = 50
	defaultEmbeddingBatch    = 32
	defaultTopK              = 5
	maxTopK                  = 50
)

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSizeRunes
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = defaultChunkOverlapRunes
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultEmbeddingBatch
	}
	return o
}

// Service 向量索引与召回；embedder 或 vector 为空时降级为空操作
type Service struct {
	embedder embedding.Embedder
	vector   VectorRepository
	opts     Options
}

func NewService(embedder embedding.Embedder, vector VectorRepository, opts Options) *Service {
	return &Service{embedder: embedder, vector: vector, opts: opts.withDefaults()}
}

func (s *Service) Enabled() bool {
	return s != nil && s.embedder != nil && s.vector != nil
}

// Index 切分并写入项目文档，返回写入的片段数；clearExisting 时先清空该项目的旧片段
func (s *Service) Index(ctx context.Context, projectID string, docs []*entity.Document, clearExisting bool) (int, error) {
	if !s.Enabled() {
		logger.Warn(ctx, "vector retrieval disabled, skip indexing", "project_id", projectID)
		return 0, nil
	}

	ctx, span := tracer.Start(ctx, "retrieval.index")
	var err error
	defer func() { tracer.End(span, err) }()

	if err = s.vector.EnsurePassagesCollection(ctx); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeVectorDBError, "vector store unavailable")
	}
	if clearExisting {
		if err = s.vector.DeleteProjectPassages(ctx, projectID); err != nil {
			return 0, apperrors.Wrap(err, apperrors.CodeIndexingFailed, "failed to clear project passages")
		}
	}

	passages, inputs := s.buildPassages(projectID, docs)
	if len(passages) == 0 {
		return 0, nil
	}

	vectors, err := s.embedBatch(ctx, inputs)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "failed to embed passages")
	}
	for i := range passages {
		passages[i].Vector = vectors[i]
	}
	if err = s.vector.InsertPassages(ctx, projectID, passages); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeIndexingFailed, "failed to insert passages")
	}

	metrics.PassagesIndexedTotal.Add(float64(len(passages)))
	logger.Info(ctx, "project passages indexed", "project_id", projectID, "documents", len(docs), "passages", len(passages))
	return len(passages), nil
}

func (s *Service) buildPassages(projectID string, docs []*entity.Document) ([]*Passage, []string) {
	var (
		passages []*Passage
		inputs   []string
	)
	for _, doc := range docs {
		if doc == nil || strings.TrimSpace(doc.Content) == "" {
			continue
		}
		for idx, chunk := range splitByRunes(doc.Content, s.opts.ChunkSize, s.opts.ChunkOverlap) {
			meta := PassageMeta{
				DocumentID:   doc.ID,
				Title:        strings.TrimSpace(doc.Title),
				DocumentType: string(doc.DocumentType),
				OrderIndex:   doc.OrderIndex,
				ChunkIndex:   idx,
			}
			passages = append(passages, &Passage{
				ID:          uuid.NewString(),
				ProjectID:   projectID,
				DocumentID:  doc.ID,
				ChunkIndex:  idx,
				TextContent: encodePassageText(meta, chunk),
			})
			inputs = append(inputs, chunk)
		}
	}
	return passages, inputs
}

// Retrieve 返回与 query 最相近的 topK 段正文，按相似度降序
func (s *Service) Retrieve(ctx context.Context, projectID, query string, topK int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	if !s.Enabled() {
		logger.Warn(ctx, "vector retrieval disabled, no passages retrieved", "project_id", projectID)
		return []string{}, nil
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	topK = min(topK, maxTopK)

	ctx, span := tracer.Start(ctx, "retrieval.retrieve")
	var err error
	defer func() { tracer.End(span, err) }()

	if err = s.vector.EnsurePassagesCollection(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeVectorDBError, "vector store unavailable")
	}
	vectors, err := s.embedBatch(ctx, []string{query})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "failed to embed query")
	}
	if len(vectors) == 0 {
		return []string{}, nil
	}

	results, err := s.vector.SearchPassages(ctx, &VectorSearchParams{
		ProjectID:   projectID,
		QueryVector: vectors[0],
		TopK:        topK,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRetrievalFailed, "passage search failed")
	}

	out := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if _, text := decodePassageText(r.TextContent); text != "" {
			out = append(out, text)
		}
	}
	return out, nil
}

func (s *Service) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(texts))
		v64, err := s.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for _, vec := range v64 {
			f32 := make([]float32, len(vec))
			for i, x := range vec {
				f32[i] = float32(x)
			}
			out = append(out, f32)
		}
	}
	return out, nil
}
