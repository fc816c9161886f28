package writing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/tracer"
)

// IndexService 将项目全部文档写入检索索引
type IndexService struct {
	documents DocumentStore
	retriever Retriever
}

func NewIndexService(documents DocumentStore, retriever Retriever) *IndexService {
	return &IndexService{documents: documents, retriever: retriever}
}

// IndexProject 返回写入的片段数；检索未配置时为 0
func (s *IndexService) IndexProject(ctx context.Context, projectID, userID string, clearExisting bool) (int, error) {
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)
	ctx, span := tracer.Start(ctx, "writing.index", attribute.Bool("clear_existing", clearExisting))
	var err error
	defer func() { tracer.End(span, err) }()

	docs, err := s.documents.ListAllByProject(ctx, projectID, userID)
	if err != nil {
		return 0, err
	}
	n, err := s.retriever.Index(ctx, projectID, docs, clearExisting)
	if err != nil {
		return 0, err
	}
	logger.Info(ctx, "project indexed", "documents", len(docs), "chunks", n)
	return n, nil
}
