package retrieval

import "context"

// VectorRepository 定义应用层对“向量存储/检索”的最小依赖（port）。
// 由基础设施层提供具体实现（例如 Milvus）。
type VectorRepository interface {
	EnsurePassagesCollection(ctx context.Context) error
	SearchPassages(ctx context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error)
	DeleteProjectPassages(ctx context.Context, projectID string) error
	InsertPassages(ctx context.Context, projectID string, passages []*Passage) error
}
