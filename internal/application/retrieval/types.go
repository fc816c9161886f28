package retrieval

// Passage 写入向量库的文档片段
type Passage struct {
	ID          string
	ProjectID   string
	DocumentID  string
	ChunkIndex  int
	TextContent string
	Vector      []float32
}

type VectorSearchParams struct {
	ProjectID   string
	QueryVector []float32
	TopK        int
}

type VectorSearchResult struct {
	ID          string
	Score       float32
	TextContent string
	DocumentID  string
}
