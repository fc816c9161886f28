package milvus

import (
	"context"

	"thoth-writer-api/internal/application/retrieval"
)

// RetrievalVectorRepository 将 Repository 适配为 retrieval.VectorRepository
type RetrievalVectorRepository struct {
	repo *Repository
}

func NewRetrievalVectorRepository(repo *Repository) *RetrievalVectorRepository {
	return &RetrievalVectorRepository{repo: repo}
}

var _ retrieval.VectorRepository = (*RetrievalVectorRepository)(nil)

func (r *RetrievalVectorRepository) EnsurePassagesCollection(ctx context.Context) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.EnsurePassagesCollection(ctx)
}

func (r *RetrievalVectorRepository) SearchPassages(ctx context.Context, params *retrieval.VectorSearchParams) ([]*retrieval.VectorSearchResult, error) {
	if r == nil || r.repo == nil {
		return nil, retrieval.ErrVectorDisabled
	}
	if params == nil {
		return nil, nil
	}

	out, err := r.repo.SearchPassages(ctx, &SearchParams{
		ProjectID:   params.ProjectID,
		QueryVector: params.QueryVector,
		TopK:        params.TopK,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*retrieval.VectorSearchResult, 0, len(out))
	for _, v := range out {
		if v == nil {
			continue
		}
		results = append(results, &retrieval.VectorSearchResult{
			ID:          v.ID,
			Score:       v.Score,
			TextContent: v.TextContent,
			DocumentID:  v.DocumentID,
		})
	}
	return results, nil
}

func (r *RetrievalVectorRepository) DeleteProjectPassages(ctx context.Context, projectID string) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.DeleteProjectPassages(ctx, projectID)
}

func (r *RetrievalVectorRepository) InsertPassages(ctx context.Context, projectID string, passages []*retrieval.Passage) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}

	out := make([]*DocumentPassage, 0, len(passages))
	for _, p := range passages {
		if p == nil {
			continue
		}
		out = append(out, &DocumentPassage{
			ID:          p.ID,
			Vector:      p.Vector,
			ProjectID:   p.ProjectID,
			DocumentID:  p.DocumentID,
			ChunkIndex:  int64(p.ChunkIndex),
			TextContent: p.TextContent,
		})
	}
	return r.repo.InsertPassages(ctx, projectID, out)
}
