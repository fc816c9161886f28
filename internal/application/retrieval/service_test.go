package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoth-writer-api/internal/domain/entity"
	apperrors "thoth-writer-api/pkg/errors"
)

type fakeEmbedder struct {
	batches [][]string
	err     error
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t)), 1}
	}
	return out, nil
}

type memoryVectors struct {
	passages map[string][]*Passage
	deleted  []string
	searched *VectorSearchParams
}

func newMemoryVectors() *memoryVectors {
	return &memoryVectors{passages: map[string][]*Passage{}}
}

func (m *memoryVectors) EnsurePassagesCollection(context.Context) error { return nil }

func (m *memoryVectors) SearchPassages(_ context.Context, p *VectorSearchParams) ([]*VectorSearchResult, error) {
	m.searched = p
	var out []*VectorSearchResult
	for _, ps := range m.passages[p.ProjectID] {
		if len(out) == p.TopK {
			break
		}
		out = append(out, &VectorSearchResult{ID: ps.ID, TextContent: ps.TextContent, DocumentID: ps.DocumentID})
	}
	return out, nil
}

func (m *memoryVectors) DeleteProjectPassages(_ context.Context, projectID string) error {
	m.deleted = append(m.deleted, projectID)
	delete(m.passages, projectID)
	return nil
}

func (m *memoryVectors) InsertPassages(_ context.Context, projectID string, ps []*Passage) error {
	m.passages[projectID] = append(m.passages[projectID], ps...)
	return nil
}

func doc(id, content string) *entity.Document {
	d := entity.NewDocument("p1", "Titre "+id, content, entity.DocumentTypeChapter, 0)
	d.ID = id
	return d
}

func TestSplitByRunes(t *testing.T) {
	assert.Nil(t, splitByRunes("   ", 10, 2))
	assert.Equal(t, []string{"court"}, splitByRunes("court", 10, 2))
	assert.Equal(t, []string{"abcd", "cdef", "efgh"}, splitByRunes("abcdefgh", 4, 2))
	assert.Equal(t, []string{"éèàù", "ùç"}, splitByRunes("éèàùç", 4, 1))
}

func TestPassageTextRoundTrip(t *testing.T) {
	meta := PassageMeta{DocumentID: "d1", Title: "Un", ChunkIndex: 2}
	got, text := decodePassageText(encodePassageText(meta, "corps"))
	assert.Equal(t, meta, got)
	assert.Equal(t, "corps", text)

	_, text = decodePassageText("texte brut")
	assert.Equal(t, "texte brut", text)
}

func TestIndexAndRetrieve(t *testing.T) {
	emb := &fakeEmbedder{}
	vec := newMemoryVectors()
	s := NewService(emb, vec, Options{ChunkSize: 4, ChunkOverlap: 0, BatchSize: 2})

	n, err := s.Index(context.Background(), "p1", []*entity.Document{doc("a", "abcdefgh"), doc("b", ""), doc("c", "xyz")}, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"p1"}, vec.deleted)
	assert.Len(t, emb.batches, 2)

	meta, _ := decodePassageText(vec.passages["p1"][1].TextContent)
	assert.Equal(t, "a", meta.DocumentID)
	assert.Equal(t, 1, meta.ChunkIndex)

	got, err := s.Retrieve(context.Background(), "p1", "abcd", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd", "efgh"}, got)
	assert.Equal(t, 2, vec.searched.TopK)
}

func TestIndexWithoutClearKeepsPassages(t *testing.T) {
	vec := newMemoryVectors()
	s := NewService(&fakeEmbedder{}, vec, Options{})

	_, err := s.Index(context.Background(), "p1", []*entity.Document{doc("a", "un")}, false)
	require.NoError(t, err)
	_, err = s.Index(context.Background(), "p1", []*entity.Document{doc("b", "deux")}, false)
	require.NoError(t, err)
	assert.Empty(t, vec.deleted)
	assert.Len(t, vec.passages["p1"], 2)
}

func TestDisabledServiceDegrades(t *testing.T) {
	s := NewService(nil, nil, Options{})
	n, err := s.Index(context.Background(), "p1", []*entity.Document{doc("a", strings.Repeat("x", 2000))}, true)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := s.Retrieve(context.Background(), "p1", "query", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddingFailureIsReported(t *testing.T) {
	s := NewService(&fakeEmbedder{err: errors.New("quota")}, newMemoryVectors(), Options{})
	_, err := s.Index(context.Background(), "p1", []*entity.Document{doc("a", "texte")}, true)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeEmbeddingFailed))
}
