package projectctx

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoth-writer-api/internal/domain/entity"
	apperrors "thoth-writer-api/pkg/errors"
)

type fakeStore struct {
	project    *entity.Project
	characters []*entity.Character
	documents  []*entity.Document
	loads      int
}

func (f *fakeStore) GetOwned(_ context.Context, id, ownerID string) (*entity.Project, error) {
	f.loads++
	if f.project == nil || f.project.ID != id || f.project.OwnerID != ownerID {
		return nil, nil
	}
	return f.project, nil
}

func (f *fakeStore) ListByProject(context.Context, string) ([]*entity.Character, error) {
	return f.characters, nil
}

func (f *fakeStore) ListAllByProject(context.Context, string) ([]*entity.Document, error) {
	return f.documents, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) GetOrLoadSafe(ctx context.Context, key string, _ time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if raw, ok := c.entries[key]; ok {
		return raw, nil
	}
	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	c.entries[key] = raw
	return raw, nil
}

func (c *memoryCache) InvalidatePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func newStore() *fakeStore {
	project := entity.NewProject("u1", "Les Marées")
	project.ID = "p1"
	project.Genre = "fantasy"
	project.Metadata = map[string]any{
		"constraints": map[string]any{"pov": "first person"},
		"instructions": []any{
			map[string]any{"id": "i1", "title": "Ton", "detail": "Sombre"},
			map[string]any{"title": "Incomplet"},
		},
	}
	doc := entity.NewDocument("p1", "Prologue", strings.Repeat("é", 1000), entity.DocumentTypeChapter, 0)
	doc.ID = "d1"
	return &fakeStore{
		project:    project,
		characters: []*entity.Character{{ID: "c1", ProjectID: "p1", Name: "Alice", Metadata: map[string]any{"role": "protagonist"}}},
		documents:  []*entity.Document{doc},
	}
}

func TestBuildProjectContext(t *testing.T) {
	store := newStore()
	svc := NewService(store, store, store, nil, Options{})

	pc, err := svc.BuildProjectContext(context.Background(), "p1", "u1")
	require.NoError(t, err)

	assert.Equal(t, "Les Marées", pc.Project.Title)
	assert.Equal(t, "fantasy", pc.Project.Genre)
	require.Len(t, pc.Documents, 1)
	assert.Equal(t, DefaultPreviewChars, len([]rune(pc.Documents[0].Preview)))
	require.Len(t, pc.Characters, 1)
	assert.Equal(t, "protagonist", pc.Characters[0].Role)
	require.Len(t, pc.Instructions, 1)
	assert.Equal(t, "Ton", pc.Instructions[0].Title)
	assert.Equal(t, "first person", pc.Constraints["pov"])
}

func TestBuildProjectContextRejectsForeignProject(t *testing.T) {
	store := newStore()
	svc := NewService(store, store, store, newMemoryCache(), Options{})

	_, err := svc.BuildProjectContext(context.Background(), "p1", "intruder")
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)

	_, err = svc.BuildProjectContext(context.Background(), "missing", "u1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestBuildProjectContextCachesUntilInvalidated(t *testing.T) {
	store := newStore()
	svc := NewService(store, store, store, newMemoryCache(), Options{PreviewChars: 10})
	ctx := context.Background()

	first, err := svc.BuildProjectContext(ctx, "p1", "u1")
	require.NoError(t, err)
	_, err = svc.BuildProjectContext(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.loads)
	assert.Equal(t, 10, len([]rune(first.Documents[0].Preview)))

	store.project.Title = "Renamed"
	svc.Invalidate(ctx, "p1")

	again, err := svc.BuildProjectContext(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)
	assert.Equal(t, "Renamed", again.Project.Title)
}
