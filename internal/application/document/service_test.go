package document

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/domain/repository"
	apperrors "thoth-writer-api/pkg/errors"
)

type memoryProjects struct {
	projects   map[string]*entity.Project
	wordCounts map[string]int
	countErr   error
}

func (m *memoryProjects) GetOwned(_ context.Context, id, ownerID string) (*entity.Project, error) {
	p, ok := m.projects[id]
	if !ok || p.OwnerID != ownerID {
		return nil, nil
	}
	return p, nil
}

func (m *memoryProjects) UpdateWordCount(_ context.Context, id string, total int) error {
	if m.countErr != nil {
		return m.countErr
	}
	m.wordCounts[id] = total
	return nil
}

type memoryDocuments struct {
	projects *memoryProjects
	docs     map[string]*entity.Document
	seq      int
	now      time.Time
}

func (m *memoryDocuments) Create(_ context.Context, doc *entity.Document) error {
	m.seq++
	doc.ID = fmt.Sprintf("d%d", m.seq)
	doc.UpdatedAt = m.now
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memoryDocuments) GetByIDForOwner(_ context.Context, id, ownerID string) (*entity.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	if p := m.projects.projects[d.ProjectID]; p == nil || p.OwnerID != ownerID {
		return nil, nil
	}
	cp := *d
	cp.Metadata = d.CloneMetadata()
	return &cp, nil
}

func (m *memoryDocuments) Update(_ context.Context, doc *entity.Document, pre *repository.Precondition) error {
	stored := m.docs[doc.ID]
	if pre != nil && !pre.ExpectedUpdatedAt.Equal(stored.UpdatedAt) {
		return repository.ErrStaleWrite
	}
	m.now = m.now.Add(time.Second)
	doc.UpdatedAt = m.now
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memoryDocuments) Delete(_ context.Context, id string) error {
	delete(m.docs, id)
	return nil
}

func (m *memoryDocuments) ListByProject(ctx context.Context, projectID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	all, _ := m.ListAllByProject(ctx, projectID)
	return repository.NewPagedResult(all, int64(len(all)), pagination), nil
}

func (m *memoryDocuments) ListAllByProject(_ context.Context, projectID string) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, d := range m.docs {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryDocuments) NextOrderIndex(_ context.Context, projectID string) (int, error) {
	next := 0
	for _, d := range m.docs {
		if d.ProjectID == projectID {
			next = max(next, d.OrderIndex+1)
		}
	}
	return next, nil
}

func (m *memoryDocuments) SumWordCount(_ context.Context, projectID string) (int, error) {
	total := 0
	for _, d := range m.docs {
		if d.ProjectID == projectID {
			total += d.WordCount
		}
	}
	return total, nil
}

type countingInvalidator struct{ calls []string }

type recordingTx struct{ runs int }

func (r *recordingTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.runs++
	return fn(ctx)
}

func (c *countingInvalidator) Invalidate(_ context.Context, projectID string) {
	c.calls = append(c.calls, projectID)
}

func setup() (*Service, *memoryProjects, *memoryDocuments, *countingInvalidator) {
	svc, projects, docs, inv, _ := setupTx()
	return svc, projects, docs, inv
}

func setupTx() (*Service, *memoryProjects, *memoryDocuments, *countingInvalidator, *recordingTx) {
	projects := &memoryProjects{
		projects:   map[string]*entity.Project{"p1": {ID: "p1", OwnerID: "u1"}, "p2": {ID: "p2", OwnerID: "u1"}},
		wordCounts: map[string]int{},
	}
	docs := &memoryDocuments{projects: projects, docs: map[string]*entity.Document{}, now: time.Unix(1_700_000_000, 0)}
	inv := &countingInvalidator{}
	tx := &recordingTx{}
	return NewService(projects, docs, inv, tx), projects, docs, inv, tx
}

func element(projectID, elementType, parentID string) *entity.Document {
	d := entity.NewDocument(projectID, "x", "", entity.DocumentTypeChapter, 0)
	if elementType != "" {
		d.Metadata[entity.MetaElementType] = elementType
	}
	if parentID != "" {
		d.Metadata[entity.MetaParentID] = parentID
	}
	return d
}

func TestCreateRefreshesWordCountAndInvalidatesContext(t *testing.T) {
	svc, projects, _, inv := setup()
	ctx := context.Background()

	doc, err := svc.Create(ctx, entity.NewDocument("p1", "Un", "trois mots ici", "", 0), "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentTypeChapter, doc.DocumentType)
	assert.Equal(t, 3, doc.WordCount)
	assert.Equal(t, 3, projects.wordCounts["p1"])
	assert.Equal(t, []string{"p1"}, inv.calls)

	_, err = svc.Create(ctx, entity.NewDocument("p1", "Deux", "a b", "", 0), "intruder")
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
}

func TestCreateValidatesElementHierarchy(t *testing.T) {
	svc, _, _, _ := setup()
	ctx := context.Background()

	part, err := svc.Create(ctx, element("p1", "partie", ""), "u1")
	require.NoError(t, err)
	chapter, err := svc.Create(ctx, element("p1", "chapitre", part.ID), "u1")
	require.NoError(t, err)

	tests := []struct {
		name string
		doc  *entity.Document
		ok   bool
	}{
		{"section under chapter", element("p1", "section", chapter.ID), true},
		{"default type under part", element("p1", "", part.ID), true},
		{"part under chapter", element("p1", "partie", chapter.ID), false},
		{"same level", element("p1", "chapitre", chapter.ID), false},
		{"missing parent", element("p1", "section", "nope"), false},
		{"parent in another project", element("p2", "section", chapter.ID), false},
		{"unknown type", element("p1", "tome", ""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.doc, "u1")
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam), "got %v", err)
		})
	}
}

func TestUpdateWithStaleTokenConflicts(t *testing.T) {
	svc, _, _, _ := setup()
	ctx := context.Background()

	doc, err := svc.Create(ctx, entity.NewDocument("p1", "Un", "avant", "", 0), "u1")
	require.NoError(t, err)
	seen := doc.UpdatedAt

	content := "après la pluie"
	updated, err := svc.Update(ctx, doc.ID, entity.DocumentPatch{Content: &content, ExpectedUpdatedAt: seen}, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, updated.WordCount)

	_, err = svc.Update(ctx, doc.ID, entity.DocumentPatch{Content: &content, ExpectedUpdatedAt: seen}, "u1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.Update(ctx, doc.ID, entity.DocumentPatch{Content: &content}, "u1")
	assert.NoError(t, err)
}

func TestDeleteAndVisibility(t *testing.T) {
	svc, projects, _, _ := setup()
	ctx := context.Background()

	doc, err := svc.Create(ctx, entity.NewDocument("p1", "Un", "a b c d", "", 0), "u1")
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, doc.ID, "intruder")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)

	require.NoError(t, svc.Delete(ctx, doc.ID, "u1"))
	assert.Equal(t, 0, projects.wordCounts["p1"])
	assert.ErrorIs(t, svc.Delete(ctx, doc.ID, "u1"), apperrors.ErrDocumentNotFound)
}

func TestWriteFailsWhenWordCountCannotBeRefreshed(t *testing.T) {
	svc, projects, _, inv, tx := setupTx()
	ctx := context.Background()

	doc, err := svc.Create(ctx, entity.NewDocument("p1", "Ch 1", "one two", entity.DocumentTypeChapter, 0), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, tx.runs)

	projects.countErr = fmt.Errorf("connection reset")
	content := "one two three"
	_, err = svc.Update(ctx, doc.ID, entity.DocumentPatch{Content: &content}, "u1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDatabaseError))
	assert.Equal(t, 2, tx.runs)
	assert.Len(t, inv.calls, 1)
}
