package writing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoth-writer-api/internal/application/versioning"
	"thoth-writer-api/internal/domain/entity"
	apperrors "thoth-writer-api/pkg/errors"
)

func rawVersion(id, label, content string) map[string]any {
	return map[string]any{
		"id":         id,
		"version":    label,
		"created_at": "2024-01-01T00:00:00Z",
		"content":    content,
		"word_count": float64(2),
	}
}

func newDoc(id, content string, meta map[string]any) *entity.Document {
	if meta == nil {
		meta = map[string]any{}
	}
	d := entity.NewDocument("p1", "Chapitre 1", content, entity.DocumentTypeChapter, 0)
	d.ID = id
	d.Metadata = meta
	d.UpdatedAt = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	return d
}

func newElementService(docs *memoryDocs, completer *routedCompleter) *ElementService {
	return NewElementService(docs, &staticContexts{pc: testContext()}, newController(completer), nil, testLedger(), Settings{})
}

func lastVersion(t *testing.T, doc *entity.Document) versioning.Version {
	t.Helper()
	state := versioning.LoadState(doc.Metadata)
	require.NotEmpty(t, state.Versions)
	return state.Versions[len(state.Versions)-1]
}

func TestGenerateFreshDocument(t *testing.T) {
	docs := newMemoryDocs(newDoc("d1", "", nil))
	completer := &routedCompleter{}
	svc := newElementService(docs, completer)

	res, err := svc.Generate(context.Background(), &ElementRequest{DocumentID: "d1", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, 1, completer.count("write"))
	assert.Equal(t, ModeWrite, res.Mode)
	assert.Equal(t, "v1", res.Version.Version)
	assert.Equal(t, versioning.SourceGenerate, *res.Version.SourceType)
	assert.Equal(t, "Texte genere pour le chapitre.", docs.docs["d1"].Content)
	assert.Equal(t, "v1", docs.docs["d1"].Metadata[entity.MetaCurrentVersion])
	assert.Equal(t, entity.ElementChapitre, res.ElementType)
	assert.Equal(t, "Chapitre", res.ElementLabel)
	require.Len(t, docs.updates, 1)
	assert.False(t, docs.updates[0].ExpectedUpdatedAt.IsZero())
}

func TestGenerateBackfillsExistingContent(t *testing.T) {
	docs := newMemoryDocs(newDoc("d1", "Ancien texte", nil))
	svc := newElementService(docs, &routedCompleter{})

	res, err := svc.Generate(context.Background(), &ElementRequest{DocumentID: "d1", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, ModeRewrite, res.Mode)
	assert.Equal(t, "v1.01", res.Version.Version)
	state := versioning.LoadState(docs.docs["d1"].Metadata)
	require.Len(t, state.Versions, 2)
	assert.Equal(t, "Ancien texte", state.Versions[0].Content)
	assert.Nil(t, state.Versions[0].SourceType)
}

func TestGenerateRewriteFromSourceVersion(t *testing.T) {
	meta := map[string]any{
		entity.MetaVersions: []any{
			rawVersion("a", "v1", "un deux"),
			rawVersion("b", "v1.01", "trois quatre"),
			rawVersion("c", "v1.02", "cinq six"),
		},
		entity.MetaCurrentVersion: "v1.02",
	}
	docs := newMemoryDocs(newDoc("d1", "cinq six", meta))
	completer := &routedCompleter{}
	svc := newElementService(docs, completer)

	res, err := svc.Generate(context.Background(), &ElementRequest{
		DocumentID:      "d1",
		UserID:          "u1",
		SourceVersionID: strPtr("b"),
		CommentIDs:      []string{},
	})
	require.NoError(t, err)

	assert.Equal(t, "v1.03", res.Version.Version)
	assert.Equal(t, versioning.SourceRewrite, *res.Version.SourceType)
	assert.Equal(t, "b", *res.Version.SourceVersionID)
	assert.Equal(t, "v1.01", *res.Version.SourceVersion)
	assert.Contains(t, completer.prompts[0], "Texte source (v1.01) :\ntrois quatre")

	stored := lastVersion(t, docs.docs["d1"])
	assert.Equal(t, "v1.03", stored.Label)
	assert.Equal(t, "v1.03", docs.docs["d1"].Metadata[entity.MetaCurrentVersion])
}

func TestGenerateWithSelectedComment(t *testing.T) {
	meta := map[string]any{
		entity.MetaVersions: []any{rawVersion("v1-id", "v1", "Version source")},
		entity.MetaComments: []any{
			map[string]any{"id": "C1", "content": "Ajouter une scène de pluie", "user_id": "u2", "version_id": "v1-id", "applied_version_ids": []any{}},
			map[string]any{"id": "C2", "content": "Autre remarque", "user_id": "u2", "version_id": "v1-id", "applied_version_ids": []any{}},
		},
		entity.MetaCurrentVersion: "v1",
	}
	docs := newMemoryDocs(newDoc("d1", "Version source", meta))
	completer := &routedCompleter{}
	svc := newElementService(docs, completer)

	res, err := svc.Generate(context.Background(), &ElementRequest{
		DocumentID:      "d1",
		UserID:          "u1",
		SourceVersionID: strPtr("v1-id"),
		CommentIDs:      []string{"C1"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1"}, res.Version.SourceCommentIDs)
	assert.Equal(t, versioning.SourceCommentedRewrite, *res.Version.SourceType)
	assert.Contains(t, completer.prompts[0], "- Ajouter une scène de pluie (version v1)")
	assert.NotContains(t, completer.prompts[0], "Autre remarque")

	state := versioning.LoadState(docs.docs["d1"].Metadata)
	require.Len(t, state.Comments, 2)
	assert.Equal(t, []string{res.Version.ID}, state.Comments[0].AppliedVersionIDs)
	assert.Empty(t, state.Comments[1].AppliedVersionIDs)
}

func TestGenerateMissingCommentHasNoSideEffects(t *testing.T) {
	meta := map[string]any{
		entity.MetaVersions:       []any{rawVersion("v1-id", "v1", "Version source")},
		entity.MetaCurrentVersion: "v1",
	}
	docs := newMemoryDocs(newDoc("d1", "Version source", meta))
	completer := &routedCompleter{}
	svc := newElementService(docs, completer)

	_, err := svc.Generate(context.Background(), &ElementRequest{
		DocumentID: "d1",
		UserID:     "u1",
		CommentIDs: []string{"C_missing"},
	})
	assert.ErrorIs(t, err, apperrors.ErrCommentNotFound)
	assert.Empty(t, completer.calls)
	assert.Empty(t, docs.updates)
}

func TestGenerateUnknownSourceVersion(t *testing.T) {
	docs := newMemoryDocs(newDoc("d1", "texte", nil))
	completer := &routedCompleter{}
	svc := newElementService(docs, completer)

	_, err := svc.Generate(context.Background(), &ElementRequest{
		DocumentID:      "d1",
		UserID:          "u1",
		SourceVersionID: strPtr("nope"),
	})
	assert.ErrorIs(t, err, apperrors.ErrVersionNotFound)
	assert.Empty(t, completer.calls)
	assert.Empty(t, docs.updates)
}

func TestGenerateTimeoutLeavesDocumentUntouched(t *testing.T) {
	meta := map[string]any{
		entity.MetaVersions:       []any{rawVersion("v1-id", "v1", "Version source")},
		entity.MetaCurrentVersion: "v1",
	}
	docs := newMemoryDocs(newDoc("d1", "Version source", meta))
	completer := &routedCompleter{writeErr: map[int]error{1: context.DeadlineExceeded}}
	svc := newElementService(docs, completer)

	res, err := svc.Generate(context.Background(), &ElementRequest{DocumentID: "d1", UserID: "u1"})
	assert.Nil(t, res)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeGenerationTimeout))
	assert.Equal(t, 1, completer.count("write"))
	assert.Empty(t, docs.updates)

	state := versioning.LoadState(docs.docs["d1"].Metadata)
	assert.Len(t, state.Versions, 1)
	assert.Equal(t, "v1", state.CurrentVersion)
	assert.Equal(t, "Version source", docs.docs["d1"].Content)
}

func TestGenerateRewriteDefaultsToCurrentVersionText(t *testing.T) {
	meta := map[string]any{
		entity.MetaVersions: []any{
			rawVersion("a", "v1", "un deux"),
			rawVersion("b", "v1.01", "trois quatre"),
		},
		entity.MetaCurrentVersion: "v1.01",
	}
	docs := newMemoryDocs(newDoc("d1", "trois quatre", meta))
	completer := &routedCompleter{}
	svc := newElementService(docs, completer)

	res, err := svc.Generate(context.Background(), &ElementRequest{DocumentID: "d1", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, ModeRewrite, res.Mode)
	assert.Contains(t, completer.prompts[0], "Texte source (v1.01) :\ntrois quatre")
	assert.Equal(t, versioning.SourceGenerate, *res.Version.SourceType)
	assert.Nil(t, res.Version.SourceVersionID)
}

func TestGenerateFreshDocumentHasNoSourceText(t *testing.T) {
	docs := newMemoryDocs(newDoc("d1", "", nil))
	completer := &routedCompleter{}
	svc := newElementService(docs, completer)

	_, err := svc.Generate(context.Background(), &ElementRequest{DocumentID: "d1", UserID: "u1"})
	require.NoError(t, err)
	assert.NotContains(t, completer.prompts[0], "Texte source")
}

func TestGenerateRejectsInvertedBounds(t *testing.T) {
	docs := newMemoryDocs(newDoc("d1", "", nil))
	svc := newElementService(docs, &routedCompleter{})

	_, err := svc.Generate(context.Background(), &ElementRequest{
		DocumentID:   "d1",
		UserID:       "u1",
		MinWordCount: intPtr(500),
		MaxWordCount: intPtr(100),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
	assert.Empty(t, docs.updates)
}

func TestGeneratePersistsBoundsAndSummary(t *testing.T) {
	docs := newMemoryDocs(newDoc("d1", "", nil))
	svc := newElementService(docs, &routedCompleter{})

	res, err := svc.Generate(context.Background(), &ElementRequest{
		DocumentID:   "d1",
		UserID:       "u1",
		MaxWordCount: intPtr(3),
		Summary:      strPtr("Une ouverture"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Version.WordCount)
	meta := docs.docs["d1"].Metadata
	assert.Equal(t, 3, meta[entity.MetaMaxWordCount])
	assert.Equal(t, "Une ouverture", meta[entity.MetaSummary])
	_, hasMin := meta[entity.MetaMinWordCount]
	assert.False(t, hasMin)
}

func TestManualEditDefaultsToCurrentVersion(t *testing.T) {
	docs := newMemoryDocs(newDoc("d1", "Version source", nil))
	svc := newElementService(docs, &routedCompleter{})

	view, err := svc.ManualEdit(context.Background(), &ManualEditRequest{
		DocumentID: "d1",
		UserID:     "editor-1",
		Content:    "Version corrigée à la main",
	})
	require.NoError(t, err)

	assert.Equal(t, "v1.01", view.Version)
	assert.Equal(t, versioning.SourceManualEdit, *view.SourceType)
	assert.Equal(t, "editor-1", view.EditedBy)

	state := versioning.LoadState(docs.docs["d1"].Metadata)
	require.Len(t, state.Versions, 2)
	assert.Equal(t, state.Versions[0].ID, *view.SourceVersionID)
	assert.Equal(t, "v1.01", state.CurrentVersion)
	assert.Equal(t, "Version corrigée à la main", docs.docs["d1"].Content)
}

func TestManualEditRejectsBlankContent(t *testing.T) {
	docs := newMemoryDocs(newDoc("d1", "Version source", nil))
	svc := newElementService(docs, &routedCompleter{})

	for _, content := range []string{"", "   ", "\n\t "} {
		_, err := svc.ManualEdit(context.Background(), &ManualEditRequest{
			DocumentID: "d1",
			UserID:     "editor-1",
			Content:    content,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidParam, "content %q", content)
	}
	assert.Empty(t, docs.updates)
	assert.Equal(t, "Version source", docs.docs["d1"].Content)
}

func TestListVersionsBackfillsOnce(t *testing.T) {
	docs := newMemoryDocs(newDoc("d1", "Contenu initial", nil))
	svc := newElementService(docs, &routedCompleter{})

	list, err := svc.ListVersions(context.Background(), "d1", "u1", false)
	require.NoError(t, err)
	require.Len(t, list.Versions, 1)
	assert.Equal(t, "v1", list.CurrentVersion)
	assert.True(t, list.Versions[0].IsCurrent)
	assert.Nil(t, list.Versions[0].Content)
	assert.Len(t, docs.updates, 1)

	again, err := svc.ListVersions(context.Background(), "d1", "u1", true)
	require.NoError(t, err)
	assert.Equal(t, list.Versions[0].ID, again.Versions[0].ID)
	require.NotNil(t, again.Versions[0].Content)
	assert.Len(t, docs.updates, 1)

	_, err = svc.GetVersion(context.Background(), "d1", "missing", "u1")
	assert.ErrorIs(t, err, apperrors.ErrVersionNotFound)
}

func TestAddComment(t *testing.T) {
	meta := map[string]any{
		entity.MetaVersions:       []any{rawVersion("v1-id", "v1", "texte")},
		entity.MetaCurrentVersion: "v1",
	}
	docs := newMemoryDocs(newDoc("d1", "texte", meta))
	svc := newElementService(docs, &routedCompleter{})

	view, err := svc.AddComment(context.Background(), "d1", "u1", "Plus de rythme", strPtr("v1-id"))
	require.NoError(t, err)
	assert.Equal(t, "v1", view.Version)
	assert.Empty(t, view.AppliedVersionIDs)

	_, err = svc.AddComment(context.Background(), "d1", "u1", "Plus de rythme", strPtr("ghost"))
	assert.ErrorIs(t, err, apperrors.ErrVersionNotFound)

	_, err = svc.AddComment(context.Background(), "d1", "u1", "   ", nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)

	comments, err := svc.ListComments(context.Background(), "d1", "u1")
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}
