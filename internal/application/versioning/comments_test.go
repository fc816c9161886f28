package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "thoth-writer-api/pkg/errors"
)

func TestAddComment(t *testing.T) {
	l := newTestLedger()

	comments, c, err := l.AddComment(nil, "  Ajouter du suspense ", "u1", ptr("v-1"))
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Ajouter du suspense", c.Content)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "v-1", *c.VersionID)
	assert.Empty(t, c.AppliedVersionIDs)
	assert.NotNil(t, c.AppliedVersionIDs)

	_, _, err = l.AddComment(comments, "   ", "u1", nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}

func TestSelectComments(t *testing.T) {
	versions := []Version{{ID: "v-1", Label: "v1"}}
	comments := []Comment{
		{ID: "c1", Content: "Plus de dialogues", VersionID: ptr("v-1")},
		{ID: "c2", Content: "Raccourcir l'intro"},
		{ID: "c3", Content: "   "},
	}

	t.Run("nil ids selects all non-empty", func(t *testing.T) {
		lines, consumed, err := SelectComments(comments, nil, versions)
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c2"}, consumed)
		assert.Equal(t, "- Plus de dialogues (version v1)", lines[0])
		assert.Equal(t, "- Raccourcir l'intro", lines[1])
	})

	t.Run("explicit ids", func(t *testing.T) {
		_, consumed, err := SelectComments(comments, []string{"c2"}, versions)
		require.NoError(t, err)
		assert.Equal(t, []string{"c2"}, consumed)
	})

	t.Run("explicit ids none matched", func(t *testing.T) {
		_, _, err := SelectComments(comments, []string{"missing"}, versions)
		assert.ErrorIs(t, err, apperrors.ErrCommentNotFound)
	})

	t.Run("empty id list is not an error", func(t *testing.T) {
		lines, consumed, err := SelectComments(comments, []string{}, versions)
		require.NoError(t, err)
		assert.Empty(t, lines)
		assert.Empty(t, consumed)
	})

	t.Run("no comments at all", func(t *testing.T) {
		lines, consumed, err := SelectComments(nil, nil, versions)
		require.NoError(t, err)
		assert.Empty(t, lines)
		assert.Empty(t, consumed)
	})
}

func TestMarkAppliedIsMonotonicAndDeduplicated(t *testing.T) {
	comments := []Comment{
		{ID: "c1", Content: "a", AppliedVersionIDs: []string{"old"}},
		{ID: "c2", Content: "b", AppliedVersionIDs: []string{}},
	}

	once := MarkApplied(comments, []string{"c1"}, "new")
	twice := MarkApplied(once, []string{"c1"}, "new")

	assert.Equal(t, []string{"old", "new"}, twice[0].AppliedVersionIDs)
	assert.Empty(t, twice[1].AppliedVersionIDs)
	// 输入不被修改
	assert.Equal(t, []string{"old"}, comments[0].AppliedVersionIDs)
}

func TestCommentedGenerationEndToEnd(t *testing.T) {
	l := newTestLedger()
	meta := map[string]any{
		"versions": []any{rawVersion("v-1", "v1", "texte initial")},
		"comments": []any{
			map[string]any{"id": "C1", "content": "Plus sombre", "version_id": "v-1", "applied_version_ids": []any{}},
			map[string]any{"id": "C2", "content": "Autre remarque", "applied_version_ids": []any{}},
		},
		"current_version": "v1",
	}
	s := LoadState(meta)

	_, consumed, err := SelectComments(s.Comments, []string{"C1"}, s.Versions)
	require.NoError(t, err)

	src := s.Versions[0]
	v := l.NewGenerated(s.Versions, Draft{Content: "texte sombre", Source: &src, CommentIDs: consumed})
	s.Versions = Append(s.Versions, v)
	s.Comments = MarkApplied(s.Comments, consumed, v.ID)
	s.CurrentVersion = v.Label

	out := s.Apply(meta)
	reloaded := LoadState(out)
	last := reloaded.Versions[len(reloaded.Versions)-1]
	assert.Equal(t, []string{"C1"}, last.SourceCommentIDs)
	assert.Equal(t, SourceCommentedRewrite, *last.SourceType)
	assert.Contains(t, reloaded.Comments[0].AppliedVersionIDs, last.ID)
	assert.Empty(t, reloaded.Comments[1].AppliedVersionIDs)
}
