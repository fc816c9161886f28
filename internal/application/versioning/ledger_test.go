package versioning

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoth-writer-api/internal/domain/entity"
	apperrors "thoth-writer-api/pkg/errors"
)

func newTestLedger() *Ledger {
	n := 0
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return NewLedger(
		WithClock(func() time.Time { return clock }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func rawVersion(id, label, content string) map[string]any {
	return map[string]any{
		"id":         id,
		"version":    label,
		"created_at": "2024-01-01T00:00:00Z",
		"content":    content,
		"word_count": float64(len(strings.Fields(content))),
	}
}

func TestNextLabel(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{"empty history", nil, "v1"},
		{"after v1", []string{"v1"}, "v1.01"},
		{"after v1.02", []string{"v1", "v1.01", "v1.02"}, "v1.03"},
		{"two digit rollover", []string{"v1.09"}, "v1.10"},
		{"beyond two digits", []string{"v1.99"}, "v1.100"},
		{"seeded major", []string{"v3"}, "v3.01"},
		{"unparsable last", []string{"draft"}, "v1.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var versions []Version
			for _, l := range tt.labels {
				versions = append(versions, Version{ID: l, Label: l})
			}
			assert.Equal(t, tt.want, NextLabel(versions))
		})
	}
}

func TestEnsureBackfilled(t *testing.T) {
	l := newTestLedger()

	t.Run("creates v1 from existing content", func(t *testing.T) {
		s, changed := l.EnsureBackfilled(State{}, "  Il était une fois.  ")
		require.True(t, changed)
		require.Len(t, s.Versions, 1)
		assert.Equal(t, "v1", s.Versions[0].Label)
		assert.Equal(t, "Il était une fois.", s.Versions[0].Content)
		assert.Nil(t, s.Versions[0].SourceType)
		assert.Equal(t, "v1", s.CurrentVersion)
	})

	t.Run("idempotent", func(t *testing.T) {
		s, _ := l.EnsureBackfilled(State{}, "texte")
		again, changed := l.EnsureBackfilled(s, "texte")
		assert.False(t, changed)
		assert.Equal(t, s.Versions, again.Versions)
	})

	t.Run("blank content stays empty", func(t *testing.T) {
		s, changed := l.EnsureBackfilled(State{}, " \n\t")
		assert.False(t, changed)
		assert.Empty(t, s.Versions)
		assert.Empty(t, s.CurrentVersion)
	})

	t.Run("repairs dangling current version", func(t *testing.T) {
		s := State{
			Versions:       []Version{{ID: "a", Label: "v1"}, {ID: "b", Label: "v1.01"}},
			CurrentVersion: "v9",
		}
		s, changed := l.EnsureBackfilled(s, "ignored")
		assert.True(t, changed)
		assert.Len(t, s.Versions, 2)
		assert.Equal(t, "v1.01", s.CurrentVersion)
	})
}

func TestAppendDoesNotMutateInput(t *testing.T) {
	base := make([]Version, 1, 4)
	base[0] = Version{ID: "a", Label: "v1"}

	first := Append(base, Version{ID: "b", Label: "v1.01"})
	second := Append(base, Version{ID: "c", Label: "v1.01"})

	assert.Len(t, base, 1)
	assert.Equal(t, "b", first[1].ID)
	assert.Equal(t, "c", second[1].ID)
}

func TestResolveSource(t *testing.T) {
	l := newTestLedger()
	short := Version{ID: "s", Label: "v1", Content: "court"}
	long := Version{ID: "l", Label: "v1.01", Content: strings.Repeat("a", 1600) + strings.Repeat("m", 100) + strings.Repeat("z", 1600)}
	versions := []Version{short, long}

	content, label, err := l.ResolveSource(versions, "s")
	require.NoError(t, err)
	assert.Equal(t, "court", content)
	assert.Equal(t, "v1", label)

	content, label, err = l.ResolveSource(versions, "l")
	require.NoError(t, err)
	assert.Equal(t, "v1.01", label)
	assert.Contains(t, content, ElisionMarker)
	assert.True(t, strings.HasPrefix(content, strings.Repeat("a", 1600)))
	assert.True(t, strings.HasSuffix(content, strings.Repeat("z", 1600)))
	assert.NotContains(t, content, "m")

	_, _, err = l.ResolveSource(versions, "missing")
	assert.ErrorIs(t, err, apperrors.ErrVersionNotFound)
}

func TestLoadStateSkipsMalformedAndPreservesThemOnWrite(t *testing.T) {
	meta := map[string]any{
		entity.MetaVersions: []any{
			rawVersion("a", "v1", "un deux"),
			map[string]any{"version": "v1.01", "content": "sans id"},
			"garbage",
			rawVersion("b", "v1.02", "trois quatre cinq"),
		},
		entity.MetaComments: []any{
			map[string]any{"id": "c1", "content": "Plus de tension", "user_id": "u1", "applied_version_ids": []any{}},
			map[string]any{"id": "c2"},
		},
		entity.MetaCurrentVersion: "v1.02",
		"element_type":            "chapitre",
	}

	s := LoadState(meta)
	require.Len(t, s.Versions, 2)
	assert.Equal(t, []string{"v1", "v1.02"}, []string{s.Versions[0].Label, s.Versions[1].Label})
	require.Len(t, s.Comments, 1)
	assert.Equal(t, 2, s.Versions[0].WordCount)

	l := newTestLedger()
	s.Versions = Append(s.Versions, l.NewGenerated(s.Versions, Draft{Content: "nouveau texte"}))
	s.CurrentVersion = s.Versions[2].Label

	out := s.Apply(meta)
	raw := out[entity.MetaVersions].([]any)
	require.Len(t, raw, 5)
	assert.Equal(t, "garbage", raw[2])
	assert.Equal(t, "v1.03", raw[4].(map[string]any)["version"])
	assert.Equal(t, "v1.03", out[entity.MetaCurrentVersion])
	assert.Equal(t, "chapitre", out["element_type"])
	assert.Len(t, out[entity.MetaComments].([]any), 2)

	// 原 metadata 不被修改
	assert.Len(t, meta[entity.MetaVersions].([]any), 4)
	assert.Equal(t, "v1.02", meta[entity.MetaCurrentVersion])
}

func TestRewriteFromSource(t *testing.T) {
	l := newTestLedger()
	s := LoadState(map[string]any{
		entity.MetaVersions: []any{
			rawVersion("a", "v1", "un"),
			rawVersion("b", "v1.01", "deux"),
			rawVersion("c", "v1.02", "trois"),
		},
	})
	src, err := Get(s.Versions, "b")
	require.NoError(t, err)

	v := l.NewGenerated(s.Versions, Draft{Content: "réécrit", Source: &src})
	assert.Equal(t, "v1.03", v.Label)
	require.NotNil(t, v.SourceType)
	assert.Equal(t, SourceRewrite, *v.SourceType)
	assert.Equal(t, "b", *v.SourceVersionID)
	assert.Equal(t, "v1.01", *v.SourceVersion)
	assert.Nil(t, v.SourceCommentIDs)
}

func TestManualEditVersion(t *testing.T) {
	l := newTestLedger()
	versions := []Version{{ID: "v1-id", Label: "v1", Content: "a"}}
	cur := versions[0]

	v := l.NewManualEdit(versions, Draft{Content: "édité à la main", Source: &cur}, "user-42")
	assert.Equal(t, "v1.01", v.Label)
	assert.Equal(t, SourceManualEdit, *v.SourceType)
	assert.Equal(t, "user-42", v.EditedBy)
	assert.Equal(t, "v1-id", *v.SourceVersionID)

	m := v.toMap()
	assert.Equal(t, "manual_edit", m["source_type"])
	assert.Equal(t, "user-42", m["edited_by"])
}

func TestClassifySource(t *testing.T) {
	assert.Equal(t, SourceGenerate, ClassifySource(false, false))
	assert.Equal(t, SourceRewrite, ClassifySource(true, false))
	assert.Equal(t, SourceCommentedGenerate, ClassifySource(false, true))
	assert.Equal(t, SourceCommentedRewrite, ClassifySource(true, true))
}

func TestSerializeAll(t *testing.T) {
	versions := []Version{
		{ID: "a", Label: "v1", Content: "un"},
		{ID: "", Label: "v1.01"},
		{ID: "c", Label: "v1.02", Content: "trois"},
	}

	views := SerializeAll(versions, "v1.02", false)
	require.Len(t, views, 2)
	assert.Nil(t, views[0].Content)
	assert.False(t, views[0].IsCurrent)
	assert.True(t, views[1].IsCurrent)

	withContent := SerializeAll(versions, "v1.02", true)
	require.NotNil(t, withContent[1].Content)
	assert.Equal(t, "trois", *withContent[1].Content)
}
