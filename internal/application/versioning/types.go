// Package versioning 维护文档的只追加版本账本与评审评论
//
// 版本与评论以 typed 记录在内存中处理，在存储边界与文档 metadata
// 中的通用 map 互相转换；读取时跳过结构不合法的历史条目。
package versioning

import "thoth-writer-api/internal/domain/entity"

// SourceType 版本来源
type SourceType string

const (
	SourceGenerate          SourceType = "generate"
	SourceRewrite           SourceType = "rewrite"
	SourceCommentedGenerate SourceType = "commented_generate"
	SourceCommentedRewrite  SourceType = "commented_rewrite"
	SourceManualEdit        SourceType = "manual_edit"
)

// ClassifySource 根据是否基于源版本、是否融合评论确定生成类版本的来源
func ClassifySource(hasSource, hasComments bool) SourceType {
	switch {
	case hasSource && hasComments:
		return SourceCommentedRewrite
	case hasSource:
		return SourceRewrite
	case hasComments:
		return SourceCommentedGenerate
	default:
		return SourceGenerate
	}
}

// Version 一次内容快照及其生成来源
type Version struct {
	ID        string
	Label     string
	CreatedAt string // ISO-8601
	Content   string
	WordCount int

	MinWordCount *int
	MaxWordCount *int
	Summary      *string
	Instructions *string

	SourceVersionID  *string
	SourceVersion    *string
	SourceType       *SourceType
	SourceCommentIDs []string
	EditedBy         string

	// extra 保留未识别的字段，写回时原样输出
	extra map[string]any
	// pos 原始 metadata 列表中的下标加一，0 表示新建条目
	pos int
}

// Comment 评审评论
type Comment struct {
	ID                string
	Content           string
	CreatedAt         string
	UserID            string
	VersionID         *string
	AppliedVersionIDs []string

	extra map[string]any
	pos   int
}

// VersionView 对外展示的版本视图
type VersionView struct {
	ID               string      `json:"id"`
	Version          string      `json:"version"`
	CreatedAt        string      `json:"created_at"`
	WordCount        int         `json:"word_count"`
	MinWordCount     *int        `json:"min_word_count"`
	MaxWordCount     *int        `json:"max_word_count"`
	Summary          *string     `json:"summary"`
	Instructions     *string     `json:"instructions"`
	SourceVersionID  *string     `json:"source_version_id"`
	SourceVersion    *string     `json:"source_version"`
	SourceType       *SourceType `json:"source_type"`
	SourceCommentIDs []string    `json:"source_comment_ids"`
	EditedBy         string      `json:"edited_by,omitempty"`
	IsCurrent        bool        `json:"is_current"`
	Content          *string     `json:"content,omitempty"`
}

// CommentView 对外展示的评论视图
type CommentView struct {
	ID                string   `json:"id"`
	Content           string   `json:"content"`
	CreatedAt         string   `json:"created_at"`
	UserID            string   `json:"user_id"`
	VersionID         *string  `json:"version_id"`
	Version           string   `json:"version,omitempty"`
	AppliedVersionIDs []string `json:"applied_version_ids"`
}

// State 文档 metadata 中由账本维护的部分
type State struct {
	Versions       []Version
	Comments       []Comment
	CurrentVersion string

	// 原始列表，包含解析失败的条目；写回时保留它们的位置与内容
	rawVersions []any
	rawComments []any
}

// LoadState 从文档 metadata 解析版本、评论与当前版本
func LoadState(meta map[string]any) State {
	var s State
	if meta == nil {
		return s
	}
	s.Versions, s.rawVersions = decodeVersionList(meta[entity.MetaVersions])
	s.Comments, s.rawComments = decodeCommentList(meta[entity.MetaComments])
	s.CurrentVersion, _ = meta[entity.MetaCurrentVersion].(string)
	return s
}

// Apply 返回写回用的完整 metadata（整体替换语义），保留其它键
func (s State) Apply(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+3)
	for k, v := range meta {
		out[k] = v
	}
	out[entity.MetaVersions] = mergeEncoded(s.rawVersions, s.Versions, func(v Version) (int, map[string]any, bool) {
		// 已有版本不可变，只追加新条目
		return v.pos, v.toMap(), v.pos == 0
	})
	out[entity.MetaComments] = mergeEncoded(s.rawComments, s.Comments, func(c Comment) (int, map[string]any, bool) {
		return c.pos, c.toMap(), true
	})
	if s.CurrentVersion != "" {
		out[entity.MetaCurrentVersion] = s.CurrentVersion
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
