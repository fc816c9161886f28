package versioning

import (
	"math"
	"strings"

	"thoth-writer-api/pkg/utils"
)

var versionKeys = map[string]struct{}{
	"id": {}, "version": {}, "created_at": {}, "content": {}, "word_count": {},
	"min_word_count": {}, "max_word_count": {}, "summary": {}, "instructions": {},
	"source_version_id": {}, "source_version": {}, "source_type": {},
	"source_comment_ids": {}, "edited_by": {},
}

var commentKeys = map[string]struct{}{
	"id": {}, "content": {}, "created_at": {}, "user_id": {}, "version_id": {},
	"applied_version_ids": {},
}

// DecodeVersions 解析版本列表，缺少 id/version/content 的条目被跳过
func DecodeVersions(raw any) []Version {
	out, _ := decodeVersionList(raw)
	return out
}

// DecodeComments 解析评论列表，缺少 id/content 的条目被跳过
func DecodeComments(raw any) []Comment {
	out, _ := decodeCommentList(raw)
	return out
}

func decodeVersionList(raw any) ([]Version, []any) {
	items := asList(raw)
	out := make([]Version, 0, len(items))
	for i, item := range items {
		v, ok := decodeVersion(item)
		if !ok {
			continue
		}
		v.pos = i + 1
		out = append(out, v)
	}
	return out, items
}

func decodeCommentList(raw any) ([]Comment, []any) {
	items := asList(raw)
	out := make([]Comment, 0, len(items))
	for i, item := range items {
		c, ok := decodeComment(item)
		if !ok {
			continue
		}
		c.pos = i + 1
		out = append(out, c)
	}
	return out, items
}

func decodeVersion(item any) (Version, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return Version{}, false
	}
	id := stringField(m, "id")
	label := stringField(m, "version")
	content, hasContent := m["content"].(string)
	if id == "" || label == "" || !hasContent {
		return Version{}, false
	}

	v := Version{
		ID:               id,
		Label:            label,
		CreatedAt:        stringField(m, "created_at"),
		Content:          content,
		MinWordCount:     optInt(m["min_word_count"]),
		MaxWordCount:     optInt(m["max_word_count"]),
		Summary:          optString(m["summary"]),
		Instructions:     optString(m["instructions"]),
		SourceVersionID:  optString(m["source_version_id"]),
		SourceVersion:    optString(m["source_version"]),
		SourceCommentIDs: stringList(m["source_comment_ids"]),
		EditedBy:         stringField(m, "edited_by"),
		extra:            extraFields(m, versionKeys),
	}
	if wc, ok := asInt(m["word_count"]); ok {
		v.WordCount = wc
	} else {
		v.WordCount = utils.CountWords(content)
	}
	if st := optString(m["source_type"]); st != nil {
		v.SourceType = ptr(SourceType(*st))
	}
	return v, true
}

func decodeComment(item any) (Comment, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return Comment{}, false
	}
	id := stringField(m, "id")
	content, hasContent := m["content"].(string)
	if id == "" || !hasContent {
		return Comment{}, false
	}
	applied := stringList(m["applied_version_ids"])
	if applied == nil {
		applied = []string{}
	}
	return Comment{
		ID:                id,
		Content:           content,
		CreatedAt:         stringField(m, "created_at"),
		UserID:            stringField(m, "user_id"),
		VersionID:         optString(m["version_id"]),
		AppliedVersionIDs: applied,
		extra:             extraFields(m, commentKeys),
	}, true
}

// EncodeVersions 将版本列表编码为 metadata 中的通用结构
func EncodeVersions(versions []Version) []any {
	out := make([]any, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.toMap())
	}
	return out
}

// EncodeComments 将评论列表编码为 metadata 中的通用结构
func EncodeComments(comments []Comment) []any {
	out := make([]any, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.toMap())
	}
	return out
}

func (v Version) toMap() map[string]any {
	m := make(map[string]any, len(versionKeys)+len(v.extra))
	for k, val := range v.extra {
		m[k] = val
	}
	m["id"] = v.ID
	m["version"] = v.Label
	m["created_at"] = v.CreatedAt
	m["content"] = v.Content
	m["word_count"] = v.WordCount
	m["min_word_count"] = nullable(v.MinWordCount)
	m["max_word_count"] = nullable(v.MaxWordCount)
	m["summary"] = nullable(v.Summary)
	m["instructions"] = nullable(v.Instructions)
	m["source_version_id"] = nullable(v.SourceVersionID)
	m["source_version"] = nullable(v.SourceVersion)
	if v.SourceType != nil {
		m["source_type"] = string(*v.SourceType)
	} else {
		m["source_type"] = nil
	}
	if v.SourceCommentIDs != nil {
		m["source_comment_ids"] = toAnyList(v.SourceCommentIDs)
	} else {
		m["source_comment_ids"] = nil
	}
	if v.EditedBy != "" {
		m["edited_by"] = v.EditedBy
	}
	return m
}

func (c Comment) toMap() map[string]any {
	m := make(map[string]any, len(commentKeys)+len(c.extra))
	for k, val := range c.extra {
		m[k] = val
	}
	m["id"] = c.ID
	m["content"] = c.Content
	m["created_at"] = c.CreatedAt
	m["user_id"] = c.UserID
	m["version_id"] = nullable(c.VersionID)
	applied := c.AppliedVersionIDs
	if applied == nil {
		applied = []string{}
	}
	m["applied_version_ids"] = toAnyList(applied)
	return m
}

// mergeEncoded 在原始列表上覆盖/追加编码后的条目，未解析的原始条目保持不动
func mergeEncoded[T any](raw []any, items []T, encode func(T) (int, map[string]any, bool)) []any {
	out := make([]any, len(raw), len(raw)+len(items))
	copy(out, raw)
	for _, item := range items {
		pos, m, write := encode(item)
		if !write {
			continue
		}
		if pos > 0 && pos <= len(out) {
			out[pos-1] = m
			continue
		}
		out = append(out, m)
	}
	return out
}

func asList(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	default:
		return nil
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func optString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func optInt(v any) *int {
	n, ok := asInt(v)
	if !ok {
		return nil
	}
	return &n
}

// asInt 兼容 JSON 解码后的 float64 与进程内的整型
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toAnyList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func extraFields(m map[string]any, known map[string]struct{}) map[string]any {
	var extra map[string]any
	for k, v := range m {
		if _, ok := known[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra
}
