package versioning

import (
	"fmt"
	"slices"
	"strings"

	apperrors "thoth-writer-api/pkg/errors"
)

// NewComment 构造一条评论；content 为空时返回 InvalidInput。
// versionID 的有效性由调用方校验。
func (l *Ledger) NewComment(content, userID string, versionID *string) (Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, apperrors.ErrInvalidParam.WithDetail("comment content is empty")
	}
	c := Comment{
		ID:                l.newID(),
		Content:           content,
		CreatedAt:         l.Timestamp(),
		UserID:            userID,
		AppliedVersionIDs: []string{},
	}
	if versionID != nil && strings.TrimSpace(*versionID) != "" {
		c.VersionID = ptr(strings.TrimSpace(*versionID))
	}
	return c, nil
}

// AddComment 返回追加了新评论的列表
func (l *Ledger) AddComment(comments []Comment, content, userID string, versionID *string) ([]Comment, Comment, error) {
	c, err := l.NewComment(content, userID, versionID)
	if err != nil {
		return comments, Comment{}, err
	}
	out := make([]Comment, len(comments), len(comments)+1)
	copy(out, comments)
	return append(out, c), c, nil
}

// SelectComments 选出参与本次生成的评论。
// ids 为 nil 时全部评论都参与；显式给出的 ids 一条都未命中时返回 NotFound。
func SelectComments(comments []Comment, ids []string, versions []Version) ([]string, []string, error) {
	var wanted map[string]struct{}
	if ids != nil {
		wanted = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				wanted[id] = struct{}{}
			}
		}
	}

	var lines, consumed []string
	for _, c := range comments {
		if wanted != nil {
			if _, ok := wanted[c.ID]; !ok {
				continue
			}
		}
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}
		lines = append(lines, formatCommentLine(content, c.VersionID, versions))
		consumed = append(consumed, c.ID)
	}

	if len(wanted) > 0 && len(consumed) == 0 {
		return nil, nil, apperrors.ErrCommentNotFound.WithDetail(strings.Join(ids, ","))
	}
	return lines, consumed, nil
}

func formatCommentLine(content string, versionID *string, versions []Version) string {
	if versionID != nil {
		if v, ok := Find(versions, *versionID); ok {
			return fmt.Sprintf("- %s (version %s)", content, v.Label)
		}
	}
	return "- " + content
}

// MarkApplied 将 versionID 记入被消费评论的 applied_version_ids，已存在则跳过
func MarkApplied(comments []Comment, ids []string, versionID string) []Comment {
	if len(ids) == 0 || versionID == "" {
		return comments
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	out := make([]Comment, len(comments))
	for i, c := range comments {
		if _, ok := set[c.ID]; ok && !slices.Contains(c.AppliedVersionIDs, versionID) {
			applied := make([]string, len(c.AppliedVersionIDs), len(c.AppliedVersionIDs)+1)
			copy(applied, c.AppliedVersionIDs)
			c.AppliedVersionIDs = append(applied, versionID)
		}
		out[i] = c
	}
	return out
}

// CommentViews 生成评论视图，附带锚定版本的版本号
func CommentViews(comments []Comment, versions []Version) []CommentView {
	out := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		view := CommentView{
			ID:                c.ID,
			Content:           c.Content,
			CreatedAt:         c.CreatedAt,
			UserID:            c.UserID,
			VersionID:         c.VersionID,
			AppliedVersionIDs: c.AppliedVersionIDs,
		}
		if c.VersionID != nil {
			if v, ok := Find(versions, *c.VersionID); ok {
				view.Version = v.Label
			}
		}
		out = append(out, view)
	}
	return out
}
