package versioning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/utils"
)

// ElisionMarker 源内容摘录中省略部分的标记
const ElisionMarker = "[...]"

var labelPattern = regexp.MustCompile(`^v(\d+)(?:\.(\d+))?$`)

// Ledger 版本账本操作，本身不持有状态
type Ledger struct {
	now              func() time.Time
	newID            func() string
	excerptThreshold int
	excerptChars     int
}

// Option 账本配置项
type Option func(*Ledger)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator 注入 ID 生成器
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// WithSourceExcerpt 设置源内容截取阈值与首尾保留字符数
func WithSourceExcerpt(threshold, chars int) Option {
	return func(l *Ledger) {
		if threshold > 0 && chars > 0 {
			l.excerptThreshold = threshold
			l.excerptChars = chars
		}
	}
}

// NewLedger 创建账本
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		now:              time.Now,
		newID:            uuid.NewString,
		excerptThreshold: 3200,
		excerptChars:     1600,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Timestamp 当前时间的 ISO-8601 表示
func (l *Ledger) Timestamp() string {
	return l.now().UTC().Format(time.RFC3339Nano)
}

// NewID 生成条目 ID
func (l *Ledger) NewID() string {
	return l.newID()
}

// EnsureBackfilled 为引入版本功能前的文档补建 v1；已有版本时不改动版本列表。
// changed 为 true 表示需要持久化。
func (l *Ledger) EnsureBackfilled(s State, content string) (State, bool) {
	if len(s.Versions) > 0 {
		if _, ok := FindByLabel(s.Versions, s.CurrentVersion); ok {
			return s, false
		}
		// current_version 缺失或指向不存在的条目时对齐到最新版本
		s.CurrentVersion = s.Versions[len(s.Versions)-1].Label
		return s, true
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return s, false
	}

	v1 := Version{
		ID:        l.newID(),
		Label:     RenderLabel(1, 0),
		CreatedAt: l.Timestamp(),
		Content:   trimmed,
		WordCount: utils.CountWords(trimmed),
	}
	s.Versions = Append(s.Versions, v1)
	s.CurrentVersion = v1.Label
	return s, true
}

// NextLabel 计算下一个版本号：空历史为 v1，否则次版本号加一
func NextLabel(versions []Version) string {
	if len(versions) == 0 {
		return RenderLabel(1, 0)
	}
	major, minor := ParseLabel(versions[len(versions)-1].Label)
	return RenderLabel(major, minor+1)
}

// ParseLabel 解析 v<major>[.<minor>]，无法解析时视为 (1, 0)
func ParseLabel(label string) (int, int) {
	m := labelPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 1, 0
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 1, 0
	}
	minor := 0
	if m[2] != "" {
		if minor, err = strconv.Atoi(m[2]); err != nil {
			return 1, 0
		}
	}
	return major, minor
}

// RenderLabel 次版本号 <= 0 时渲染为 v<major>，否则补零到两位
func RenderLabel(major, minor int) string {
	if minor <= 0 {
		return fmt.Sprintf("v%d", major)
	}
	return fmt.Sprintf("v%d.%02d", major, minor)
}

// Append 返回追加了 entry 的新切片，不修改入参
func Append(versions []Version, entry Version) []Version {
	entry.pos = 0
	out := make([]Version, len(versions), len(versions)+1)
	copy(out, versions)
	return append(out, entry)
}

// Find 按 ID 查找版本
func Find(versions []Version, id string) (Version, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Version{}, false
	}
	for _, v := range versions {
		if v.ID == id {
			return v, true
		}
	}
	return Version{}, false
}

// FindByLabel 按版本号查找
func FindByLabel(versions []Version, label string) (Version, bool) {
	if label == "" {
		return Version{}, false
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Label == label {
			return versions[i], true
		}
	}
	return Version{}, false
}

// Get 按 ID 获取版本，不存在时返回 NotFound
func Get(versions []Version, id string) (Version, error) {
	v, ok := Find(versions, id)
	if !ok {
		return Version{}, apperrors.ErrVersionNotFound.WithDetail(id)
	}
	return v, nil
}

// ResolveSource 返回源版本内容与版本号；内容过长时返回首尾摘录而非全文
func (l *Ledger) ResolveSource(versions []Version, sourceVersionID string) (string, string, error) {
	v, err := Get(versions, sourceVersionID)
	if err != nil {
		return "", "", err
	}
	return l.excerpt(v.Content), v.Label, nil
}

func (l *Ledger) excerpt(content string) string {
	if utils.RuneLen(content) <= l.excerptThreshold {
		return content
	}
	head := utils.HeadRunes(content, l.excerptChars)
	tail := utils.TailRunes(content, l.excerptChars)
	return head + "\n\n" + ElisionMarker + "\n\n" + tail
}

// Serialize 生成版本视图；缺少 id/version 的条目返回 nil
func Serialize(v Version, currentVersion string, includeContent bool) *VersionView {
	if v.ID == "" || v.Label == "" {
		return nil
	}
	view := &VersionView{
		ID:               v.ID,
		Version:          v.Label,
		CreatedAt:        v.CreatedAt,
		WordCount:        v.WordCount,
		MinWordCount:     v.MinWordCount,
		MaxWordCount:     v.MaxWordCount,
		Summary:          v.Summary,
		Instructions:     v.Instructions,
		SourceVersionID:  v.SourceVersionID,
		SourceVersion:    v.SourceVersion,
		SourceType:       v.SourceType,
		SourceCommentIDs: v.SourceCommentIDs,
		EditedBy:         v.EditedBy,
		IsCurrent:        v.Label == currentVersion,
	}
	if includeContent {
		view.Content = ptr(v.Content)
	}
	return view
}

// SerializeAll 按时间顺序生成视图列表
func SerializeAll(versions []Version, currentVersion string, includeContent bool) []VersionView {
	out := make([]VersionView, 0, len(versions))
	for _, v := range versions {
		if view := Serialize(v, currentVersion, includeContent); view != nil {
			out = append(out, *view)
		}
	}
	return out
}

// Draft 新版本的内容与来源信息
type Draft struct {
	Content      string
	MinWordCount *int
	MaxWordCount *int
	Summary      *string
	Instructions *string
	Source       *Version
	CommentIDs   []string
}

// NewGenerated 基于生成结果构造下一个版本，来源类型由是否有源版本与评论决定
func (l *Ledger) NewGenerated(versions []Version, d Draft) Version {
	v := l.newVersion(versions, d)
	v.SourceType = ptr(ClassifySource(d.Source != nil, len(d.CommentIDs) > 0))
	if len(d.CommentIDs) > 0 {
		v.SourceCommentIDs = append([]string(nil), d.CommentIDs...)
	}
	return v
}

// NewManualEdit 构造人工编辑产生的版本
func (l *Ledger) NewManualEdit(versions []Version, d Draft, editedBy string) Version {
	v := l.newVersion(versions, d)
	v.SourceType = ptr(SourceManualEdit)
	v.EditedBy = editedBy
	return v
}

func (l *Ledger) newVersion(versions []Version, d Draft) Version {
	v := Version{
		ID:           l.newID(),
		Label:        NextLabel(versions),
		CreatedAt:    l.Timestamp(),
		Content:      d.Content,
		WordCount:    utils.CountWords(d.Content),
		MinWordCount: d.MinWordCount,
		MaxWordCount: d.MaxWordCount,
		Summary:      d.Summary,
		Instructions: d.Instructions,
	}
	if d.Source != nil {
		v.SourceVersionID = ptr(d.Source.ID)
		v.SourceVersion = ptr(d.Source.Label)
	}
	return v
}
