package entity

import (
	"time"

	"thoth-writer-api/pkg/utils"
)

// DocumentType 文档类型
type DocumentType string

const (
	DocumentTypeChapter DocumentType = "chapter"
	DocumentTypeScene   DocumentType = "scene"
	DocumentTypeNote    DocumentType = "note"
	DocumentTypeOutline DocumentType = "outline"
)

// IsValid 检查文档类型是否合法
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeChapter, DocumentTypeScene, DocumentTypeNote, DocumentTypeOutline:
		return true
	}
	return false
}

// 文档 metadata 保留键
const (
	MetaVersions       = "versions"
	MetaComments       = "comments"
	MetaCurrentVersion = "current_version"
	MetaMinWordCount   = "min_word_count"
	MetaMaxWordCount   = "max_word_count"
	MetaSummary        = "summary"
	MetaElementType    = "element_type"
	MetaElementLabel   = "element_label"
	MetaParentID       = "parent_id"
)

// Document 文档实体（章节、场景、笔记、大纲）
type Document struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID    string         `json:"project_id" gorm:"type:uuid;index;not null"`
	Title        string         `json:"title" gorm:"type:varchar(255);not null"`
	Content      string         `json:"content,omitempty" gorm:"type:text"`
	DocumentType DocumentType   `json:"document_type" gorm:"type:varchar(32);default:'chapter'"`
	OrderIndex   int            `json:"order_index" gorm:"default:0;index"`
	WordCount    int            `json:"word_count" gorm:"default:0"`
	Metadata     map[string]any `json:"metadata" gorm:"column:document_metadata;type:jsonb;serializer:json"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "documents"
}

// NewDocument 创建新文档
func NewDocument(projectID, title, content string, docType DocumentType, orderIndex int) *Document {
	if !docType.IsValid() {
		docType = DocumentTypeChapter
	}
	d := &Document{
		ProjectID:    projectID,
		Title:        title,
		DocumentType: docType,
		OrderIndex:   orderIndex,
		Metadata:     map[string]any{},
	}
	d.SetContent(content)
	return d
}

// SetContent 设置正文并重算字数
func (d *Document) SetContent(content string) {
	d.Content = content
	d.WordCount = utils.CountWords(content)
}

// MetaString 读取 metadata 中的字符串字段
func (d *Document) MetaString(key string) string {
	if d == nil || d.Metadata == nil {
		return ""
	}
	s, _ := d.Metadata[key].(string)
	return s
}

// CloneMetadata 浅拷贝 metadata，用于整体替换写回
func (d *Document) CloneMetadata() map[string]any {
	out := make(map[string]any, len(d.Metadata)+4)
	for k, v := range d.Metadata {
		out[k] = v
	}
	return out
}

// DocumentPatch 文档更新补丁；Metadata 非 nil 时整体替换
type DocumentPatch struct {
	Title    *string
	Content  *string
	Metadata map[string]any
	// ExpectedUpdatedAt 非零时作为乐观锁条件
	ExpectedUpdatedAt time.Time
}

// Apply 将补丁写入文档
func (p DocumentPatch) Apply(d *Document) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Content != nil {
		d.SetContent(*p.Content)
	}
	if p.Metadata != nil {
		d.Metadata = p.Metadata
	}
}
