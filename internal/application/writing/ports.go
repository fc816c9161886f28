// Package writing 编排章节、整书与单文档的生成流程
package writing

import (
	"context"

	"thoth-writer-api/internal/application/generation"
	"thoth-writer-api/internal/domain/entity"
	wfmodel "thoth-writer-api/internal/workflow/model"
)

// ContextProvider 构建项目上下文；项目不存在或不属于用户时返回 NotFound
type ContextProvider interface {
	BuildProjectContext(ctx context.Context, projectID, userID string) (*wfmodel.ProjectContext, error)
}

// DocumentStore 文档存取
type DocumentStore interface {
	// GetByID 文档不存在或不可见时返回 NotFound
	GetByID(ctx context.Context, id, userID string) (*entity.Document, error)
	Update(ctx context.Context, id string, patch entity.DocumentPatch, userID string) (*entity.Document, error)
	Create(ctx context.Context, doc *entity.Document, userID string) (*entity.Document, error)
	NextOrderIndex(ctx context.Context, projectID string) (int, error)
	ListAllByProject(ctx context.Context, projectID, userID string) ([]*entity.Document, error)
}

// Retriever 向量检索；未配置时 Index 返回 0，Retrieve 返回空列表
type Retriever interface {
	Index(ctx context.Context, projectID string, docs []*entity.Document, clearExisting bool) (int, error)
	Retrieve(ctx context.Context, projectID, query string, topK int) ([]string, error)
}

// TextGenerator 分块生成
type TextGenerator interface {
	Generate(ctx context.Context, req *generation.Request) (*generation.Result, error)
}

// Settings 生成流程参数
type Settings struct {
	RAGTopK          int
	PlanMaxTokens    int
	OutlineMaxTokens int
	WriteMaxTokens   int
	MaxBookChapters  int
}

// DefaultSettings 默认参数
func DefaultSettings() Settings {
	return Settings{
		RAGTopK:          5,
		PlanMaxTokens:    800,
		OutlineMaxTokens: 1200,
		WriteMaxTokens:   4000,
		MaxBookChapters:  50,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.RAGTopK <= 0 {
		s.RAGTopK = def.RAGTopK
	}
	if s.PlanMaxTokens <= 0 {
		s.PlanMaxTokens = def.PlanMaxTokens
	}
	if s.OutlineMaxTokens <= 0 {
		s.OutlineMaxTokens = def.OutlineMaxTokens
	}
	if s.WriteMaxTokens <= 0 {
		s.WriteMaxTokens = def.WriteMaxTokens
	}
	if s.MaxBookChapters <= 0 {
		s.MaxBookChapters = def.MaxBookChapters
	}
	return s
}

// 各步骤的采样温度
const (
	planTemperature    float32 = 0.5
	writeTemperature   float32 = 0.7
	outlineTemperature float32 = 0.4
	elementTemperature float32 = 0.7
)
