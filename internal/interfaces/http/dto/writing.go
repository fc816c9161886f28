package dto

import (
	"time"

	"thoth-writer-api/internal/application/jobs"
	"thoth-writer-api/internal/application/writing"
	"thoth-writer-api/internal/domain/entity"
)

// IndexProjectRequest 重建项目检索索引
type IndexProjectRequest struct {
	ProjectID     string `json:"project_id" binding:"required"`
	ClearExisting *bool  `json:"clear_existing"`
}

// ClearExistingOrDefault 默认清空已有索引
func (r *IndexProjectRequest) ClearExistingOrDefault() bool {
	return boolOr(r.ClearExisting, true)
}

// IndexProjectResponse 索引结果
type IndexProjectResponse struct {
	ChunksIndexed int `json:"chunks_indexed"`
}

// ChapterGenerationRequest 章节生成请求
type ChapterGenerationRequest struct {
	ProjectID        string         `json:"project_id" binding:"required"`
	ChapterTitle     string         `json:"chapter_title"`
	ChapterPrompt    string         `json:"chapter_prompt"`
	TargetWordCount  *int           `json:"target_word_count"`
	Constraints      map[string]any `json:"constraints"`
	UseRAG           *bool          `json:"use_rag"`
	ReindexDocuments bool           `json:"reindex_documents"`
	CreateDocument   *bool          `json:"create_document"`
	OrderIndex       *int           `json:"order_index"`
}

// ToRequest 转换为流水线请求
func (r *ChapterGenerationRequest) ToRequest(userID string) *writing.ChapterRequest {
	return &writing.ChapterRequest{
		ProjectID:        r.ProjectID,
		UserID:           userID,
		ChapterTitle:     r.ChapterTitle,
		ChapterPrompt:    r.ChapterPrompt,
		TargetWordCount:  r.TargetWordCount,
		Constraints:      r.Constraints,
		UseRAG:           boolOr(r.UseRAG, true),
		ReindexDocuments: r.ReindexDocuments,
		OrderIndex:       r.OrderIndex,
		CreateDocument:   boolOr(r.CreateDocument, true),
	}
}

// BookGenerationRequest 整书生成请求
type BookGenerationRequest struct {
	ProjectID           string         `json:"project_id" binding:"required"`
	BookPrompt          string         `json:"book_prompt"`
	ChapterCount        int            `json:"chapter_count"`
	PerChapterWordCount *int           `json:"per_chapter_word_count"`
	Constraints         map[string]any `json:"constraints"`
	UseRAG              *bool          `json:"use_rag"`
	ReindexDocuments    bool           `json:"reindex_documents"`
	CreateDocuments     *bool          `json:"create_documents"`
}

// ToParams 转换为任务参数（同步与异步共用）
func (r *BookGenerationRequest) ToParams() jobs.BookParams {
	return jobs.BookParams{
		BookPrompt:          r.BookPrompt,
		ChapterCount:        r.ChapterCount,
		PerChapterWordCount: r.PerChapterWordCount,
		Constraints:         r.Constraints,
		UseRAG:              boolOr(r.UseRAG, true),
		ReindexDocuments:    r.ReindexDocuments,
		CreateDocuments:     boolOr(r.CreateDocuments, true),
	}
}

// JobResponse 任务响应
type JobResponse struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	JobType      string     `json:"job_type"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	Output       any        `json:"output,omitempty"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// ToJobResponse 转换为任务响应
func ToJobResponse(j *entity.GenerationJob) *JobResponse {
	resp := &JobResponse{
		ID:           j.ID,
		ProjectID:    j.ProjectID,
		JobType:      string(j.JobType),
		Status:       string(j.Status),
		Progress:     j.Progress,
		ErrorCode:    j.ErrorCode,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
	if len(j.OutputResult) > 0 {
		resp.Output = j.OutputResult
	}
	return resp
}

// ExecuteAgentRequest 调用写作助手；project_id 非空时附带项目上下文
type ExecuteAgentRequest struct {
	Action    string         `json:"action"`
	Task      map[string]any `json:"task"`
	ProjectID string         `json:"project_id"`
}
