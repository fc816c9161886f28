package entity

import (
	"encoding/json"
	"time"
)

// JobType 任务类型
type JobType string

const (
	JobTypeBookGeneration    JobType = "book_generation"
	JobTypeChapterGeneration JobType = "chapter_generation"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal 是否为终态
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// GenerationJob 异步生成任务
type GenerationJob struct {
	ID           string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID    string          `json:"project_id" gorm:"type:uuid;index;not null"`
	UserID       string          `json:"user_id" gorm:"type:uuid;index;not null"`
	JobType      JobType         `json:"job_type" gorm:"type:varchar(50);not null"`
	Status       JobStatus       `json:"status" gorm:"type:varchar(20);index;default:'pending'"`
	Progress     int             `json:"progress"` // 任务进度 (0-100)
	InputParams  json.RawMessage `json:"input_params" gorm:"type:jsonb"`
	OutputResult json.RawMessage `json:"output_result,omitempty" gorm:"type:jsonb"`
	ErrorCode    string          `json:"error_code,omitempty" gorm:"type:varchar(16)"`
	ErrorMessage string          `json:"error_message,omitempty" gorm:"type:text"`
	RetryCount   int             `json:"retry_count"`
	DurationMs   int             `json:"duration_ms,omitempty"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (GenerationJob) TableName() string {
	return "generation_jobs"
}

// NewGenerationJob 创建新任务
func NewGenerationJob(projectID, userID string, jobType JobType, inputParams json.RawMessage) *GenerationJob {
	return &GenerationJob{
		ProjectID:   projectID,
		UserID:      userID,
		JobType:     jobType,
		Status:      JobStatusPending,
		InputParams: inputParams,
	}
}

// Start 开始执行任务
func (j *GenerationJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// Complete 完成任务
func (j *GenerationJob) Complete(result json.RawMessage) {
	j.finish(JobStatusCompleted)
	j.OutputResult = result
	j.Progress = 100
}

// Fail 任务失败
func (j *GenerationJob) Fail(code, errMsg string) {
	j.finish(JobStatusFailed)
	j.ErrorCode = code
	j.ErrorMessage = errMsg
}

func (j *GenerationJob) finish(status JobStatus) {
	now := time.Now()
	j.Status = status
	j.CompletedAt = &now
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}

// UpdateProgress 更新任务进度
func (j *GenerationJob) UpdateProgress(progress int) {
	j.Progress = ClampProgress(progress)
}

// ClampProgress 约束进度到 0-100
func ClampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
