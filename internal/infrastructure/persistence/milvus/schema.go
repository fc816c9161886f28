package milvus

import (
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionDocumentPassages 文档片段集合
	CollectionDocumentPassages = "document_passages"

	// DefaultVectorDimension 未配置维度时的默认向量维度
	DefaultVectorDimension = 1024
)

// DocumentPassagesSchema 文档片段 Collection Schema
func DocumentPassagesSchema(dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionDocumentPassages,
		Description:    "Project document passages for semantic retrieval",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "vector",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
			{
				Name:       "project_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "document_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       "text_content",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "65535"},
			},
		},
	}
}

// DocumentPassage 文档片段数据结构
type DocumentPassage struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	ProjectID   string    `json:"project_id"`
	DocumentID  string    `json:"document_id"`
	ChunkIndex  int64     `json:"chunk_index"`
	TextContent string    `json:"text_content"`
}

// PartitionName 每个项目一个分区；分区名只允许字母、数字和下划线
func PartitionName(projectID string) string {
	return "proj_" + strings.ReplaceAll(projectID, "-", "_")
}
