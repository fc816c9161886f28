package milvus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"thoth-writer-api/pkg/metrics"
)

// Repository 文档片段向量仓储
type Repository struct {
	client *Client
	dim    int
}

// NewRepository 创建向量仓储；dim 为 0 时使用默认维度
func NewRepository(client *Client, dim int) *Repository {
	if dim <= 0 {
		dim = DefaultVectorDimension
	}
	return &Repository{client: client, dim: dim}
}

// SearchParams 检索参数
type SearchParams struct {
	ProjectID   string
	QueryVector []float32
	TopK        int
}

// SearchResult 检索结果
type SearchResult struct {
	ID          string
	Score       float32
	TextContent string
	DocumentID  string
}

func (r *Repository) ready() error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	return nil
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	if err := r.ready(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	schema.CollectionName = r.client.CollectionName(schema.CollectionName)
	if err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// metricType 相似度度量，未配置时使用 COSINE
func (r *Repository) metricType() entity.MetricType {
	switch strings.ToUpper(r.client.config.MetricType) {
	case "IP":
		return entity.IP
	case "L2":
		return entity.L2
	default:
		return entity.COSINE
	}
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if err := r.ready(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	idx, err := entity.NewIndexHNSW(r.metricType(), r.client.config.HNSWM, r.client.config.HNSWEfConstruction)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := r.client.milvus.CreateIndex(ctx, r.client.CollectionName(collection), "vector", idx, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// EnsurePassagesCollection 确保集合与索引可用（不存在则创建），不做破坏性操作
func (r *Repository) EnsurePassagesCollection(ctx context.Context) error {
	if err := r.ready(); err != nil {
		return err
	}
	exists, err := r.client.HasCollection(ctx, CollectionDocumentPassages)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, DocumentPassagesSchema(r.dim)); err != nil {
			return err
		}
		// 索引创建失败不阻断，由运维补建
		_ = r.CreateIndex(ctx, CollectionDocumentPassages)
	}
	return r.client.LoadCollection(ctx, CollectionDocumentPassages)
}

// SearchPassages 在项目分区内检索
func (r *Repository) SearchPassages(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchPassages",
		trace.WithAttributes(
			attribute.String("project_id", params.ProjectID),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	start := time.Now()
	results, err := r.search(ctx, params)
	metrics.MilvusSearchDuration.WithLabelValues(CollectionDocumentPassages).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	metrics.MilvusSearchTotal.WithLabelValues(CollectionDocumentPassages, status).Inc()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("result_count", len(results)))
	return results, nil
}

func (r *Repository) search(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	collName := r.client.CollectionName(CollectionDocumentPassages)
	partitionName := PartitionName(params.ProjectID)

	// 新项目尚无分区时直接返回空结果
	has, err := r.client.milvus.HasPartition(ctx, collName, partitionName)
	if err != nil {
		return nil, fmt.Errorf("failed to check partition: %w", err)
	}
	if !has {
		return []*SearchResult{}, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		[]string{partitionName},
		fmt.Sprintf(`project_id == "%s"`, params.ProjectID),
		[]string{"id", "text_content", "document_id"},
		[]entity.Vector{entity.FloatVector(params.QueryVector)},
		"vector",
		r.metricType(),
		params.TopK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var out []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{Score: result.Scores[i]}
			if col, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				sr.ID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("text_content").(*entity.ColumnVarChar); ok {
				sr.TextContent = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("document_id").(*entity.ColumnVarChar); ok {
				sr.DocumentID = col.Data()[i]
			}
			out = append(out, sr)
		}
	}
	return out, nil
}

// InsertPassages 写入片段，必要时创建项目分区
func (r *Repository) InsertPassages(ctx context.Context, projectID string, passages []*DocumentPassage) error {
	if err := r.ready(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "milvus.InsertPassages",
		trace.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.Int("count", len(passages)),
		))
	defer span.End()

	if len(passages) == 0 {
		return nil
	}

	collName := r.client.CollectionName(CollectionDocumentPassages)
	partitionName := PartitionName(projectID)
	if has, _ := r.client.milvus.HasPartition(ctx, collName, partitionName); !has {
		if err := r.client.milvus.CreatePartition(ctx, collName, partitionName); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create partition: %w", err)
		}
	}

	n := len(passages)
	ids := make([]string, n)
	vectors := make([][]float32, n)
	projectIDs := make([]string, n)
	documentIDs := make([]string, n)
	chunkIdx := make([]int64, n)
	texts := make([]string, n)
	for i, p := range passages {
		ids[i] = p.ID
		vectors[i] = p.Vector
		projectIDs[i] = p.ProjectID
		documentIDs[i] = p.DocumentID
		chunkIdx[i] = p.ChunkIndex
		texts[i] = p.TextContent
	}

	_, err := r.client.milvus.Insert(ctx, collName, partitionName,
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector("vector", r.dim, vectors),
		entity.NewColumnVarChar("project_id", projectIDs),
		entity.NewColumnVarChar("document_id", documentIDs),
		entity.NewColumnInt64("chunk_index", chunkIdx),
		entity.NewColumnVarChar("text_content", texts),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert passages: %w", err)
	}
	return nil
}

// DeleteProjectPassages 删除项目分区内的全部片段
func (r *Repository) DeleteProjectPassages(ctx context.Context, projectID string) error {
	if err := r.ready(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "milvus.DeleteProjectPassages",
		trace.WithAttributes(attribute.String("project_id", projectID)))
	defer span.End()

	collName := r.client.CollectionName(CollectionDocumentPassages)
	partitionName := PartitionName(projectID)
	has, err := r.client.milvus.HasPartition(ctx, collName, partitionName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	}
	if !has {
		return nil
	}

	if err := r.client.milvus.Delete(ctx, collName, partitionName, fmt.Sprintf(`project_id == "%s"`, projectID)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete passages: %w", err)
	}
	return nil
}
