package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/tracer"
)

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 追加消息到流，返回流内消息 ID
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		attribute.String("stream", string(stream)),
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
	)
	var err error
	defer func() { tracer.End(span, err) }()

	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"data": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish message: %w", err)
	}
	span.SetAttributes(attribute.String("stream.message_id", id))
	return id, nil
}

// BookJobMessage 整书生成任务
type BookJobMessage struct {
	JobID     string          `json:"job_id"`
	ProjectID string          `json:"project_id"`
	UserID    string          `json:"user_id"`
	Params    json.RawMessage `json:"params"`
}

// PublishBookJob 投递整书生成任务，附带 request_id 与 trace_id 便于链路关联
func (p *Producer) PublishBookJob(ctx context.Context, job *BookJobMessage) (string, error) {
	msg, err := NewMessage(job.JobID, MessageTypeBookGeneration, job.ProjectID, job.UserID, job)
	if err != nil {
		return "", err
	}
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}
	if traceID := tracer.TraceID(ctx); traceID != "" {
		msg.SetMetadata("trace_id", traceID)
	}
	return p.Publish(ctx, StreamBookGen, msg)
}
