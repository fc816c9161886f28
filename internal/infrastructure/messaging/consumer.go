package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/metrics"
	"thoth-writer-api/pkg/tracer"
)

// MessageHandler 消息处理函数；返回 Permanent 包装的错误时不再重试
type MessageHandler func(ctx context.Context, msg *Message) error

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	ClaimMinIdle  time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
}

// Consumer 消费组内的单个消费者：失败消息留在 PEL 中按退避重投，超过上限进入死信流
type Consumer struct {
	client *redis.Client
	cfg    ConsumerConfig

	handlers map[string]MessageHandler
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}
	if cfg.ClaimMinIdle <= 0 {
		cfg.ClaimMinIdle = max(5*time.Minute, cfg.Backoff.Max*2)
	}
	return &Consumer{
		client:   client,
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
		stopCh:   make(chan struct{}),
	}
}

func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = handler
}

// Start 创建消费组（已存在则忽略）并在后台开始消费
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	err := c.client.XGroupCreateMkStream(ctx, string(c.cfg.Stream), string(c.cfg.Group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go c.run(ctx)
	return nil
}

func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.stopCh)
		c.running = false
	}
}

func (c *Consumer) run(ctx context.Context) {
	logger.Info(ctx, "consumer started",
		"stream", c.cfg.Stream,
		"group", c.cfg.Group,
		"consumer", c.cfg.ConsumerName,
	)

	lastClaim := time.Now().Add(-c.cfg.ClaimInterval)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "consumer stopped due to context cancellation")
			return
		case <-c.stopCh:
			logger.Info(ctx, "consumer stopped")
			return
		default:
		}

		c.retryPending(ctx)
		if time.Since(lastClaim) >= c.cfg.ClaimInterval {
			c.reclaimStale(ctx)
			lastClaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    string(c.cfg.Group),
			Consumer: c.cfg.ConsumerName,
			Streams:  []string{string(c.cfg.Stream), ">"},
			Count:    10,
			Block:    c.cfg.BlockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Error(ctx, "failed to read from stream", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, xmsg := range s.Messages {
				c.processMessage(ctx, xmsg)
			}
		}
	}
}

func decode(xmsg redis.XMessage) (*Message, error) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("message %s has no data field", xmsg.ID)
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("message %s: %w", xmsg.ID, err)
	}
	return &msg, nil
}

func (c *Consumer) processMessage(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := tracer.Start(ctx, "consumer.processMessage",
		attribute.String("stream", string(c.cfg.Stream)),
		attribute.String("stream.message_id", xmsg.ID),
	)
	var err error
	defer func() { tracer.End(span, err) }()

	msg, err := decode(xmsg)
	if err != nil {
		logger.Error(ctx, "malformed stream message dropped", err)
		c.ack(ctx, xmsg.ID)
		c.count("malformed")
		return
	}

	ctx = logger.WithContext(ctx, logger.JobIDKey, msg.ID)
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, msg.ProjectID)
	ctx = logger.WithContext(ctx, logger.UserIDKey, msg.UserID)
	if reqID := msg.GetMetadata("request_id"); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
		attribute.String("upstream.trace_id", msg.GetMetadata("trace_id")),
	)

	c.mu.RLock()
	handler, ok := c.handlers[msg.Type]
	c.mu.RUnlock()
	if !ok {
		logger.Warn(ctx, "no handler for message type", "type", msg.Type)
		c.ack(ctx, xmsg.ID)
		c.count("unhandled")
		return
	}

	if err = handler(ctx, msg); err != nil {
		if IsPermanent(err) {
			logger.Error(ctx, "handler failed permanently, message acknowledged", err)
			c.ack(ctx, xmsg.ID)
			c.count("failed")
			return
		}
		logger.Error(ctx, "handler failed, message left pending for retry", err)
		c.count("retry")
		return
	}
	c.ack(ctx, xmsg.ID)
	c.count("success")
}

func (c *Consumer) count(status string) {
	metrics.RedisStreamProcessed.WithLabelValues(string(c.cfg.Stream), status).Inc()
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.cfg.Stream), string(c.cfg.Group), id).Err(); err != nil {
		logger.Error(ctx, "failed to ack message", err, "message_id", id)
	}
}

// moveToDLQ 写入死信流并确认原消息
func (c *Consumer) moveToDLQ(ctx context.Context, xmsg redis.XMessage, reason string) {
	entry := map[string]any{
		"original_stream": string(c.cfg.Stream),
		"message_id":      xmsg.ID,
		"data":            xmsg.Values["data"],
		"error":           reason,
		"failed_at":       time.Now().Unix(),
	}
	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: string(StreamDLQ), Values: entry}).Err(); err != nil {
		logger.Error(ctx, "failed to write dead letter", err, "message_id", xmsg.ID)
		return
	}
	logger.Warn(ctx, "message moved to DLQ", "message_id", xmsg.ID, "reason", reason)
	c.ack(ctx, xmsg.ID)
	c.count("dead_letter")
}

func (c *Consumer) pending(ctx context.Context, consumer string) []redis.XPendingExt {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Start:    "-",
		End:      "+",
		Count:    20,
		Consumer: consumer,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Error(ctx, "failed to query pending messages", err)
		}
		return nil
	}
	return pending
}

func (c *Consumer) claim(ctx context.Context, id string, minIdle time.Duration) []redis.XMessage {
	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Consumer: c.cfg.ConsumerName,
		MinIdle:  minIdle,
		Messages: []string{id},
	}).Result()
	if err != nil {
		logger.Error(ctx, "failed to claim pending message", err, "message_id", id)
		return nil
	}
	return claimed
}

// handlePending 超过重试上限进入死信，否则重新处理
func (c *Consumer) handlePending(ctx context.Context, p redis.XPendingExt, minIdle time.Duration) {
	exhausted := int(p.RetryCount) >= c.cfg.RetryLimit
	if exhausted {
		minIdle = 0
	}
	for _, xmsg := range c.claim(ctx, p.ID, minIdle) {
		if exhausted {
			c.moveToDLQ(ctx, xmsg, "message exceeded max retries")
			continue
		}
		c.processMessage(ctx, xmsg)
	}
}

// retryPending 本消费者名下到期的失败消息按退避重新处理
func (c *Consumer) retryPending(ctx context.Context) {
	for _, p := range c.pending(ctx, c.cfg.ConsumerName) {
		backoff := c.cfg.Backoff.CalculateBackoff(int(p.RetryCount))
		if int(p.RetryCount) < c.cfg.RetryLimit && p.Idle < backoff {
			continue
		}
		c.handlePending(ctx, p, backoff)
	}
}

// reclaimStale 接管其他消费者长时间未确认的消息（如进程崩溃）
func (c *Consumer) reclaimStale(ctx context.Context) {
	for _, p := range c.pending(ctx, "") {
		if p.Consumer == c.cfg.ConsumerName || p.Idle < c.cfg.ClaimMinIdle {
			continue
		}
		c.handlePending(ctx, p, c.cfg.ClaimMinIdle)
	}
}
