package wire

import (
	"context"

	einoembedding "github.com/cloudwego/eino/components/embedding"

	"thoth-writer-api/internal/application/agent"
	"thoth-writer-api/internal/application/chat"
	"thoth-writer-api/internal/application/document"
	"thoth-writer-api/internal/application/generation"
	"thoth-writer-api/internal/application/jobs"
	"thoth-writer-api/internal/application/projectctx"
	"thoth-writer-api/internal/application/retrieval"
	"thoth-writer-api/internal/application/versioning"
	"thoth-writer-api/internal/application/writing"
	"thoth-writer-api/internal/config"
	infraembedding "thoth-writer-api/internal/infrastructure/embedding"
	"thoth-writer-api/internal/infrastructure/llm"
	"thoth-writer-api/internal/infrastructure/messaging"
	"thoth-writer-api/internal/infrastructure/persistence/milvus"
	"thoth-writer-api/internal/infrastructure/persistence/postgres"
	"thoth-writer-api/internal/infrastructure/persistence/redis"
	"thoth-writer-api/internal/interfaces/http/handler"
	"thoth-writer-api/internal/interfaces/http/middleware"
	"thoth-writer-api/internal/interfaces/http/router"
	workflowprompt "thoth-writer-api/internal/workflow/prompt"
	"thoth-writer-api/pkg/logger"
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideMilvusClientOptional Milvus 不可达或未启用时返回 nil，检索降级为空
func ProvideMilvusClientOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if !cfg.Vector.Milvus.Enabled {
		return nil, func() {}, nil
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, vector features disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideVectorRepositoryOptional 返回接口级 nil，避免 typed nil 绕过降级判断
func ProvideVectorRepositoryOptional(client *milvus.Client, cfg *config.Config) retrieval.VectorRepository {
	if client == nil {
		return nil
	}
	return milvus.NewRetrievalVectorRepository(milvus.NewRepository(client, cfg.Embedding.Dimension))
}

// ProvideEmbedderOptional embedding 不可用时禁用向量检索与索引
func ProvideEmbedderOptional(ctx context.Context, cfg *config.Config) einoembedding.Embedder {
	embedder, err := infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedding not available, vector features disabled", "error", err.Error())
		return nil
	}
	return embedder
}

// ProvideRetrievalService 提供检索服务
func ProvideRetrievalService(cfg *config.Config, embedder einoembedding.Embedder, vector retrieval.VectorRepository) *retrieval.Service {
	return retrieval.NewService(embedder, vector, retrieval.Options{
		ChunkSize:    cfg.Writing.RAGChunkSize,
		ChunkOverlap: cfg.Writing.RAGChunkOverlap,
		BatchSize:    cfg.Embedding.BatchSize,
	})
}

// ProvideCompleter 使用默认提供商的模型补全
func ProvideCompleter(factory *llm.EinoFactory) generation.Completer {
	return llm.NewDefaultCompleter(factory)
}

// ProvideController 提供分块生成控制器
func ProvideController(completer generation.Completer, cfg *config.Config) *generation.Controller {
	return generation.NewController(completer, generation.Options{
		ChunkWords:        cfg.Writing.ChunkWordTarget,
		MaxIterations:     cfg.Writing.MaxIterations,
		ContinuationChars: cfg.Writing.ContinuationChars,
	})
}

// ProvidePromptBuilder 使用内置模板
func ProvidePromptBuilder() *workflowprompt.Builder {
	return workflowprompt.NewBuilder(workflowprompt.NewRegistry())
}

// ProvideLedger 提供版本账本
func ProvideLedger(cfg *config.Config) *versioning.Ledger {
	return versioning.NewLedger(versioning.WithSourceExcerpt(cfg.Writing.SourceExcerptThreshold, cfg.Writing.SourceExcerptChars))
}

// ProvideWritingSettings 提供生成流程参数
func ProvideWritingSettings(cfg *config.Config) writing.Settings {
	return writing.Settings{
		RAGTopK:          cfg.Writing.RAGTopK,
		PlanMaxTokens:    cfg.Writing.PlanMaxTokens,
		OutlineMaxTokens: cfg.Writing.OutlineMaxTokens,
		WriteMaxTokens:   cfg.Writing.WriteMaxTokens,
		MaxBookChapters:  cfg.Writing.MaxBookChapters,
	}
}

// ProvideProjectContextService 提供项目上下文服务
func ProvideProjectContextService(
	cfg *config.Config,
	projects *postgres.ProjectRepository,
	characters *postgres.CharacterRepository,
	documents *postgres.DocumentRepository,
	cache *redis.Cache,
) *projectctx.Service {
	return projectctx.NewService(projects, characters, documents, cache, projectctx.Options{
		PreviewChars: cfg.Writing.ContextPreviewChars,
		CacheTTL:     cfg.Writing.ContextCacheTTL,
	})
}

// ProvideDocumentService 提供文档服务
func ProvideDocumentService(
	projects *postgres.ProjectRepository,
	documents *postgres.DocumentRepository,
	contexts *projectctx.Service,
	tx *postgres.TxManager,
) *document.Service {
	return document.NewService(projects, documents, contexts, tx)
}

// ProvideAgentService 提供写作助手
func ProvideAgentService(completer generation.Completer, prompts *workflowprompt.Builder) *agent.Service {
	return agent.NewService(completer, prompts, agent.DefaultMaxTokens)
}

// ProvideChatService 提供写作助手对话
func ProvideChatService(
	cfg *config.Config,
	turns *postgres.ConversationRepository,
	contexts *projectctx.Service,
	completer generation.Completer,
	prompts *workflowprompt.Builder,
	tx *postgres.TxManager,
) *chat.Service {
	return chat.NewService(turns, contexts, completer, prompts, tx, cfg.Writing.ChatHistoryTurns, cfg.Writing.ChatMaxTokens)
}

// ProvideJobService 接口与 worker 共用同一任务服务
func ProvideJobService(
	cfg *config.Config,
	store *postgres.JobRepository,
	projects *postgres.ProjectRepository,
	producer *messaging.Producer,
	books *writing.BookGenerator,
) *jobs.Service {
	return jobs.NewService(store, projects, producer, books, cfg.Writing.MaxBookChapters)
}

// ProvideChapterPipeline 提供章节流水线
func ProvideChapterPipeline(
	contexts *projectctx.Service,
	retriever *retrieval.Service,
	documents *document.Service,
	completer generation.Completer,
	controller *generation.Controller,
	prompts *workflowprompt.Builder,
	settings writing.Settings,
) *writing.ChapterPipeline {
	return writing.NewChapterPipeline(contexts, retriever, documents, completer, controller, prompts, settings)
}

// ProvideElementService 提供单文档生成服务
func ProvideElementService(
	documents *document.Service,
	contexts *projectctx.Service,
	controller *generation.Controller,
	prompts *workflowprompt.Builder,
	ledger *versioning.Ledger,
	settings writing.Settings,
) *writing.ElementService {
	return writing.NewElementService(documents, contexts, controller, prompts, ledger, settings)
}

// ProvideIndexService 提供索引服务
func ProvideIndexService(documents *document.Service, retriever *retrieval.Service) *writing.IndexService {
	return writing.NewIndexService(documents, retriever)
}

// ProvideHealthHandler Milvus 为可选依赖
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rdb *redis.Client, mv *milvus.Client) *handler.HealthHandler {
	deps := []handler.Dependency{
		{Name: "postgres", Checker: pg},
		{Name: "redis", Checker: rdb},
		{Name: "milvus", Optional: true},
	}
	if mv != nil {
		deps[2].Checker = mv
	}
	return handler.NewHealthHandler(cfg.App.Version, deps...)
}

// ProvideWritingHandler 提供写作处理器
func ProvideWritingHandler(
	cfg *config.Config,
	index *writing.IndexService,
	chapters *writing.ChapterPipeline,
	books *writing.BookGenerator,
	jobService *jobs.Service,
) *handler.WritingHandler {
	return handler.NewWritingHandler(index, chapters, books, jobService, cfg.Writing.MaxBookChapters)
}

// ProvideRouter 提供路由器
func ProvideRouter(cfg *config.Config, handlers *router.Handlers, limiter *redis.RateLimiter) *router.Router {
	return router.New(cfg, handlers, limiter, middleware.KeyFunc(redis.BuildUserRateLimitKey))
}

// ProvideBookConsumer worker 侧的整书任务消费者
func ProvideBookConsumer(cfg *config.Config, rdb *redis.Client, jobService *jobs.Service) *messaging.Consumer {
	streamCfg := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(rdb.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamBookGen,
		Group:         consumerGroup(streamCfg.ConsumerGroupPrefix),
		ConsumerName:  consumerName(),
		BlockTimeout:  streamCfg.BlockTimeout,
		ClaimInterval: streamCfg.ClaimInterval,
		ClaimMinIdle:  streamCfg.ClaimMinIdle,
		RetryLimit:    streamCfg.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    streamCfg.RetryBackoff.Initial,
			Max:        streamCfg.RetryBackoff.Max,
			Multiplier: streamCfg.RetryBackoff.Multiplier,
		},
	})
	consumer.RegisterHandler(messaging.MessageTypeBookGeneration, jobService.HandleBookMessage)
	return consumer
}
