//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"thoth-writer-api/internal/application/projectctx"
	"thoth-writer-api/internal/application/writing"
	"thoth-writer-api/internal/config"
	"thoth-writer-api/internal/domain/repository"
	"thoth-writer-api/internal/infrastructure/llm"
	"thoth-writer-api/internal/infrastructure/persistence/postgres"
	"thoth-writer-api/internal/infrastructure/persistence/redis"
	"thoth-writer-api/internal/interfaces/http/handler"
	"thoth-writer-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 服务（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		DataSet,
		ServiceSet,
		HandlerSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化整书任务 worker
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		DataSet,
		ServiceSet,
		ProvideBookConsumer,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeMigrator 仅初始化 PostgreSQL（用于 bootstrap）
func InitializeMigrator(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	wire.Build(ProvidePostgresClient)
	return nil, nil, nil
}

// DataSet 存储与消息提供者集合
var DataSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewProjectRepository,
	postgres.NewCharacterRepository,
	postgres.NewDocumentRepository,
	postgres.NewTxManager,
	postgres.NewJobRepository,
	postgres.NewConversationRepository,
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	ProvideMessagingProducer,
	ProvideMilvusClientOptional,
	ProvideVectorRepositoryOptional,
	ProvideEmbedderOptional,
)

// ServiceSet 应用服务提供者集合
var ServiceSet = wire.NewSet(
	llm.NewEinoFactory,
	ProvideCompleter,
	ProvideController,
	ProvidePromptBuilder,
	ProvideLedger,
	ProvideWritingSettings,
	ProvideRetrievalService,
	ProvideProjectContextService,
	ProvideDocumentService,
	ProvideAgentService,
	ProvideChatService,
	ProvideChapterPipeline,
	writing.NewBookGenerator,
	ProvideElementService,
	ProvideIndexService,
	ProvideJobService,
)

// HandlerSet 处理器与路由提供者集合
var HandlerSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewProjectHandler,
	handler.NewCharacterHandler,
	handler.NewDocumentHandler,
	handler.NewVersionHandler,
	ProvideWritingHandler,
	handler.NewJobHandler,
	handler.NewAgentHandler,
	handler.NewChatHandler,
	wire.Bind(new(handler.ContextInvalidator), new(*projectctx.Service)),
	wire.Bind(new(handler.ProjectContextBuilder), new(*projectctx.Service)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.CharacterRepository), new(*postgres.CharacterRepository)),
	wire.Bind(new(repository.JobRepository), new(*postgres.JobRepository)),
	wire.Struct(new(router.Handlers), "*"),
	ProvideRouter,
)
