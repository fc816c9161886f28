// Package router 提供 HTTP 路由配置
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thoth-writer-api/internal/config"
	"thoth-writer-api/internal/interfaces/http/handler"
	"thoth-writer-api/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Health    *handler.HealthHandler
	Project   *handler.ProjectHandler
	Character *handler.CharacterHandler
	Document  *handler.DocumentHandler
	Version   *handler.VersionHandler
	Writing   *handler.WritingHandler
	Job       *handler.JobHandler
	Agent     *handler.AgentHandler
	Chat      *handler.ChatHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	limiter  middleware.RateLimiter
	keyFn    middleware.KeyFunc
	handlers *Handlers
}

// New 创建路由器；limiter 为 nil 时不限流
func New(cfg *config.Config, handlers *Handlers, limiter middleware.RateLimiter, keyFn middleware.KeyFunc) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		limiter:  limiter,
		keyFn:    keyFn,
		handlers: handlers,
	}
	r.setupMiddleware()
	r.setupRoutes()
	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.AccessLog(middleware.AccessLogConfig{
		Enabled:       true,
		SkipPaths:     middleware.DefaultAccessLogSkipPaths,
		SlowThreshold: 10 * time.Second,
	}))
}

func (r *Router) setupRoutes() {
	h := r.handlers

	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	jwtCfg := r.cfg.Security.JWT
	rl := r.cfg.Security.RateLimit

	v1 := r.engine.Group("/v1")
	v1.Use(middleware.Auth(middleware.AuthConfig{
		Secret:    jwtCfg.Secret,
		Issuer:    jwtCfg.Issuer,
		SkipPaths: middleware.DefaultSkipPaths,
		Enabled:   jwtCfg.Enabled,
		DevUserID: jwtCfg.DevUserID,
	}))
	v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: rl.Enabled,
		Scope:   middleware.ScopeAPI,
		Limit:   rl.RequestsPerMinute,
		Window:  time.Minute,
	}, r.limiter, r.keyFn))

	// 生成类接口额外按 generation 配额限流
	generation := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: rl.Enabled,
		Scope:   middleware.ScopeGeneration,
		Limit:   rl.GenerationPerMinute,
		Window:  time.Minute,
	}, r.limiter, r.keyFn)

	RegisterV1Routes(v1, h, generation)
}

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers, generation gin.HandlerFunc) {
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/:pid", h.Project.GetProject)
		projects.PUT("/:pid", h.Project.UpdateProject)
		projects.DELETE("/:pid", h.Project.DeleteProject)

		projects.GET("/:pid/characters", h.Character.ListCharacters)
		projects.POST("/:pid/characters", h.Character.CreateCharacter)

		projects.GET("/:pid/jobs", h.Job.ListProjectJobs)
	}

	characters := v1.Group("/characters")
	{
		characters.PUT("/:cid", h.Character.UpdateCharacter)
		characters.DELETE("/:cid", h.Character.DeleteCharacter)
	}

	documents := v1.Group("/documents")
	{
		documents.POST("", h.Document.CreateDocument)
		documents.GET("", h.Document.ListDocuments)
		documents.GET("/:did", h.Document.GetDocument)
		documents.PUT("/:did", h.Document.UpdateDocument)
		documents.DELETE("/:did", h.Document.DeleteDocument)

		documents.GET("/:did/versions", h.Version.ListVersions)
		documents.GET("/:did/versions/:vid", h.Version.GetVersion)
		documents.POST("/:did/versions", h.Version.CreateVersion)

		documents.GET("/:did/comments", h.Version.ListComments)
		documents.POST("/:did/comments", h.Version.AddComment)

		documents.POST("/:did/generate", generation, h.Version.GenerateElement)
	}

	writing := v1.Group("/writing")
	{
		writing.POST("/index", h.Writing.IndexProject)
		writing.POST("/chapter", generation, h.Writing.GenerateChapter)
		writing.POST("/book", generation, h.Writing.GenerateBook)
		writing.POST("/book/jobs", generation, h.Writing.SubmitBookJob)
	}

	v1.GET("/jobs/:jid", h.Job.GetJob)

	agents := v1.Group("/agents")
	{
		agents.GET("", h.Agent.ListAgents)
		agents.POST("/:kind/execute", generation, h.Agent.ExecuteAgent)
	}

	chats := v1.Group("/chat")
	{
		chats.POST("/message", generation, h.Chat.SendMessage)
		chats.GET("/history", h.Chat.GetHistory)
	}
}
