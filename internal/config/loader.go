// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var envPlaceholder = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 加载 configs/ 目录下的配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	return LoadFrom("configs")
}

// LoadFrom 从指定目录加载配置
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 设置默认值 (兜底)
	setDefaults(v)

	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := loadConfigFile(v, filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env)), true); err != nil {
		return nil, err
	}

	// 环境变量直接覆盖，如 WRITING_RAG_TOP_K
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Writing.normalize()

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并合并到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := v.MergeConfig(strings.NewReader(expandEnv(string(content)))); err != nil {
		return fmt.Errorf("failed to merge config %s: %w", path, err)
	}
	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPlaceholder.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// DefaultWriting 返回写作生成参数默认值
func DefaultWriting() WritingConfig {
	return WritingConfig{
		ChunkWordTarget:        1200,
		MaxIterations:          24,
		ContinuationChars:      1200,
		SourceExcerptChars:     1600,
		SourceExcerptThreshold: 3200,
		RAGTopK:                5,
		RAGChunkSize:           512,
		RAGChunkOverlap:        50,
		PlanMaxTokens:          800,
		OutlineMaxTokens:       1200,
		WriteMaxTokens:         4000,
		ContextPreviewChars:    800,
		ContextCacheTTL:        5 * time.Minute,
		MaxBookChapters:        50,
		ChatHistoryTurns:       10,
		ChatMaxTokens:          2000,
	}
}

// normalize 非正数回落到默认值
func (w *WritingConfig) normalize() {
	d := DefaultWriting()
	fill := func(dst *int, def int) {
		if *dst <= 0 {
			*dst = def
		}
	}
	fill(&w.ChunkWordTarget, d.ChunkWordTarget)
	fill(&w.MaxIterations, d.MaxIterations)
	fill(&w.ContinuationChars, d.ContinuationChars)
	fill(&w.SourceExcerptChars, d.SourceExcerptChars)
	fill(&w.SourceExcerptThreshold, d.SourceExcerptThreshold)
	fill(&w.RAGTopK, d.RAGTopK)
	fill(&w.RAGChunkSize, d.RAGChunkSize)
	fill(&w.PlanMaxTokens, d.PlanMaxTokens)
	fill(&w.OutlineMaxTokens, d.OutlineMaxTokens)
	fill(&w.WriteMaxTokens, d.WriteMaxTokens)
	fill(&w.ContextPreviewChars, d.ContextPreviewChars)
	fill(&w.MaxBookChapters, d.MaxBookChapters)
	fill(&w.ChatHistoryTurns, d.ChatHistoryTurns)
	fill(&w.ChatMaxTokens, d.ChatMaxTokens)
	if w.RAGChunkOverlap < 0 || w.RAGChunkOverlap >= w.RAGChunkSize {
		w.RAGChunkOverlap = d.RAGChunkOverlap
	}
	if w.ContextCacheTTL <= 0 {
		w.ContextCacheTTL = d.ContextCacheTTL
	}
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "thoth-writer-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	// 整书同步生成耗时较长
	v.SetDefault("server.http.write_timeout", "30m")
	v.SetDefault("server.http.idle_timeout", "120s")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "thoth")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 50)
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")
	v.SetDefault("database.postgres.auto_migrate", false)

	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 100)
	v.SetDefault("cache.redis.min_idle_conns", 10)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	v.SetDefault("vector.milvus.enabled", true)
	v.SetDefault("vector.milvus.host", "localhost")
	v.SetDefault("vector.milvus.port", 19530)
	v.SetDefault("vector.milvus.collection_prefix", "thoth")
	v.SetDefault("vector.milvus.metric_type", "COSINE")
	v.SetDefault("vector.milvus.hnsw_m", 16)
	v.SetDefault("vector.milvus.hnsw_ef_construction", 200)

	v.SetDefault("llm.default_provider", "deepseek")
	v.SetDefault("llm.providers.deepseek.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("llm.providers.deepseek.model", "deepseek-chat")
	v.SetDefault("llm.providers.deepseek.max_tokens", 4000)
	v.SetDefault("llm.providers.deepseek.temperature", 0.7)
	v.SetDefault("llm.providers.deepseek.timeout", "120s")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "BAAI/bge-m3")
	v.SetDefault("embedding.dimension", 1024)
	v.SetDefault("embedding.batch_size", 32)

	v.SetDefault("messaging.redis_stream.max_len", 10000)
	v.SetDefault("messaging.redis_stream.consumer_group_prefix", "thoth")
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "30s")
	v.SetDefault("messaging.redis_stream.claim_min_idle", "30m")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)
	v.SetDefault("messaging.redis_stream.retry_backoff.initial", "1s")
	v.SetDefault("messaging.redis_stream.retry_backoff.max", "30s")
	v.SetDefault("messaging.redis_stream.retry_backoff.multiplier", 2.0)

	d := DefaultWriting()
	v.SetDefault("writing.chunk_word_target", d.ChunkWordTarget)
	v.SetDefault("writing.max_iterations", d.MaxIterations)
	v.SetDefault("writing.continuation_chars", d.ContinuationChars)
	v.SetDefault("writing.source_excerpt_chars", d.SourceExcerptChars)
	v.SetDefault("writing.source_excerpt_threshold", d.SourceExcerptThreshold)
	v.SetDefault("writing.rag_top_k", d.RAGTopK)
	v.SetDefault("writing.rag_chunk_size", d.RAGChunkSize)
	v.SetDefault("writing.rag_chunk_overlap", d.RAGChunkOverlap)
	v.SetDefault("writing.plan_max_tokens", d.PlanMaxTokens)
	v.SetDefault("writing.outline_max_tokens", d.OutlineMaxTokens)
	v.SetDefault("writing.write_max_tokens", d.WriteMaxTokens)
	v.SetDefault("writing.context_preview_chars", d.ContextPreviewChars)
	v.SetDefault("writing.context_cache_ttl", d.ContextCacheTTL.String())
	v.SetDefault("writing.max_book_chapters", d.MaxBookChapters)
	v.SetDefault("writing.chat_history_turns", d.ChatHistoryTurns)
	v.SetDefault("writing.chat_max_tokens", d.ChatMaxTokens)

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	v.SetDefault("security.jwt.enabled", true)
	v.SetDefault("security.jwt.issuer", "thoth")
	v.SetDefault("security.jwt.expiration", "24h")
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_minute", 600)
	v.SetDefault("security.rate_limit.generation_per_minute", 20)
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})
}
