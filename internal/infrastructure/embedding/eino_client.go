// Package embedding 构建检索用的向量化组件
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"thoth-writer-api/internal/config"
)

// NewEinoEmbedder 基于 OpenAI 兼容接口创建 Embedder；未配置 endpoint 时返回 nil 表示禁用
func NewEinoEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg == nil || strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, nil
	}

	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}
	return embedder, nil
}
