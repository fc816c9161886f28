package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"thoth-writer-api/internal/application/generation"
	llmctx "thoth-writer-api/internal/domain/service"
	wfnode "thoth-writer-api/internal/workflow/node"
	workflowport "thoth-writer-api/internal/workflow/port"
	apperrors "thoth-writer-api/pkg/errors"
)

// DefaultTimeout 提供商未配置超时时的单次调用上限
const DefaultTimeout = 120 * time.Second

// Completer 将 ChatModel 适配为 generation.Completer：
// 超时映射为 GenerationTimeout，其余失败映射为 GenerationFailed
type Completer struct {
	factory  workflowport.ChatModelFactory
	provider string
	timeout  time.Duration
}

var _ generation.Completer = (*Completer)(nil)

// NewCompleter provider 为空时使用工厂的默认提供商
func NewCompleter(factory workflowport.ChatModelFactory, provider string, timeout time.Duration) *Completer {
	if provider == "" {
		provider = factory.DefaultProvider()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Completer{factory: factory, provider: provider, timeout: timeout}
}

// NewDefaultCompleter 使用默认提供商及其配置的超时
func NewDefaultCompleter(factory *EinoFactory) *Completer {
	p, _ := factory.Provider("")
	return NewCompleter(factory, factory.DefaultProvider(), p.Timeout)
}

func (c *Completer) Complete(ctx context.Context, messages []*schema.Message, opts ...model.Option) (string, error) {
	chatModel, err := c.factory.Get(ctx, c.provider)
	if err != nil {
		return "", apperrors.ErrGenerationFailed.WithError(err)
	}

	ctx = llmctx.WithProvider(ctx, c.provider)
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      llmctx.WorkflowFromContext(ctx),
		Type:      c.provider,
		Component: components.ComponentOfChatModel,
	})
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return "", classify(err)
	}
	if out == nil {
		return "", apperrors.ErrGenerationFailed.WithDetail("empty llm response")
	}
	return strings.TrimSpace(out.Content), nil
}

func classify(err error) error {
	if wfnode.IsTimeoutError(err) {
		return apperrors.ErrGenerationTimeout.WithError(err)
	}
	return apperrors.ErrGenerationFailed.WithError(fmt.Errorf("llm provider: %w", err))
}
