// Package generation 按字数区间分块驱动 LLM 续写
package generation

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

	wfmodel "thoth-writer-api/internal/workflow/model"
	workflowprompt "thoth-writer-api/internal/workflow/prompt"
	apperrors "thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/metrics"
	"thoth-writer-api/pkg/tracer"
	"thoth-writer-api/pkg/utils"
)

// Completer 单次文本补全
type Completer interface {
	Complete(ctx context.Context, messages []*schema.Message, opts ...model.Option) (string, error)
}

// Options 分块参数
type Options struct {
	ChunkWords        int
	MaxIterations     int
	ContinuationChars int
}

// DefaultOptions 默认分块参数
func DefaultOptions() Options {
	return Options{ChunkWords: 1200, MaxIterations: 24, ContinuationChars: 1200}
}

// Request 一次分块生成请求
type Request struct {
	// Pipeline 指标标签
	Pipeline string
	// Messages 基础消息，分块指令追加到最后一条用户消息
	Messages []*schema.Message

	MinWordCount *int
	MaxWordCount *int

	Temperature float32
	MaxTokens   int
}

// Result 生成结果
type Result struct {
	Content   string
	WordCount int
	Calls     int
	Truncated bool
}

// Controller 分块生成控制器，无状态，可并发使用
type Controller struct {
	completer Completer
	opts      Options
}

func NewController(completer Completer, opts Options) *Controller {
	def := DefaultOptions()
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = def.ChunkWords
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.ContinuationChars <= 0 {
		opts.ContinuationChars = def.ContinuationChars
	}
	return &Controller{completer: completer, opts: opts}
}

// ValidateBounds 两端都给出时要求 min <= max
func ValidateBounds(minWords, maxWords *int) error {
	if minWords != nil && maxWords != nil && *minWords > *maxWords {
		return apperrors.ErrInvalidParam.WithDetail("max_word_count must be greater than or equal to min_word_count")
	}
	return nil
}

// Iterations 计算补全调用次数上限
func (c *Controller) Iterations(minWords *int) int {
	if minWords == nil {
		return 1
	}
	n := int(math.Ceil(float64(*minWords)/float64(c.opts.ChunkWords))) + 2
	return max(1, min(n, c.opts.MaxIterations))
}

// Generate 反复请求补全直到满足最小字数、达到最大字数、模型返回空内容或用尽次数
func (c *Controller) Generate(ctx context.Context, req *Request) (*Result, error) {
	if c == nil || c.completer == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("completion backend not configured")
	}
	minWords := positive(req.MinWordCount)
	maxWords := positive(req.MaxWordCount)
	if err := ValidateBounds(minWords, maxWords); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "generation.chunked",
		attribute.String("pipeline", req.Pipeline),
	)
	var err error
	defer func() { tracer.End(span, err) }()

	log := logger.FromContext(ctx)
	iterations := c.Iterations(minWords)
	res := &Result{}
	content := ""
	words := 0

	for i := 0; i < iterations; i++ {
		if minWords != nil && words >= *minWords {
			break
		}
		if maxWords != nil && words >= *maxWords {
			break
		}

		directive := wfmodel.ChunkDirective{
			MinWordCount: minWords,
			MaxWordCount: maxWords,
			CurrentWords: words,
			ChunkWords:   c.chunkWords(words, minWords, maxWords),
			Hint:         workflowprompt.ContinuationHint(content, c.opts.ContinuationChars),
		}

		start := time.Now()
		var part string
		part, err = c.completer.Complete(ctx, withDirective(req.Messages, directive), c.modelOptions(req)...)
		res.Calls++
		if err != nil {
			err = Classify(err)
			log.Warn("chunk generation failed",
				"pipeline", req.Pipeline,
				"iteration", i+1,
				"error", err.Error(),
			)
			metrics.ChunkCallsPerGeneration.Observe(float64(res.Calls))
			return nil, err
		}

		part = strings.TrimSpace(part)
		if part == "" {
			log.Info("empty chunk, stopping generation", "pipeline", req.Pipeline, "iteration", i+1)
			break
		}
		if content == "" {
			content = part
		} else {
			content = content + "\n\n" + part
		}
		words = utils.CountWords(content)

		log.Debug("chunk generated",
			"pipeline", req.Pipeline,
			"iteration", i+1,
			"chunk_words", utils.CountWords(part),
			"total_words", words,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		if maxWords != nil && words > *maxWords {
			content = utils.TruncateWords(content, *maxWords)
			words = *maxWords
			res.Truncated = true
			break
		}
		if minWords == nil {
			break
		}
	}

	res.Content = strings.TrimSpace(content)
	res.WordCount = utils.CountWords(res.Content)
	metrics.ChunkCallsPerGeneration.Observe(float64(res.Calls))
	metrics.GeneratedWordCount.WithLabelValues(req.Pipeline).Observe(float64(res.WordCount))
	span.SetAttributes(
		attribute.Int("calls", res.Calls),
		attribute.Int("word_count", res.WordCount),
	)
	return res, nil
}

// chunkWords 本次请求的篇幅；0 表示不限制
func (c *Controller) chunkWords(current int, minWords, maxWords *int) int {
	remaining := -1
	switch {
	case minWords != nil:
		remaining = *minWords - current
		if maxWords != nil {
			remaining = min(remaining, *maxWords-current)
		}
	case maxWords != nil:
		remaining = *maxWords - current
	}
	if remaining < 0 {
		return 0
	}
	return min(c.opts.ChunkWords, max(remaining, 1))
}

func (c *Controller) modelOptions(req *Request) []model.Option {
	opts := make([]model.Option, 0, 2)
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	return opts
}

// withDirective 复制消息并把指令追加到最后一条用户消息
func withDirective(base []*schema.Message, d wfmodel.ChunkDirective) []*schema.Message {
	directive := workflowprompt.RenderChunkDirective(d)
	out := make([]*schema.Message, len(base))
	copy(out, base)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != nil && out[i].Role == schema.User {
			msg := *out[i]
			msg.Content = strings.TrimRight(msg.Content, "\n") + "\n\n" + directive
			out[i] = &msg
			return out
		}
	}
	return append(out, schema.UserMessage(directive))
}

// Classify 超时归为 GenerationTimeout，其余归为 GenerationFailed，均不重试
func Classify(err error) error {
	switch {
	case apperrors.IsCode(err, apperrors.CodeGenerationTimeout), apperrors.IsCode(err, apperrors.CodeGenerationFailed):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrGenerationTimeout.WithError(err)
	default:
		return apperrors.ErrGenerationFailed.WithError(err)
	}
}

func positive(p *int) *int {
	if p == nil || *p <= 0 {
		return nil
	}
	return p
}
