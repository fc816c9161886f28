package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"thoth-writer-api/internal/application/generation"
	llmctx "thoth-writer-api/internal/domain/service"
	workflowprompt "thoth-writer-api/internal/workflow/prompt"
	apperrors "thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/tracer"
)

// DefaultMaxTokens 单次代理调用的输出上限
const DefaultMaxTokens = 2000

// Info 代理的展示信息
type Info struct {
	Kind        Kind     `json:"kind"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// Result 代理执行结果，Key 为动作对应的结果字段名
type Result struct {
	Agent  string
	Action string
	Key    string
	Output string
}

// Fields 按 {agent, action, <key>, success} 展开
func (r *Result) Fields() map[string]any {
	return map[string]any{
		"agent":   r.Agent,
		"action":  r.Action,
		r.Key:     r.Output,
		"success": true,
	}
}

type Service struct {
	completer generation.Completer
	prompts   *workflowprompt.Builder
	maxTokens int
}

func NewService(completer generation.Completer, prompts *workflowprompt.Builder, maxTokens int) *Service {
	if prompts == nil {
		prompts = workflowprompt.NewBuilder(nil)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Service{completer: completer, prompts: prompts, maxTokens: maxTokens}
}

// List 返回全部代理及其动作
func (s *Service) List() []Info {
	out := make([]Info, 0, len(catalog))
	for _, d := range catalog {
		actions := make([]string, 0, len(d.actions))
		for _, a := range d.actions {
			actions = append(actions, a.name)
		}
		out = append(out, Info{Kind: d.kind, Name: d.name, Description: d.description, Actions: actions})
	}
	return out
}

// Dispatch 执行 kind 下的 action；action 为空时使用该代理的默认动作
func (s *Service) Dispatch(ctx context.Context, kind Kind, actionName string, task map[string]any, projectContext map[string]any) (*Result, error) {
	def, ok := lookup(kind)
	if !ok {
		return nil, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown agent: %s", kind))
	}
	actionName = strings.TrimSpace(actionName)
	if actionName == "" {
		actionName = def.defaultAction
	}
	act, ok := def.action(actionName)
	if !ok {
		return nil, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown action %q for agent %s", actionName, kind))
	}

	ctx, span := tracer.Start(ctx, "agent."+string(kind))
	var err error
	defer func() { tracer.End(span, err) }()

	msgs, err := s.prompts.Agent(ctx, string(kind), act.name, act.fields, act.vars(task), projectContext)
	if err != nil {
		return nil, err
	}

	ctx = llmctx.WithWorkflow(ctx, llmctx.WorkflowAgent)
	out, err := s.completer.Complete(ctx, msgs,
		model.WithTemperature(act.temperature),
		model.WithMaxTokens(s.maxTokens),
	)
	if err != nil {
		err = generation.Classify(err)
		logger.Error(ctx, "agent call failed", err, "agent", kind, "action", act.name)
		return nil, err
	}

	return &Result{Agent: def.name, Action: act.name, Key: act.resultKey, Output: out}, nil
}

func (a *action) vars(task map[string]any) map[string]any {
	vars := make(map[string]any, len(a.fields))
	for _, f := range a.fields {
		v, ok := task[f]
		if !ok || v == nil || v == "" {
			v = a.defaults[f]
		}
		vars[f] = v
	}
	return vars
}
