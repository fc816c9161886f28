// Package chat 写作助手对话：回放最近历史并附带项目概况
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"thoth-writer-api/internal/application/generation"
	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/domain/repository"
	llmctx "thoth-writer-api/internal/domain/service"
	wfmodel "thoth-writer-api/internal/workflow/model"
	workflowprompt "thoth-writer-api/internal/workflow/prompt"
	apperrors "thoth-writer-api/pkg/errors"
	"thoth-writer-api/pkg/logger"
	"thoth-writer-api/pkg/tracer"
)

const (
	DefaultHistoryTurns = 10
	DefaultMaxTokens    = 2000
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100

	chatTemperature float32 = 0.7
)

// ContextProvider 构建项目上下文；项目不存在或不属于用户时返回 NotFound
type ContextProvider interface {
	BuildProjectContext(ctx context.Context, projectID, userID string) (*wfmodel.ProjectContext, error)
}

// Reply 一轮对话的结果
type Reply struct {
	Response       string                  `json:"response"`
	MessageID      string                  `json:"message_id"`
	ProjectContext *wfmodel.ProjectContext `json:"project_context,omitempty"`
}

type Service struct {
	turns        repository.ConversationRepository
	contexts     ContextProvider
	completer    generation.Completer
	prompts      *workflowprompt.Builder
	tx           repository.Transactor
	historyTurns int
	maxTokens    int
	now          func() time.Time
}

func NewService(
	turns repository.ConversationRepository,
	contexts ContextProvider,
	completer generation.Completer,
	prompts *workflowprompt.Builder,
	tx repository.Transactor,
	historyTurns, maxTokens int,
) *Service {
	if prompts == nil {
		prompts = workflowprompt.NewBuilder(nil)
	}
	if historyTurns <= 0 {
		historyTurns = DefaultHistoryTurns
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Service{
		turns:        turns,
		contexts:     contexts,
		completer:    completer,
		prompts:      prompts,
		tx:           tx,
		historyTurns: historyTurns,
		maxTokens:    maxTokens,
		now:          time.Now,
	}
}

// Send 发送一条消息并返回助手回复。补全失败时不落库任何消息。
func (s *Service) Send(ctx context.Context, userID, projectID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("message must not be empty")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID != "" {
		ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)
	}

	ctx, span := tracer.Start(ctx, "chat.Send")
	var err error
	defer func() { tracer.End(span, err) }()

	sentAt := s.now()

	var pc *wfmodel.ProjectContext
	if projectID != "" {
		pc, err = s.contexts.BuildProjectContext(ctx, projectID, userID)
		if err != nil {
			return nil, err
		}
	}

	recent, err := s.turns.ListRecent(ctx, userID, projectID, s.historyTurns)
	if err != nil {
		err = apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load conversation history")
		return nil, err
	}

	msgs, err := s.prompts.Chat(ctx, pc, toMessages(recent), message)
	if err != nil {
		return nil, err
	}

	ctx = llmctx.WithWorkflow(ctx, llmctx.WorkflowChat)
	answer, err := s.completer.Complete(ctx, msgs,
		model.WithTemperature(chatTemperature),
		model.WithMaxTokens(s.maxTokens),
	)
	if err != nil {
		err = generation.Classify(err)
		logger.Error(ctx, "chat completion failed", err, "history", len(recent))
		return nil, err
	}

	userTurn := entity.NewConversationTurn(userID, projectID, entity.TurnRoleUser, message, sentAt)
	assistantTurn := entity.NewConversationTurn(userID, projectID, entity.TurnRoleAssistant, answer, s.now())
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.turns.Create(ctx, userTurn); err != nil {
			return err
		}
		return s.turns.Create(ctx, assistantTurn)
	})
	if err != nil {
		err = apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save conversation")
		return nil, err
	}

	logger.Info(ctx, "chat reply sent", "message_id", assistantTurn.ID, "history", len(recent))
	return &Reply{Response: answer, MessageID: assistantTurn.ID, ProjectContext: pc}, nil
}

// History 返回最近 limit 条消息，按时间正序；limit 缺省 50，上限 100
func (s *Service) History(ctx context.Context, userID, projectID string, limit int) ([]*entity.ConversationTurn, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	turns, err := s.turns.ListRecent(ctx, userID, strings.TrimSpace(projectID), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load conversation history")
	}
	return turns, nil
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithTransaction(ctx, fn)
}

func toMessages(turns []*entity.ConversationTurn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case entity.TurnRoleUser:
			out = append(out, schema.UserMessage(t.Content))
		case entity.TurnRoleAssistant:
			out = append(out, schema.AssistantMessage(t.Content, nil))
		}
	}
	return out
}
