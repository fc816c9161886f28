package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoth-writer-api/internal/domain/entity"
	wfmodel "thoth-writer-api/internal/workflow/model"
	apperrors "thoth-writer-api/pkg/errors"
)

type memoryTurns struct {
	turns     []*entity.ConversationTurn
	failWrite error
	lastLimit int
}

func (m *memoryTurns) Create(_ context.Context, turn *entity.ConversationTurn) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	turn.ID = fmt.Sprintf("t%d", len(m.turns)+1)
	m.turns = append(m.turns, turn)
	return nil
}

func (m *memoryTurns) ListRecent(_ context.Context, userID, projectID string, limit int) ([]*entity.ConversationTurn, error) {
	m.lastLimit = limit
	var matched []*entity.ConversationTurn
	for _, t := range m.turns {
		if t.UserID != userID {
			continue
		}
		if projectID != "" && t.ProjectIDOrEmpty() != projectID {
			continue
		}
		matched = append(matched, t)
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

type staticContexts struct {
	pc    *wfmodel.ProjectContext
	err   error
	calls int
}

func (s *staticContexts) BuildProjectContext(context.Context, string, string) (*wfmodel.ProjectContext, error) {
	s.calls++
	return s.pc, s.err
}

type capturingCompleter struct {
	messages    []*schema.Message
	temperature float32
	calls       int
	reply       string
	err         error
}

func (c *capturingCompleter) Complete(_ context.Context, msgs []*schema.Message, opts ...model.Option) (string, error) {
	c.calls++
	c.messages = msgs
	common := model.GetCommonOptions(nil, opts...)
	if common.Temperature != nil {
		c.temperature = *common.Temperature
	}
	return c.reply, c.err
}

type recordingTx struct{ runs int }

func (r *recordingTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.runs++
	return fn(ctx)
}

func projectContext() *wfmodel.ProjectContext {
	return &wfmodel.ProjectContext{
		Project:    wfmodel.ProjectSummary{ID: "p1", Title: "Les Marées", Genre: "fantasy"},
		Characters: []wfmodel.CharacterSummary{{Name: "Aude", Role: "protagonist"}},
		Documents:  []wfmodel.DocumentSummary{{Title: "Prologue"}},
	}
}

func newTestService(turns *memoryTurns, contexts *staticContexts, c *capturingCompleter, tx *recordingTx) *Service {
	s := NewService(turns, contexts, c, nil, tx, 4, 0)
	base := time.Unix(1_700_000_000, 0)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestSendPersistsBothTurns(t *testing.T) {
	turns := &memoryTurns{}
	c := &capturingCompleter{reply: "Commence par une image forte."}
	tx := &recordingTx{}
	s := newTestService(turns, &staticContexts{pc: projectContext()}, c, tx)

	reply, err := s.Send(context.Background(), "u1", "p1", "  Comment ouvrir le roman ?  ")
	require.NoError(t, err)

	assert.Equal(t, "Commence par une image forte.", reply.Response)
	assert.Equal(t, "t2", reply.MessageID)
	assert.Equal(t, "Les Marées", reply.ProjectContext.Project.Title)
	assert.Equal(t, 1, tx.runs)
	assert.InDelta(t, chatTemperature, c.temperature, 1e-6)

	require.Len(t, turns.turns, 2)
	assert.Equal(t, entity.TurnRoleUser, turns.turns[0].Role)
	assert.Equal(t, "Comment ouvrir le roman ?", turns.turns[0].Content)
	assert.Equal(t, "p1", turns.turns[0].ProjectIDOrEmpty())
	assert.Equal(t, entity.TurnRoleAssistant, turns.turns[1].Role)
	assert.True(t, turns.turns[0].CreatedAt.Before(turns.turns[1].CreatedAt))

	require.Len(t, c.messages, 2)
	assert.Contains(t, c.messages[0].Content, "Titre : Les Marées")
	assert.Contains(t, c.messages[0].Content, "DOCUMENTS : 1 chapitre(s)/scène(s)")
}

func TestSendReplaysRecentHistoryInOrder(t *testing.T) {
	turns := &memoryTurns{}
	at := time.Unix(1_600_000_000, 0)
	for i := 0; i < 6; i++ {
		role := entity.TurnRoleUser
		if i%2 == 1 {
			role = entity.TurnRoleAssistant
		}
		turns.turns = append(turns.turns, entity.NewConversationTurn("u1", "", role, fmt.Sprintf("m%d", i), at))
	}
	turns.turns = append(turns.turns, entity.NewConversationTurn("u2", "", entity.TurnRoleUser, "autre", at))
	c := &capturingCompleter{reply: "ok"}
	s := newTestService(turns, &staticContexts{}, c, &recordingTx{})

	_, err := s.Send(context.Background(), "u1", "", "suite")
	require.NoError(t, err)

	assert.Equal(t, 4, turns.lastLimit)
	require.Len(t, c.messages, 6)
	assert.Equal(t, "m2", c.messages[1].Content)
	assert.Equal(t, schema.User, c.messages[1].Role)
	assert.Equal(t, "m5", c.messages[4].Content)
	assert.Equal(t, schema.Assistant, c.messages[4].Role)
	assert.Equal(t, "suite", c.messages[5].Content)
	assert.NotContains(t, c.messages[0].Content, "CONTEXTE DU PROJET")
}

func TestSendRejectsBlankMessage(t *testing.T) {
	c := &capturingCompleter{}
	s := newTestService(&memoryTurns{}, &staticContexts{}, c, &recordingTx{})

	_, err := s.Send(context.Background(), "u1", "", " \n\t ")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	assert.Zero(t, c.calls)
}

func TestSendForeignProjectMakesNoCall(t *testing.T) {
	turns := &memoryTurns{}
	c := &capturingCompleter{reply: "ok"}
	s := newTestService(turns, &staticContexts{err: apperrors.ErrProjectNotFound}, c, &recordingTx{})

	_, err := s.Send(context.Background(), "u1", "p-other", "bonjour")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeProjectNotFound))
	assert.Zero(t, c.calls)
	assert.Empty(t, turns.turns)
}

func TestSendCompletionFailureSavesNothing(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"timeout", context.DeadlineExceeded, apperrors.CodeGenerationTimeout},
		{"upstream", errors.New("502 bad gateway"), apperrors.CodeGenerationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			turns := &memoryTurns{}
			tx := &recordingTx{}
			s := newTestService(turns, &staticContexts{pc: projectContext()}, &capturingCompleter{err: tc.err}, tx)

			reply, err := s.Send(context.Background(), "u1", "p1", "bonjour")
			assert.Nil(t, reply)
			assert.True(t, apperrors.IsCode(err, tc.code))
			assert.Empty(t, turns.turns)
			assert.Zero(t, tx.runs)
		})
	}
}

func TestSendSaveFailureIsDatabaseError(t *testing.T) {
	turns := &memoryTurns{failWrite: errors.New("connection reset")}
	s := newTestService(turns, &staticContexts{}, &capturingCompleter{reply: "ok"}, &recordingTx{})

	_, err := s.Send(context.Background(), "u1", "", "bonjour")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDatabaseError))
}

func TestHistoryClampsLimit(t *testing.T) {
	turns := &memoryTurns{}
	s := newTestService(turns, &staticContexts{}, &capturingCompleter{}, &recordingTx{})

	for _, tc := range []struct{ in, want int }{{0, 50}, {-3, 50}, {20, 20}, {500, 100}} {
		_, err := s.History(context.Background(), "u1", "", tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, turns.lastLimit, "limit %d", tc.in)
	}
}

func TestHistoryFiltersByProject(t *testing.T) {
	at := time.Unix(1_600_000_000, 0)
	turns := &memoryTurns{turns: []*entity.ConversationTurn{
		entity.NewConversationTurn("u1", "p1", entity.TurnRoleUser, "a", at),
		entity.NewConversationTurn("u1", "", entity.TurnRoleUser, "b", at),
		entity.NewConversationTurn("u1", "p2", entity.TurnRoleUser, "c", at),
	}}
	s := newTestService(turns, &staticContexts{}, &capturingCompleter{}, &recordingTx{})

	got, err := s.History(context.Background(), "u1", " p1 ", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Content)

	all, err := s.History(context.Background(), "u1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
