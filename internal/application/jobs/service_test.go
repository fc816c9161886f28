package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoth-writer-api/internal/application/writing"
	"thoth-writer-api/internal/domain/entity"
	"thoth-writer-api/internal/infrastructure/messaging"
	apperrors "thoth-writer-api/pkg/errors"
)

type memoryJobs struct {
	jobs     map[string]*entity.GenerationJob
	progress []int
	seq      int
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: map[string]*entity.GenerationJob{}}
}

func (m *memoryJobs) Create(_ context.Context, job *entity.GenerationJob) error {
	m.seq++
	job.ID = fmt.Sprintf("job-%d", m.seq)
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memoryJobs) GetByID(_ context.Context, id string) (*entity.GenerationJob, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (m *memoryJobs) GetForUser(ctx context.Context, id, userID string) (*entity.GenerationJob, error) {
	j, _ := m.GetByID(ctx, id)
	if j == nil || j.UserID != userID {
		return nil, nil
	}
	return j, nil
}

func (m *memoryJobs) Update(_ context.Context, job *entity.GenerationJob) error {
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memoryJobs) UpdateProgress(_ context.Context, id string, progress int) error {
	m.progress = append(m.progress, progress)
	m.jobs[id].Progress = progress
	return nil
}

type ownedProjects struct{}

func (ownedProjects) GetOwned(_ context.Context, id, ownerID string) (*entity.Project, error) {
	if ownerID != "u1" {
		return nil, nil
	}
	return &entity.Project{ID: id, OwnerID: ownerID}, nil
}

type capturingPublisher struct {
	published []*messaging.BookJobMessage
	err       error
}

func (p *capturingPublisher) PublishBookJob(_ context.Context, job *messaging.BookJobMessage) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, job)
	return "1-0", nil
}

type scriptedRunner struct {
	err   error
	calls int
}

func (r *scriptedRunner) Generate(ctx context.Context, req *writing.BookRequest, progress writing.ProgressFunc) (*writing.BookResult, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	res := &writing.BookResult{}
	for i := 1; i <= req.ChapterCount; i++ {
		progress(ctx, i, req.ChapterCount)
		res.Chapters = append(res.Chapters, &writing.ChapterResult{Title: fmt.Sprintf("Chapter %d", i)})
	}
	return res, nil
}

func messageFor(t *testing.T, pub *capturingPublisher) *messaging.Message {
	t.Helper()
	require.Len(t, pub.published, 1)
	job := pub.published[0]
	msg, err := messaging.NewMessage(job.JobID, messaging.MessageTypeBookGeneration, job.ProjectID, job.UserID, job)
	require.NoError(t, err)
	return msg
}

func validParams() BookParams {
	return BookParams{BookPrompt: "Une saga maritime", ChapterCount: 4, CreateDocuments: true}
}

func TestSubmitAndRunBookJob(t *testing.T) {
	store, pub, runner := newMemoryJobs(), &capturingPublisher{}, &scriptedRunner{}
	svc := NewService(store, ownedProjects{}, pub, runner, 10)
	ctx := context.Background()

	job, err := svc.SubmitBook(ctx, "p1", "u1", validParams())
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusPending, job.Status)

	var params BookParams
	require.NoError(t, json.Unmarshal(pub.published[0].Params, &params))
	assert.Equal(t, 4, params.ChapterCount)

	require.NoError(t, svc.HandleBookMessage(ctx, messageFor(t, pub)))

	done, err := svc.Get(ctx, job.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, []int{25, 50, 75, 100}, store.progress)
	assert.NotNil(t, done.CompletedAt)

	var result writing.BookResult
	require.NoError(t, json.Unmarshal(done.OutputResult, &result))
	assert.Len(t, result.Chapters, 4)

	// 重复投递不会再次执行
	require.NoError(t, svc.HandleBookMessage(ctx, messageFor(t, pub)))
	assert.Equal(t, 1, runner.calls)

	_, err = svc.Get(ctx, job.ID, "someone-else")
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
}

func TestSubmitBookValidation(t *testing.T) {
	svc := NewService(newMemoryJobs(), ownedProjects{}, &capturingPublisher{}, nil, 3)
	ctx := context.Background()

	params := validParams()
	_, err := svc.SubmitBook(ctx, "p1", "u1", params)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam), "chapter count above limit")

	params.ChapterCount = 2
	_, err = svc.SubmitBook(ctx, "p1", "intruder", params)
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
}

func TestSubmitBookPublishFailureFailsJob(t *testing.T) {
	store := newMemoryJobs()
	svc := NewService(store, ownedProjects{}, &capturingPublisher{err: errors.New("redis down")}, nil, 10)

	_, err := svc.SubmitBook(context.Background(), "p1", "u1", validParams())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeQueueError))
	require.Len(t, store.jobs, 1)
	assert.Equal(t, entity.JobStatusFailed, store.jobs["job-1"].Status)
}

func TestGenerationErrorIsTerminal(t *testing.T) {
	store, pub := newMemoryJobs(), &capturingPublisher{}
	runner := &scriptedRunner{err: apperrors.ErrGenerationTimeout}
	svc := NewService(store, ownedProjects{}, pub, runner, 10)
	ctx := context.Background()

	job, err := svc.SubmitBook(ctx, "p1", "u1", validParams())
	require.NoError(t, err)

	err = svc.HandleBookMessage(ctx, messageFor(t, pub))
	require.Error(t, err)
	assert.True(t, messaging.IsPermanent(err))

	failed := store.jobs[job.ID]
	assert.Equal(t, entity.JobStatusFailed, failed.Status)
	assert.Equal(t, string(apperrors.CodeGenerationTimeout), failed.ErrorCode)
}

func TestInfrastructureErrorIsRetried(t *testing.T) {
	store, pub := newMemoryJobs(), &capturingPublisher{}
	runner := &scriptedRunner{err: apperrors.Wrap(errors.New("conn reset"), apperrors.CodeDatabaseError, "db")}
	svc := NewService(store, ownedProjects{}, pub, runner, 10)
	ctx := context.Background()

	job, err := svc.SubmitBook(ctx, "p1", "u1", validParams())
	require.NoError(t, err)

	err = svc.HandleBookMessage(ctx, messageFor(t, pub))
	require.Error(t, err)
	assert.False(t, messaging.IsPermanent(err))
	assert.Equal(t, entity.JobStatusPending, store.jobs[job.ID].Status)
	assert.Equal(t, 1, store.jobs[job.ID].RetryCount)
}

func TestFailureAfterSavedChaptersIsNotRetried(t *testing.T) {
	store, pub := newMemoryJobs(), &capturingPublisher{}
	runner := &scriptedRunner{err: &writing.ChapterError{
		Chapter:   2,
		Persisted: []string{"doc-1"},
		Err:       errors.New("connection reset by peer"),
	}}
	svc := NewService(store, ownedProjects{}, pub, runner, 10)
	ctx := context.Background()

	job, err := svc.SubmitBook(ctx, "p1", "u1", validParams())
	require.NoError(t, err)

	err = svc.HandleBookMessage(ctx, messageFor(t, pub))
	require.Error(t, err)
	assert.True(t, messaging.IsPermanent(err))

	failed := store.jobs[job.ID]
	assert.Equal(t, entity.JobStatusFailed, failed.Status)
	assert.Equal(t, 0, failed.RetryCount)
	assert.Contains(t, failed.ErrorMessage, "1 chapter(s) already saved")

	// 重复投递不会重新生成已保存的章节
	require.NoError(t, svc.HandleBookMessage(ctx, messageFor(t, pub)))
	assert.Equal(t, 1, runner.calls)
}

func TestFailureBeforeAnySavedChapterIsRetried(t *testing.T) {
	store, pub := newMemoryJobs(), &capturingPublisher{}
	runner := &scriptedRunner{err: &writing.ChapterError{Chapter: 1, Err: errors.New("connection reset by peer")}}
	svc := NewService(store, ownedProjects{}, pub, runner, 10)
	ctx := context.Background()

	job, err := svc.SubmitBook(ctx, "p1", "u1", validParams())
	require.NoError(t, err)

	err = svc.HandleBookMessage(ctx, messageFor(t, pub))
	require.Error(t, err)
	assert.False(t, messaging.IsPermanent(err))
	assert.Equal(t, entity.JobStatusPending, store.jobs[job.ID].Status)
	assert.Equal(t, 1, store.jobs[job.ID].RetryCount)
}
