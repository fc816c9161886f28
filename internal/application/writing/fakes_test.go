package writing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"thoth-writer-api/internal/application/generation"
	"thoth-writer-api/internal/application/versioning"
	"thoth-writer-api/internal/domain/entity"
	wfmodel "thoth-writer-api/internal/workflow/model"
	apperrors "thoth-writer-api/pkg/errors"
)

type memoryDocs struct {
	mu       sync.Mutex
	docs     map[string]*entity.Document
	order    []string
	updates  []entity.DocumentPatch
	created  []*entity.Document
	nextID   int
	listed   int
	baseNext int
	// failCreateAt 第 n 次 Create 返回错误，0 表示不失败
	failCreateAt int
	createCalls  int
}

func newMemoryDocs(docs ...*entity.Document) *memoryDocs {
	m := &memoryDocs{docs: map[string]*entity.Document{}}
	for _, d := range docs {
		m.docs[d.ID] = d
		m.order = append(m.order, d.ID)
	}
	return m
}

func (m *memoryDocs) GetByID(_ context.Context, id, _ string) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	cp := *d
	cp.Metadata = d.CloneMetadata()
	return &cp, nil
}

func (m *memoryDocs) Update(_ context.Context, id string, patch entity.DocumentPatch, _ string) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	m.updates = append(m.updates, patch)
	patch.Apply(d)
	d.UpdatedAt = d.UpdatedAt.Add(time.Second)
	cp := *d
	return &cp, nil
}

func (m *memoryDocs) Create(_ context.Context, doc *entity.Document, _ string) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failCreateAt > 0 && m.createCalls == m.failCreateAt {
		return nil, errors.New("connection reset by peer")
	}
	m.nextID++
	doc.ID = fmt.Sprintf("doc-%d", m.nextID)
	m.docs[doc.ID] = doc
	m.order = append(m.order, doc.ID)
	m.created = append(m.created, doc)
	return doc, nil
}

func (m *memoryDocs) NextOrderIndex(_ context.Context, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.docs) == 0 {
		return m.baseNext, nil
	}
	maxIdx := -1
	for _, d := range m.docs {
		maxIdx = max(maxIdx, d.OrderIndex)
	}
	return maxIdx + 1, nil
}

func (m *memoryDocs) ListAllByProject(_ context.Context, projectID, _ string) ([]*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed++
	var out []*entity.Document
	for _, id := range m.order {
		if d := m.docs[id]; d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

type staticContexts struct {
	pc  *wfmodel.ProjectContext
	err error
}

func (s *staticContexts) BuildProjectContext(_ context.Context, _, _ string) (*wfmodel.ProjectContext, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pc, nil
}

type recordingRetriever struct {
	indexCalls    []bool
	retrieveCalls []string
	snippets      []string
}

func (r *recordingRetriever) Index(_ context.Context, _ string, docs []*entity.Document, clear bool) (int, error) {
	r.indexCalls = append(r.indexCalls, clear)
	return len(docs), nil
}

func (r *recordingRetriever) Retrieve(_ context.Context, _, query string, _ int) ([]string, error) {
	r.retrieveCalls = append(r.retrieveCalls, query)
	return r.snippets, nil
}

// routedCompleter 按 system 消息区分规划、大纲与正文调用
type routedCompleter struct {
	mu      sync.Mutex
	outline string
	body    func(call int) string
	calls   []string
	prompts []string
	// writeErr 第 n 次正文调用返回的错误
	writeErr map[int]error
}

func (c *routedCompleter) Complete(_ context.Context, msgs []*schema.Message, _ ...model.Option) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	system := msgs[0].Content
	c.prompts = append(c.prompts, msgs[len(msgs)-1].Content)
	switch {
	case strings.Contains(system, "outline planner"):
		c.calls = append(c.calls, "plan")
		return "- ouverture\n- conflit", nil
	case strings.Contains(system, "story architect"):
		c.calls = append(c.calls, "outline")
		return c.outline, nil
	default:
		c.calls = append(c.calls, "write")
		if err := c.writeErr[c.countLocked("write")]; err != nil {
			return "", err
		}
		if c.body != nil {
			return c.body(len(c.calls)), nil
		}
		return "Texte genere pour le chapitre.", nil
	}
}

func (c *routedCompleter) count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countLocked(kind)
}

func (c *routedCompleter) countLocked(kind string) int {
	n := 0
	for _, k := range c.calls {
		if k == kind {
			n++
		}
	}
	return n
}

func testContext() *wfmodel.ProjectContext {
	return &wfmodel.ProjectContext{
		Project:     wfmodel.ProjectSummary{ID: "p1", Title: "Projet test"},
		Constraints: map[string]any{},
	}
}

func testLedger() *versioning.Ledger {
	n := 0
	return versioning.NewLedger(
		versioning.WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }),
		versioning.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		}),
	)
}

func newController(c generation.Completer) *generation.Controller {
	return generation.NewController(c, generation.DefaultOptions())
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }
