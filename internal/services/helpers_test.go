package services

import (
	"context"
	"sync"
	"testing"

	"github.com/yoockh/yoodesk/internal/cache"
	"github.com/yoockh/yoodesk/internal/logger"
	"github.com/yoockh/yoodesk/internal/models"
	"github.com/yoockh/yoodesk/internal/providers/llm"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/testutil"
	"gorm.io/gorm"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []models.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job models.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) kinds() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.Kind)
	}
	return out
}

func (q *recordingQueue) count(kind string) int {
	n := 0
	for _, k := range q.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (q *recordingQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = nil
}

// fixedMatcher returns the configured id, or no match when empty.
type fixedMatcher struct {
	id    string
	calls int
}

func (m *fixedMatcher) SelectExpert(context.Context, string, string, []models.ExpertCandidate) (string, bool) {
	m.calls++
	return m.id, m.id != ""
}

type testEnv struct {
	db          *gorm.DB
	convos      pgrepo.ConversationRepo
	messages    pgrepo.MessageRepository
	assignments pgrepo.AssignmentRepository
	profiles    pgrepo.ProfileRepository
	queue       *recordingQueue
	summaries   SummaryService
	views       ViewBuilder
}

func newTestEnv(t *testing.T, scorer llm.Scorer) *testEnv {
	t.Helper()
	if scorer == nil {
		scorer = llm.Noop{}
	}
	db := testutil.NewDB(t)
	e := &testEnv{
		db:          db,
		convos:      pgrepo.NewConversationRepo(db),
		messages:    pgrepo.NewMessageRepo(db),
		assignments: pgrepo.NewAssignmentRepo(db),
		profiles:    pgrepo.NewProfileRepo(db),
		queue:       &recordingQueue{},
	}
	e.summaries = NewSummaryService(e.convos, e.messages, scorer, cache.NewMemoryLocker(), e.queue, 0, logger.Discard())
	e.views = NewViewBuilder(e.messages, e.summaries)
	return e
}

func (e *testEnv) assignmentService(m Matcher) AssignmentService {
	dir := NewExpertDirectory(e.profiles, nil, 0, logger.Discard())
	if m == nil {
		m = &fixedMatcher{}
	}
	return NewAssignmentService(e.convos, e.messages, e.assignments, dir, m, e.views, logger.Discard())
}

// requireInvariant checks assigned expert is set exactly when active.
func requireInvariant(t *testing.T, e *testEnv, conversationID string) *models.Conversation {
	t.Helper()
	c, err := e.convos.GetByID(context.Background(), conversationID)
	if err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if (c.AssignedExpertID != nil) != (c.Status == models.StatusActive) {
		t.Fatalf("invariant broken: status=%s assigned=%v", c.Status, c.AssignedExpertID)
	}
	return c
}
