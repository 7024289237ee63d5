package task

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/processing"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryTaskStore is an in-memory TaskStore with the same guard semantics as
// the real one.
type memoryTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.BatchTask

	progressLog []store.TaskProgress
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: make(map[string]*domain.BatchTask)}
}

func (s *memoryTaskStore) CreateActive(_ context.Context, task *domain.BatchTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tasks {
		if !domain.IsTerminalTaskStatus(existing.Status) {
			return &store.ActiveTaskError{TaskID: existing.TaskID}
		}
	}
	clone := *task
	s.tasks[task.TaskID] = &clone
	return nil
}

func (s *memoryTaskStore) GetByID(_ context.Context, taskID string) (*domain.BatchTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

func (s *memoryTaskStore) GetStatus(_ context.Context, taskID string) (domain.TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return "", store.ErrTaskNotFound
	}
	return task.Status, nil
}

func (s *memoryTaskStore) List(_ context.Context, filter store.TaskFilter) ([]*domain.BatchTask, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.BatchTask
	for _, task := range s.tasks {
		if filter.Status == "" || task.Status == filter.Status {
			clone := *task
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (s *memoryTaskStore) MarkProcessing(_ context.Context, taskID string, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if task.Status != domain.TaskStatusPending {
		return store.ErrTaskFinalized
	}
	task.Status = domain.TaskStatusProcessing
	task.Total = total
	return nil
}

func (s *memoryTaskStore) UpdateProgress(_ context.Context, taskID string, p store.TaskProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if domain.IsTerminalTaskStatus(task.Status) {
		return store.ErrTaskFinalized
	}
	s.progressLog = append(s.progressLog, p)
	applyProgress(task, p)
	return nil
}

// progressSnapshots copies every progress update the store accepted, in
// order.
func (s *memoryTaskStore) progressSnapshots() []store.TaskProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.TaskProgress(nil), s.progressLog...)
}

func (s *memoryTaskStore) Finalize(_ context.Context, taskID string, status domain.TaskStatus, p store.TaskProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if domain.IsTerminalTaskStatus(task.Status) {
		return store.ErrTaskFinalized
	}
	task.Status = status
	applyProgress(task, p)
	return nil
}

func (s *memoryTaskStore) Cancel(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if domain.IsTerminalTaskStatus(task.Status) {
		return store.ErrTaskFinalized
	}
	task.Status = domain.TaskStatusCancelled
	return nil
}

func (s *memoryTaskStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if !domain.IsTerminalTaskStatus(task.Status) {
		return store.ErrUpdateFailed
	}
	delete(s.tasks, taskID)
	return nil
}

func (s *memoryTaskStore) WithTx(*sql.Tx) store.TaskStore { return s }

// brokenProgressStore rejects every progress write, simulating storage loss
// mid-task.
type brokenProgressStore struct {
	*memoryTaskStore
}

func (s *brokenProgressStore) UpdateProgress(context.Context, string, store.TaskProgress) error {
	return errors.New("connection reset by peer")
}

func applyProgress(task *domain.BatchTask, p store.TaskProgress) {
	task.Processed = p.Processed
	task.Succeeded = p.Succeeded
	task.Failed = p.Failed
	task.CurrentBatch = p.CurrentBatch
	task.Errors = p.Errors
	task.Details = p.Details
}

// memoryQuestionStore serves fixed questions by ID.
type memoryQuestionStore struct {
	mu        sync.Mutex
	questions map[int64]*domain.Question
}

func newMemoryQuestionStore(questions ...*domain.Question) *memoryQuestionStore {
	s := &memoryQuestionStore{questions: make(map[int64]*domain.Question)}
	for _, q := range questions {
		s.questions[q.ID] = q
	}
	return s
}

func (s *memoryQuestionStore) GetByID(_ context.Context, id int64) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, store.ErrQuestionNotFound
	}
	clone := *q
	return &clone, nil
}

func (s *memoryQuestionStore) GetByHash(_ context.Context, contentHash string) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.questions {
		if q.ContentHash == contentHash {
			clone := *q
			return &clone, nil
		}
	}
	return nil, store.ErrQuestionNotFound
}

func (s *memoryQuestionStore) GetByIDs(_ context.Context, ids []int64) ([]*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var out []*domain.Question
	for _, id := range sorted {
		if q, ok := s.questions[id]; ok {
			clone := *q
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memoryQuestionStore) ListPage(_ context.Context, afterID int64, limit int) ([]*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id := range s.questions {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	var out []*domain.Question
	for _, id := range ids {
		clone := *s.questions[id]
		out = append(out, &clone)
	}
	return out, nil
}

func (s *memoryQuestionStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions), nil
}

func (s *memoryQuestionStore) ApplyPatch(_ context.Context, id int64, patch store.QuestionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return store.ErrQuestionNotFound
	}
	if patch.Content != nil {
		q.Content = *patch.Content
	}
	if patch.Explanation != nil {
		q.Explanation = *patch.Explanation
	}
	if patch.Category != nil {
		q.Category = *patch.Category
	}
	return nil
}

func (s *memoryQuestionStore) WithTx(*sql.Tx) store.QuestionStore { return s }

// stubExecutor runs a configurable function per call.
type stubExecutor struct {
	name domain.OperationName

	mu    sync.Mutex
	calls []int64
	fn    func(question *domain.Question, op domain.Operation) error
}

func (e *stubExecutor) Name() domain.OperationName { return e.name }

func (e *stubExecutor) Execute(_ context.Context, question *domain.Question, op domain.Operation) error {
	e.mu.Lock()
	e.calls = append(e.calls, question.ID)
	fn := e.fn
	e.mu.Unlock()
	if fn != nil {
		return fn(question, op)
	}
	return nil
}

func (e *stubExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func newTestRegistry(executors ...processing.Executor) processing.Registry {
	registry, err := processing.NewRegistry(executors...)
	if err != nil {
		panic(err)
	}
	return registry
}

func questionFixtures(n int) []*domain.Question {
	questions := make([]*domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, &domain.Question{
			ID:          int64(i),
			ContentHash: string(rune('a'+i-1)) + "hash",
			Content:     "question body",
		})
	}
	return questions
}
