package api

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/processing"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthroughTxRunner runs the function without a real transaction; the
// fakes ignore the tx handle.
func passthroughTxRunner(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

// fakeLauncher records CreateTask, Retry, and Cancel calls. Created tasks
// come back as started snapshots, the way the orchestrator returns them.
type fakeLauncher struct {
	createdTask *domain.BatchTask
	createErr   error
	retryErr    error
	cancelErr   error

	lastOperations []domain.Operation
	lastCreatedBy  string
	retried        []string
	cancelled      []string
}

func (l *fakeLauncher) CreateTask(_ context.Context, operations []domain.Operation, questionIDs []int64, batchSize int, continueOnError bool, createdBy string) (*domain.BatchTask, error) {
	l.lastOperations = operations
	l.lastCreatedBy = createdBy
	if l.createErr != nil {
		return nil, l.createErr
	}
	if l.createdTask != nil {
		return l.createdTask, nil
	}
	task, err := domain.NewBatchTask(operations, questionIDs, batchSize, continueOnError, createdBy)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	task.Status = domain.TaskStatusProcessing
	task.Total = len(questionIDs)
	task.StartedAt = &now
	return task, nil
}

func (l *fakeLauncher) Retry(_ context.Context, taskID string) (*domain.BatchTask, error) {
	l.retried = append(l.retried, taskID)
	if l.retryErr != nil {
		return nil, l.retryErr
	}
	if l.createdTask != nil {
		return l.createdTask, nil
	}
	return l.CreateTask(context.Background(),
		[]domain.Operation{{Name: domain.OperationFillMissing}}, []int64{1}, 0, true, "admin")
}

func (l *fakeLauncher) Cancel(_ context.Context, taskID string) error {
	if l.cancelErr != nil {
		return l.cancelErr
	}
	l.cancelled = append(l.cancelled, taskID)
	return nil
}

// fakeTaskStore serves a fixed set of tasks.
type fakeTaskStore struct {
	tasks   map[string]*domain.BatchTask
	deleted []string
	listErr error
}

func newFakeTaskStore(tasks ...*domain.BatchTask) *fakeTaskStore {
	s := &fakeTaskStore{tasks: make(map[string]*domain.BatchTask)}
	for _, task := range tasks {
		s.tasks[task.TaskID] = task
	}
	return s
}

func (s *fakeTaskStore) CreateActive(context.Context, *domain.BatchTask) error { return nil }

func (s *fakeTaskStore) GetByID(_ context.Context, taskID string) (*domain.BatchTask, error) {
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

func (s *fakeTaskStore) GetStatus(_ context.Context, taskID string) (domain.TaskStatus, error) {
	task, ok := s.tasks[taskID]
	if !ok {
		return "", store.ErrTaskNotFound
	}
	return task.Status, nil
}

func (s *fakeTaskStore) List(_ context.Context, filter store.TaskFilter) ([]*domain.BatchTask, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var matched []*domain.BatchTask
	for _, task := range s.tasks {
		if filter.Status == "" || task.Status == filter.Status {
			matched = append(matched, task)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *fakeTaskStore) MarkProcessing(context.Context, string, int) error { return nil }

func (s *fakeTaskStore) UpdateProgress(context.Context, string, store.TaskProgress) error {
	return nil
}

func (s *fakeTaskStore) Finalize(context.Context, string, domain.TaskStatus, store.TaskProgress) error {
	return nil
}

func (s *fakeTaskStore) Cancel(context.Context, string) error { return nil }

func (s *fakeTaskStore) Delete(_ context.Context, taskID string) error {
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if !domain.IsTerminalTaskStatus(task.Status) {
		return store.ErrUpdateFailed
	}
	delete(s.tasks, taskID)
	s.deleted = append(s.deleted, taskID)
	return nil
}

func (s *fakeTaskStore) WithTx(*sql.Tx) store.TaskStore { return s }

// fakeQuestionStore serves fixed questions.
type fakeQuestionStore struct {
	questions map[int64]*domain.Question
	patches   map[int64][]store.QuestionPatch
}

func newFakeQuestionStore(questions ...*domain.Question) *fakeQuestionStore {
	s := &fakeQuestionStore{
		questions: make(map[int64]*domain.Question),
		patches:   make(map[int64][]store.QuestionPatch),
	}
	for _, q := range questions {
		s.questions[q.ID] = q
	}
	return s
}

func (s *fakeQuestionStore) GetByID(_ context.Context, id int64) (*domain.Question, error) {
	q, ok := s.questions[id]
	if !ok {
		return nil, store.ErrQuestionNotFound
	}
	return q, nil
}

func (s *fakeQuestionStore) GetByHash(_ context.Context, contentHash string) (*domain.Question, error) {
	for _, q := range s.questions {
		if q.ContentHash == contentHash {
			return q, nil
		}
	}
	return nil, store.ErrQuestionNotFound
}

func (s *fakeQuestionStore) GetByIDs(_ context.Context, ids []int64) ([]*domain.Question, error) {
	var out []*domain.Question
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *fakeQuestionStore) ListPage(context.Context, int64, int) ([]*domain.Question, error) {
	return nil, nil
}

func (s *fakeQuestionStore) Count(context.Context) (int, error) {
	return len(s.questions), nil
}

func (s *fakeQuestionStore) ApplyPatch(_ context.Context, id int64, patch store.QuestionPatch) error {
	q, ok := s.questions[id]
	if !ok {
		return store.ErrQuestionNotFound
	}
	if patch.Content != nil {
		q.Content = *patch.Content
	}
	if patch.Options != nil {
		q.Options = *patch.Options
	}
	if patch.Explanation != nil {
		q.Explanation = *patch.Explanation
	}
	s.patches[id] = append(s.patches[id], patch)
	return nil
}

func (s *fakeQuestionStore) WithTx(*sql.Tx) store.QuestionStore { return s }

// fakeTranslationStore keys rows by "hash/locale".
type fakeTranslationStore struct {
	rows    map[string]*domain.Translation
	upserts []*domain.Translation
}

func newFakeTranslationStore(rows ...*domain.Translation) *fakeTranslationStore {
	s := &fakeTranslationStore{rows: make(map[string]*domain.Translation)}
	for _, row := range rows {
		s.rows[row.ContentHash+"/"+row.Locale] = row
	}
	return s
}

func (s *fakeTranslationStore) Upsert(_ context.Context, translation *domain.Translation) error {
	s.rows[translation.ContentHash+"/"+translation.Locale] = translation
	s.upserts = append(s.upserts, translation)
	return nil
}

func (s *fakeTranslationStore) GetByHashAndLocale(_ context.Context, contentHash, locale string) (*domain.Translation, error) {
	row, ok := s.rows[contentHash+"/"+locale]
	if !ok {
		return nil, store.ErrTranslationNotFound
	}
	return row, nil
}

func (s *fakeTranslationStore) ListByHash(_ context.Context, contentHash string) ([]*domain.Translation, error) {
	var out []*domain.Translation
	for _, row := range s.rows {
		if row.ContentHash == contentHash {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Locale < out[j].Locale })
	return out, nil
}

func (s *fakeTranslationStore) WithTx(*sql.Tx) store.TranslationStore { return s }

// fakeReviewStore tracks status transitions and decision records.
type fakeReviewStore struct {
	reviews   map[uuid.UUID]*domain.PolishReview
	decisions []*domain.ReviewDecision
}

func newFakeReviewStore(reviews ...*domain.PolishReview) *fakeReviewStore {
	s := &fakeReviewStore{reviews: make(map[uuid.UUID]*domain.PolishReview)}
	for _, review := range reviews {
		s.reviews[review.ID] = review
	}
	return s
}

func (s *fakeReviewStore) Create(_ context.Context, review *domain.PolishReview) error {
	s.reviews[review.ID] = review
	return nil
}

func (s *fakeReviewStore) GetByID(_ context.Context, id uuid.UUID) (*domain.PolishReview, error) {
	review, ok := s.reviews[id]
	if !ok {
		return nil, store.ErrReviewNotFound
	}
	return review, nil
}

func (s *fakeReviewStore) ListByStatus(_ context.Context, status domain.ReviewStatus, limit, offset int) ([]*domain.PolishReview, error) {
	var out []*domain.PolishReview
	for _, review := range s.reviews {
		if status == "" || review.Status == status {
			out = append(out, review)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeReviewStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.ReviewStatus) error {
	review, ok := s.reviews[id]
	if !ok {
		return store.ErrReviewNotFound
	}
	if review.Status != domain.ReviewStatusPending {
		return store.ErrUpdateFailed
	}
	review.Status = status
	review.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeReviewStore) RecordDecision(_ context.Context, decision *domain.ReviewDecision) error {
	s.decisions = append(s.decisions, decision)
	return nil
}

func (s *fakeReviewStore) WithTx(*sql.Tx) store.ReviewStore { return s }

// stubExecutor satisfies processing.Executor for handler tests.
type stubExecutor struct {
	name  domain.OperationName
	fn    func(question *domain.Question, op domain.Operation) error
	calls int
}

func (e *stubExecutor) Name() domain.OperationName { return e.name }

func (e *stubExecutor) Execute(_ context.Context, question *domain.Question, op domain.Operation) error {
	e.calls++
	if e.fn != nil {
		return e.fn(question, op)
	}
	return nil
}

func newTestRegistry(executors ...processing.Executor) processing.Registry {
	registry, err := processing.NewRegistry(executors...)
	if err != nil {
		panic(err)
	}
	return registry
}

func testQuestion() *domain.Question {
	return &domain.Question{
		ID:          42,
		ContentHash: "abc123",
		Content:     "高速道路での最低速度は何km/hですか？",
		Options:     []string{"30km/h", "50km/h", "60km/h"},
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}
