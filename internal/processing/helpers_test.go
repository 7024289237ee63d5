package processing

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedCompleter returns canned responses and records every request.
type scriptedCompleter struct {
	requests  []ai.Request
	responses []string
	err       error
}

func (c *scriptedCompleter) Complete(_ context.Context, req ai.Request) (*ai.Result, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	text := ""
	if len(c.responses) > 0 {
		text = c.responses[0]
		if len(c.responses) > 1 {
			c.responses = c.responses[1:]
		}
	}
	return &ai.Result{Text: text, Provider: "test", Model: "test-model"}, nil
}

// fakeTranslationStore keeps translations keyed by (hash, locale).
type fakeTranslationStore struct {
	upserts []*domain.Translation
	rows    map[string]*domain.Translation
}

func newFakeTranslationStore() *fakeTranslationStore {
	return &fakeTranslationStore{rows: make(map[string]*domain.Translation)}
}

func translationKey(hash, locale string) string {
	return fmt.Sprintf("%s/%s", hash, locale)
}

func (s *fakeTranslationStore) Upsert(_ context.Context, t *domain.Translation) error {
	s.upserts = append(s.upserts, t)
	s.rows[translationKey(t.ContentHash, t.Locale)] = t
	return nil
}

func (s *fakeTranslationStore) GetByHashAndLocale(_ context.Context, hash, locale string) (*domain.Translation, error) {
	t, ok := s.rows[translationKey(hash, locale)]
	if !ok {
		return nil, store.ErrTranslationNotFound
	}
	return t, nil
}

func (s *fakeTranslationStore) ListByHash(_ context.Context, hash string) ([]*domain.Translation, error) {
	var out []*domain.Translation
	for _, t := range s.rows {
		if t.ContentHash == hash {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeTranslationStore) WithTx(*sql.Tx) store.TranslationStore { return s }

// fakeReviewStore records created reviews.
type fakeReviewStore struct {
	created   []*domain.PolishReview
	decisions []*domain.ReviewDecision
}

func (s *fakeReviewStore) Create(_ context.Context, r *domain.PolishReview) error {
	s.created = append(s.created, r)
	return nil
}

func (s *fakeReviewStore) GetByID(_ context.Context, id uuid.UUID) (*domain.PolishReview, error) {
	for _, r := range s.created {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, store.ErrReviewNotFound
}

func (s *fakeReviewStore) ListByStatus(_ context.Context, status domain.ReviewStatus, _, _ int) ([]*domain.PolishReview, error) {
	var out []*domain.PolishReview
	for _, r := range s.created {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeReviewStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.ReviewStatus) error {
	for _, r := range s.created {
		if r.ID == id {
			if r.Status != domain.ReviewStatusPending {
				return store.ErrUpdateFailed
			}
			r.Status = status
			return nil
		}
	}
	return store.ErrReviewNotFound
}

func (s *fakeReviewStore) RecordDecision(_ context.Context, d *domain.ReviewDecision) error {
	s.decisions = append(s.decisions, d)
	return nil
}

func (s *fakeReviewStore) WithTx(*sql.Tx) store.ReviewStore { return s }

// fakeQuestionStore records applied patches.
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

func (s *fakeQuestionStore) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Question, error) {
	var out []*domain.Question
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *fakeQuestionStore) ListPage(_ context.Context, afterID int64, limit int) ([]*domain.Question, error) {
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

	out := make([]*domain.Question, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.questions[id])
	}
	return out, nil
}

func (s *fakeQuestionStore) Count(context.Context) (int, error) {
	return len(s.questions), nil
}

func (s *fakeQuestionStore) ApplyPatch(_ context.Context, id int64, patch store.QuestionPatch) error {
	if _, ok := s.questions[id]; !ok {
		return store.ErrQuestionNotFound
	}
	s.patches[id] = append(s.patches[id], patch)
	return nil
}

func (s *fakeQuestionStore) WithTx(*sql.Tx) store.QuestionStore { return s }

func testQuestion() *domain.Question {
	return &domain.Question{
		ID:          42,
		ContentHash: "abc123",
		Content:     "在高速公路上行驶时，最低车速是多少？",
		Options:     []string{"60 km/h", "80 km/h", "100 km/h"},
		Explanation: "高速公路最低车速为60公里每小时。",
	}
}
