package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// questionColumns is the select list shared by every question read.
const questionColumns = `id, content_hash, content, options, explanation,
	category, stage_tag, topic_tags, license_types, created_at, updated_at`

// PostgresQuestionStore implements the store.QuestionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresQuestionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQuestionStore creates a new PostgreSQL implementation of the
// QuestionStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresQuestionStore(db store.DBTX, logger *slog.Logger) *PostgresQuestionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresQuestionStore{
		db:     db,
		logger: logger.With(slog.String("component", "question_store")),
	}
}

// Ensure PostgresQuestionStore implements store.QuestionStore interface
var _ store.QuestionStore = (*PostgresQuestionStore)(nil)

// WithTx implements store.QuestionStore.WithTx
func (s *PostgresQuestionStore) WithTx(tx *sql.Tx) store.QuestionStore {
	return &PostgresQuestionStore{
		db:     tx,
		logger: s.logger,
	}
}

// GetByID implements store.QuestionStore.GetByID
func (s *PostgresQuestionStore) GetByID(ctx context.Context, id int64) (*domain.Question, error) {
	query := fmt.Sprintf(`SELECT %s FROM questions WHERE id = $1`, questionColumns)

	question, err := scanQuestion(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", MapError(err))
	}

	return question, nil
}

// GetByHash implements store.QuestionStore.GetByHash
func (s *PostgresQuestionStore) GetByHash(ctx context.Context, contentHash string) (*domain.Question, error) {
	query := fmt.Sprintf(`SELECT %s FROM questions WHERE content_hash = $1`, questionColumns)

	question, err := scanQuestion(s.db.QueryRowContext(ctx, query, contentHash))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", MapError(err))
	}

	return question, nil
}

// GetByIDs implements store.QuestionStore.GetByIDs
func (s *PostgresQuestionStore) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sq.Select(questionColumns).
		From("questions").
		Where(sq.Eq{"id": ids}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build question query: %w", err)
	}

	return s.queryQuestions(ctx, query, args...)
}

// ListPage implements store.QuestionStore.ListPage
func (s *PostgresQuestionStore) ListPage(ctx context.Context, afterID int64, limit int) ([]*domain.Question, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", store.ErrInvalidEntity)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM questions WHERE id > $1 ORDER BY id ASC LIMIT $2`,
		questionColumns)

	return s.queryQuestions(ctx, query, afterID, limit)
}

// Count implements store.QuestionStore.Count
func (s *PostgresQuestionStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", MapError(err))
	}
	return count, nil
}

// ApplyPatch implements store.QuestionStore.ApplyPatch
// Only the non-nil patch fields are written; everything else keeps its
// current value.
func (s *PostgresQuestionStore) ApplyPatch(ctx context.Context, id int64, patch store.QuestionPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	builder := sq.Update("questions").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar)

	if patch.Content != nil {
		builder = builder.Set("content", *patch.Content)
	}
	if patch.Explanation != nil {
		builder = builder.Set("explanation", *patch.Explanation)
	}
	if patch.Category != nil {
		builder = builder.Set("category", *patch.Category)
	}
	if patch.StageTag != nil {
		builder = builder.Set("stage_tag", string(*patch.StageTag))
	}
	if patch.Options != nil {
		data, err := marshalStrings(*patch.Options)
		if err != nil {
			return err
		}
		builder = builder.Set("options", data)
	}
	if patch.TopicTags != nil {
		data, err := marshalStrings(*patch.TopicTags)
		if err != nil {
			return err
		}
		builder = builder.Set("topic_tags", data)
	}
	if patch.LicenseTypes != nil {
		data, err := marshalStrings(*patch.LicenseTypes)
		if err != nil {
			return err
		}
		builder = builder.Set("license_types", data)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build question update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, "question"); err != nil {
		return store.ErrQuestionNotFound
	}

	s.logger.DebugContext(ctx, "applied question patch",
		slog.Int64("question_id", id))

	return nil
}

func (s *PostgresQuestionStore) queryQuestions(ctx context.Context, query string, args ...any) ([]*domain.Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var questions []*domain.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		questions = append(questions, question)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating question rows: %w", err)
	}

	return questions, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan code.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*domain.Question, error) {
	var q domain.Question
	var options, topicTags, licenseTypes []byte
	var explanation, category, stageTag sql.NullString

	err := row.Scan(
		&q.ID,
		&q.ContentHash,
		&q.Content,
		&options,
		&explanation,
		&category,
		&stageTag,
		&topicTags,
		&licenseTypes,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.Explanation = explanation.String
	q.Category = category.String
	q.StageTag = domain.StageTag(stageTag.String)

	if q.Options, err = unmarshalStrings(options); err != nil {
		return nil, err
	}
	if q.TopicTags, err = unmarshalStrings(topicTags); err != nil {
		return nil, err
	}
	if q.LicenseTypes, err = unmarshalStrings(licenseTypes); err != nil {
		return nil, err
	}

	return &q, nil
}
