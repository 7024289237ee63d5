package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

const reviewColumns = `id, content_hash, locale, proposed_content,
	proposed_options, proposed_explanation, status, created_at, updated_at`

// PostgresReviewStore implements the store.ReviewStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewStore creates a new PostgreSQL implementation of the
// ReviewStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresReviewStore(db store.DBTX, logger *slog.Logger) *PostgresReviewStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_store")),
	}
}

// Ensure PostgresReviewStore implements store.ReviewStore interface
var _ store.ReviewStore = (*PostgresReviewStore)(nil)

// WithTx implements store.ReviewStore.WithTx
func (s *PostgresReviewStore) WithTx(tx *sql.Tx) store.ReviewStore {
	return &PostgresReviewStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ReviewStore.Create
func (s *PostgresReviewStore) Create(ctx context.Context, review *domain.PolishReview) error {
	if err := review.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	options, err := marshalStrings(review.ProposedOptions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO question_polish_reviews
			(id, content_hash, locale, proposed_content, proposed_options,
			 proposed_explanation, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		review.ID,
		review.ContentHash,
		review.Locale,
		review.ProposedContent,
		options,
		review.ProposedExplanation,
		review.Status,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create polish review: %w", MapError(err))
	}

	s.logger.DebugContext(ctx, "created polish review",
		slog.String("review_id", review.ID.String()),
		slog.String("content_hash", review.ContentHash),
		slog.String("locale", review.Locale))

	return nil
}

// GetByID implements store.ReviewStore.GetByID
func (s *PostgresReviewStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PolishReview, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM question_polish_reviews WHERE id = $1`, reviewColumns)

	review, err := scanReview(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get polish review: %w", MapError(err))
	}

	return review, nil
}

// ListByStatus implements store.ReviewStore.ListByStatus
func (s *PostgresReviewStore) ListByStatus(ctx context.Context, status domain.ReviewStatus, limit, offset int) ([]*domain.PolishReview, error) {
	builder := sq.Select(reviewColumns).
		From("question_polish_reviews").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if status != "" {
		builder = builder.Where(sq.Eq{"status": status})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build review query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query polish reviews: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var reviews []*domain.PolishReview
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review rows: %w", err)
	}

	return reviews, nil
}

// UpdateStatus implements store.ReviewStore.UpdateStatus
// The update is guarded on pending so a review is decided at most once.
func (s *PostgresReviewStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReviewStatus) error {
	query := `
		UPDATE question_polish_reviews
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, status, id, domain.ReviewStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, ""); err != nil {
		// Either the review does not exist or it was already decided.
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: review already decided", store.ErrUpdateFailed)
	}

	s.logger.InfoContext(ctx, "review decided",
		slog.String("review_id", id.String()),
		slog.String("decision", string(status)))

	return nil
}

// RecordDecision implements store.ReviewStore.RecordDecision
func (s *PostgresReviewStore) RecordDecision(ctx context.Context, decision *domain.ReviewDecision) error {
	query := `
		INSERT INTO review_decisions
			(id, review_id, decision, reviewer_id, old_content, new_content, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		decision.ID,
		decision.ReviewID,
		decision.Decision,
		decision.ReviewerID,
		decision.OldContent,
		decision.NewContent,
		decision.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record review decision: %w", MapError(err))
	}

	return nil
}

func scanReview(row rowScanner) (*domain.PolishReview, error) {
	var r domain.PolishReview
	var options []byte
	var explanation sql.NullString

	err := row.Scan(
		&r.ID,
		&r.ContentHash,
		&r.Locale,
		&r.ProposedContent,
		&options,
		&explanation,
		&r.Status,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ProposedExplanation = explanation.String
	if r.ProposedOptions, err = unmarshalStrings(options); err != nil {
		return nil, err
	}

	return &r, nil
}
