package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
)

// ReviewStore defines the interface for polish review rows and their
// decision history.
type ReviewStore interface {
	// Create saves a new pending review.
	Create(ctx context.Context, review *domain.PolishReview) error

	// GetByID retrieves a review by ID.
	// Returns ErrReviewNotFound if the review does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PolishReview, error)

	// ListByStatus retrieves reviews with the given status, newest first.
	// An empty status lists all reviews.
	ListByStatus(ctx context.Context, status domain.ReviewStatus, limit, offset int) ([]*domain.PolishReview, error)

	// UpdateStatus moves a review out of pending. Only pending reviews can be
	// decided; returns ErrUpdateFailed if the review was already decided.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReviewStatus) error

	// RecordDecision appends a decision history entry.
	RecordDecision(ctx context.Context, decision *domain.ReviewDecision) error

	// WithTx returns a new ReviewStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) ReviewStore
}
