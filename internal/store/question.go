package store

import (
	"context"
	"database/sql"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
)

// QuestionPatch names the question fields an executor wants to change.
// A nil field is left untouched; only non-nil fields are written. This is how
// fill_missing avoids clobbering fields that were already present and how
// category_tags avoids erasing existing tags with an empty AI response.
type QuestionPatch struct {
	Content      *string
	Options      *[]string
	Explanation  *string
	Category     *string
	StageTag     *domain.StageTag
	TopicTags    *[]string
	LicenseTypes *[]string
}

// IsEmpty reports whether the patch would change nothing.
func (p QuestionPatch) IsEmpty() bool {
	return p.Content == nil && p.Options == nil && p.Explanation == nil &&
		p.Category == nil && p.StageTag == nil && p.TopicTags == nil &&
		p.LicenseTypes == nil
}

// QuestionStore defines the interface for question persistence.
type QuestionStore interface {
	// GetByID retrieves a question by its numeric ID.
	// Returns ErrQuestionNotFound if the question does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Question, error)

	// GetByHash retrieves a question by its content hash.
	// Returns ErrQuestionNotFound if no question has the hash.
	GetByHash(ctx context.Context, contentHash string) (*domain.Question, error)

	// GetByIDs retrieves the questions with the given IDs, ordered by ID.
	// IDs that do not exist are silently omitted from the result.
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.Question, error)

	// ListPage retrieves up to limit questions with ID greater than afterID,
	// ordered by ID. Callers page through the whole table with repeated calls
	// rather than materializing it at once.
	ListPage(ctx context.Context, afterID int64, limit int) ([]*domain.Question, error)

	// Count returns the total number of questions.
	Count(ctx context.Context) (int, error)

	// ApplyPatch updates only the fields named by the patch.
	// Returns ErrQuestionNotFound if the question does not exist.
	ApplyPatch(ctx context.Context, id int64, patch QuestionPatch) error

	// WithTx returns a new QuestionStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) QuestionStore
}
