package store

import (
	"context"
	"database/sql"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
)

// TranslationStore defines the interface for per-locale translation rows.
type TranslationStore interface {
	// Upsert creates the translation for (content hash, locale) or updates it
	// if one already exists. At most one row per pair ever exists.
	Upsert(ctx context.Context, translation *domain.Translation) error

	// GetByHashAndLocale retrieves one translation.
	// Returns ErrTranslationNotFound if no row exists for the pair.
	GetByHashAndLocale(ctx context.Context, contentHash, locale string) (*domain.Translation, error)

	// ListByHash retrieves all translations of one question.
	ListByHash(ctx context.Context, contentHash string) ([]*domain.Translation, error)

	// WithTx returns a new TranslationStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TranslationStore
}
