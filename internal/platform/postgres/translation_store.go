package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// PostgresTranslationStore implements the store.TranslationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTranslationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTranslationStore creates a new PostgreSQL implementation of the
// TranslationStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTranslationStore(db store.DBTX, logger *slog.Logger) *PostgresTranslationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTranslationStore{
		db:     db,
		logger: logger.With(slog.String("component", "translation_store")),
	}
}

// Ensure PostgresTranslationStore implements store.TranslationStore interface
var _ store.TranslationStore = (*PostgresTranslationStore)(nil)

// WithTx implements store.TranslationStore.WithTx
func (s *PostgresTranslationStore) WithTx(tx *sql.Tx) store.TranslationStore {
	return &PostgresTranslationStore{
		db:     tx,
		logger: s.logger,
	}
}

// Upsert implements store.TranslationStore.Upsert
// The (content_hash, locale) pair is the row identity: an existing row is
// overwritten rather than duplicated, so re-running an operation converges.
func (s *PostgresTranslationStore) Upsert(ctx context.Context, translation *domain.Translation) error {
	if err := translation.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	options, err := marshalStrings(translation.Options)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO question_translations
			(content_hash, locale, content, options, explanation, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (content_hash, locale) DO UPDATE SET
			content = EXCLUDED.content,
			options = EXCLUDED.options,
			explanation = EXCLUDED.explanation,
			source = EXCLUDED.source,
			updated_at = NOW()
	`

	_, err = s.db.ExecContext(ctx, query,
		translation.ContentHash,
		translation.Locale,
		translation.Content,
		options,
		translation.Explanation,
		translation.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert translation: %w", MapError(err))
	}

	s.logger.DebugContext(ctx, "upserted translation",
		slog.String("content_hash", translation.ContentHash),
		slog.String("locale", translation.Locale),
		slog.String("source", string(translation.Source)))

	return nil
}

// GetByHashAndLocale implements store.TranslationStore.GetByHashAndLocale
func (s *PostgresTranslationStore) GetByHashAndLocale(ctx context.Context, contentHash, locale string) (*domain.Translation, error) {
	query := `
		SELECT content_hash, locale, content, options, explanation, source, created_at, updated_at
		FROM question_translations
		WHERE content_hash = $1 AND locale = $2
	`

	translation, err := scanTranslation(s.db.QueryRowContext(ctx, query, contentHash, locale))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrTranslationNotFound
		}
		return nil, fmt.Errorf("failed to get translation: %w", MapError(err))
	}

	return translation, nil
}

// ListByHash implements store.TranslationStore.ListByHash
func (s *PostgresTranslationStore) ListByHash(ctx context.Context, contentHash string) ([]*domain.Translation, error) {
	query := `
		SELECT content_hash, locale, content, options, explanation, source, created_at, updated_at
		FROM question_translations
		WHERE content_hash = $1
		ORDER BY locale ASC
	`

	rows, err := s.db.QueryContext(ctx, query, contentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query translations: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var translations []*domain.Translation
	for rows.Next() {
		translation, err := scanTranslation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan translation row: %w", err)
		}
		translations = append(translations, translation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating translation rows: %w", err)
	}

	return translations, nil
}

func scanTranslation(row rowScanner) (*domain.Translation, error) {
	var t domain.Translation
	var options []byte
	var explanation sql.NullString

	err := row.Scan(
		&t.ContentHash,
		&t.Locale,
		&t.Content,
		&options,
		&explanation,
		&t.Source,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Explanation = explanation.String
	if t.Options, err = unmarshalStrings(options); err != nil {
		return nil, err
	}

	return &t, nil
}
