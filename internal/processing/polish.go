package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// PolishExecutor asks the model to improve the wording of a question's
// rendering in one locale. The polished text is never applied directly; it
// becomes a pending review that a human approves or rejects.
type PolishExecutor struct {
	completer    ai.Completer
	translations store.TranslationStore
	reviews      store.ReviewStore
	logger       *slog.Logger
}

// NewPolishExecutor creates a PolishExecutor.
func NewPolishExecutor(completer ai.Completer, translations store.TranslationStore, reviews store.ReviewStore, logger *slog.Logger) *PolishExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolishExecutor{
		completer:    completer,
		translations: translations,
		reviews:      reviews,
		logger:       logger.With(slog.String("executor", "polish")),
	}
}

// Name implements Executor.Name
func (e *PolishExecutor) Name() domain.OperationName {
	return domain.OperationPolish
}

// Execute implements Executor.Execute
// The locale decides which rendering is polished: the locale's translation
// row when one exists, the question's own body otherwise.
func (e *PolishExecutor) Execute(ctx context.Context, question *domain.Question, op domain.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	locale := op.Polish.Locale
	content, options, explanation := question.Content, question.Options, question.Explanation

	translation, err := e.translations.GetByHashAndLocale(ctx, question.ContentHash, locale)
	switch {
	case err == nil:
		content, options, explanation = translation.Content, translation.Options, translation.Explanation
	case errors.Is(err, store.ErrTranslationNotFound):
		// Fall through to the base rendering.
	default:
		return err
	}

	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: nothing to polish for locale %s", domain.ErrEmptyContent, locale)
	}

	result, err := e.completer.Complete(ctx, ai.Request{
		Scene:  ScenePolish,
		Input:  buildPolishInput(locale, content, options, explanation),
		Locale: locale,
	})
	if err != nil {
		return err
	}

	parsed, err := ai.Parse(result.Text, bodyFields)
	if err != nil {
		return err
	}

	proposed := strings.TrimSpace(parsed.String("content"))
	if proposed == "" {
		return fmt.Errorf("%w: polish response has no content", ai.ErrInvalidResponse)
	}

	review, err := domain.NewPolishReview(
		question.ContentHash,
		locale,
		proposed,
		parsed.StringList("options"),
		parsed.String("explanation"),
	)
	if err != nil {
		return err
	}

	if err := e.reviews.Create(ctx, review); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "created polish proposal",
		slog.Int64("question_id", question.ID),
		slog.String("locale", locale),
		slog.String("review_id", review.ID.String()))

	return nil
}
