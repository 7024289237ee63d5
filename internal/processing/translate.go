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

// TranslateExecutor produces per-locale renderings of a question and upserts
// them as AI-sourced translations. One operation fans out over every target
// locale; a failed locale fails the operation for that question, but the
// remaining locales are still attempted and their translations kept.
type TranslateExecutor struct {
	completer    ai.Completer
	translations store.TranslationStore
	logger       *slog.Logger
}

// NewTranslateExecutor creates a TranslateExecutor.
func NewTranslateExecutor(completer ai.Completer, translations store.TranslationStore, logger *slog.Logger) *TranslateExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranslateExecutor{
		completer:    completer,
		translations: translations,
		logger:       logger.With(slog.String("executor", "translate")),
	}
}

// Name implements Executor.Name
func (e *TranslateExecutor) Name() domain.OperationName {
	return domain.OperationTranslate
}

// Execute implements Executor.Execute
func (e *TranslateExecutor) Execute(ctx context.Context, question *domain.Question, op domain.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	input := buildTranslationInput(question.Content, question.Options, question.Explanation)

	var errs []error
	for _, target := range op.Translate.To {
		err := e.translateOne(ctx, question, input, op.Translate.From, target)
		if err == nil {
			continue
		}
		errs = append(errs, fmt.Errorf("translate to %s: %w", target, err))
		if errors.Is(err, ai.ErrQuotaExceeded) {
			// The remaining targets would burn the same exhausted quota.
			break
		}
	}

	return errors.Join(errs...)
}

func (e *TranslateExecutor) translateOne(ctx context.Context, question *domain.Question, input, from, to string) error {
	result, err := e.completer.Complete(ctx, ai.Request{
		Scene:          SceneTranslation,
		Input:          input,
		Locale:         to,
		SourceLanguage: from,
		TargetLanguage: to,
	})
	if err != nil {
		return err
	}

	// Some models reply with the bare translated text instead of the
	// requested JSON object. Keep it as the content translation.
	parsed, err := ai.ParseWithTextFallback(result.Text, bodyFields, "content")
	if err != nil {
		return err
	}

	content := strings.TrimSpace(parsed.String("content"))
	options := parsed.StringList("options")
	explanation := parsed.String("explanation")

	if content == "" {
		return fmt.Errorf("%w: translation has no content", ai.ErrInvalidResponse)
	}

	translation, err := domain.NewAITranslation(
		question.ContentHash, to, content, options, explanation)
	if err != nil {
		return err
	}

	if err := e.translations.Upsert(ctx, translation); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "translated question",
		slog.Int64("question_id", question.ID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("provider", result.Provider))

	return nil
}
