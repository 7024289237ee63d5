package processing

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// FillMissingExecutor asks the model to complete a question's absent body
// fields. Fields that already have a value are never overwritten, whatever
// the model returns for them.
type FillMissingExecutor struct {
	completer ai.Completer
	questions store.QuestionStore
	logger    *slog.Logger
}

// NewFillMissingExecutor creates a FillMissingExecutor.
func NewFillMissingExecutor(completer ai.Completer, questions store.QuestionStore, logger *slog.Logger) *FillMissingExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FillMissingExecutor{
		completer: completer,
		questions: questions,
		logger:    logger.With(slog.String("executor", "fill_missing")),
	}
}

// Name implements Executor.Name
func (e *FillMissingExecutor) Name() domain.OperationName {
	return domain.OperationFillMissing
}

// Execute implements Executor.Execute
func (e *FillMissingExecutor) Execute(ctx context.Context, question *domain.Question, op domain.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	missingContent := strings.TrimSpace(question.Content) == ""
	missingOptions := len(question.Options) == 0
	missingExplanation := strings.TrimSpace(question.Explanation) == ""

	if !missingContent && !missingOptions && !missingExplanation {
		e.logger.DebugContext(ctx, "question already complete",
			slog.Int64("question_id", question.ID))
		return nil
	}

	result, err := e.completer.Complete(ctx, ai.Request{
		Scene: SceneFillMissing,
		Input: buildFillMissingInput(question.Content, question.Options, question.Explanation),
	})
	if err != nil {
		return err
	}

	parsed, err := ai.Parse(result.Text, bodyFields)
	if err != nil {
		return err
	}

	var patch store.QuestionPatch
	var filled []string

	if missingContent {
		if content := strings.TrimSpace(parsed.String("content")); content != "" {
			patch.Content = &content
			filled = append(filled, "content")
		}
	}
	if missingOptions {
		if options := parsed.StringList("options"); len(options) > 0 {
			patch.Options = &options
			filled = append(filled, "options")
		}
	}
	if missingExplanation {
		if explanation := strings.TrimSpace(parsed.String("explanation")); explanation != "" {
			patch.Explanation = &explanation
			filled = append(filled, "explanation")
		}
	}

	if patch.IsEmpty() {
		e.logger.WarnContext(ctx, "response filled none of the missing fields",
			slog.Int64("question_id", question.ID))
		return nil
	}

	if err := e.questions.ApplyPatch(ctx, question.ID, patch); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "filled missing fields",
		slog.Int64("question_id", question.ID),
		slog.Any("fields", filled))

	return nil
}
