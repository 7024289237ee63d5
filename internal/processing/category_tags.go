package processing

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// categoryFields is the response shape of the category/tags scene. Some
// models return license_tags instead of license_types, so both are declared
// and treated as aliases.
var categoryFields = []ai.Field{
	{Name: "category", Kind: ai.KindString},
	{Name: "stage_tag", Kind: ai.KindString},
	{Name: "topic_tags", Kind: ai.KindStringList},
	{Name: "license_types", Kind: ai.KindStringList},
	{Name: "license_tags", Kind: ai.KindStringList},
}

// CategoryTagsExecutor asks the model to classify a question and patches the
// classification fields. Empty or absent response fields leave the existing
// values alone so a weak response cannot erase curated tags.
type CategoryTagsExecutor struct {
	completer ai.Completer
	questions store.QuestionStore
	logger    *slog.Logger
}

// NewCategoryTagsExecutor creates a CategoryTagsExecutor.
func NewCategoryTagsExecutor(completer ai.Completer, questions store.QuestionStore, logger *slog.Logger) *CategoryTagsExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryTagsExecutor{
		completer: completer,
		questions: questions,
		logger:    logger.With(slog.String("executor", "category_tags")),
	}
}

// Name implements Executor.Name
func (e *CategoryTagsExecutor) Name() domain.OperationName {
	return domain.OperationCategoryTags
}

// Execute implements Executor.Execute
func (e *CategoryTagsExecutor) Execute(ctx context.Context, question *domain.Question, op domain.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	result, err := e.completer.Complete(ctx, ai.Request{
		Scene: SceneCategoryTags,
		Input: buildCategoryInput(question.Content, question.Options, question.Explanation),
	})
	if err != nil {
		return err
	}

	parsed, err := ai.Parse(result.Text, categoryFields)
	if err != nil {
		return err
	}

	var patch store.QuestionPatch

	if category := strings.TrimSpace(parsed.String("category")); category != "" {
		patch.Category = &category
	}

	if stageTag, ok := normalizeStageTag(parsed.String("stage_tag")); ok {
		patch.StageTag = &stageTag
	}

	if topicTags := cleanTags(parsed.StringList("topic_tags")); len(topicTags) > 0 {
		patch.TopicTags = &topicTags
	}

	licenseTypes := parsed.StringList("license_types")
	if len(licenseTypes) == 0 {
		licenseTypes = parsed.StringList("license_tags")
	}
	if licenseTypes = cleanTags(licenseTypes); len(licenseTypes) > 0 {
		patch.LicenseTypes = &licenseTypes
	}

	if patch.IsEmpty() {
		e.logger.WarnContext(ctx, "response carried no usable classification",
			slog.Int64("question_id", question.ID))
		return nil
	}

	if err := e.questions.ApplyPatch(ctx, question.ID, patch); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "classified question",
		slog.Int64("question_id", question.ID),
		slog.Bool("has_category", patch.Category != nil),
		slog.Bool("has_stage_tag", patch.StageTag != nil))

	return nil
}

// normalizeStageTag validates a model-reported stage tag. "regular" is an
// older name for the full-license stage that some prompts still produce.
func normalizeStageTag(raw string) (domain.StageTag, bool) {
	tag := domain.StageTag(strings.ToLower(strings.TrimSpace(raw)))
	if tag == "regular" {
		tag = domain.StageTagFull
	}
	if !domain.IsValidStageTag(tag) {
		return "", false
	}
	return tag, true
}

// cleanTags drops empty entries and surrounding whitespace.
func cleanTags(tags []string) []string {
	var cleaned []string
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return cleaned
}
