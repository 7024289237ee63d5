package processing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
)

func categoryTagsOp() domain.Operation {
	return domain.Operation{Name: domain.OperationCategoryTags}
}

func TestCategoryTagsExecutor_PatchesClassification(t *testing.T) {
	t.Parallel()

	question := testQuestion()
	completer := &scriptedCompleter{responses: []string{
		`{"category": "高速公路行驶", "stage_tag": "both", "topic_tags": ["车速", "高速公路"], "license_types": ["C1", "C2"]}`,
	}}
	questions := newFakeQuestionStore(question)
	executor := NewCategoryTagsExecutor(completer, questions, testLogger())

	require.NoError(t, executor.Execute(context.Background(), question, categoryTagsOp()))

	require.Len(t, questions.patches[question.ID], 1)
	patch := questions.patches[question.ID][0]

	require.NotNil(t, patch.Category)
	assert.Equal(t, "高速公路行驶", *patch.Category)
	require.NotNil(t, patch.StageTag)
	assert.Equal(t, domain.StageTagBoth, *patch.StageTag)
	require.NotNil(t, patch.TopicTags)
	assert.Equal(t, []string{"车速", "高速公路"}, *patch.TopicTags)
	require.NotNil(t, patch.LicenseTypes)
	assert.Equal(t, []string{"C1", "C2"}, *patch.LicenseTypes)

	require.Len(t, completer.requests, 1)
	assert.Equal(t, SceneCategoryTags, completer.requests[0].Scene)
}

func TestCategoryTagsExecutor_NormalizesLegacyStageTag(t *testing.T) {
	t.Parallel()

	question := testQuestion()
	completer := &scriptedCompleter{responses: []string{`{"stage_tag": "regular"}`}}
	questions := newFakeQuestionStore(question)
	executor := NewCategoryTagsExecutor(completer, questions, testLogger())

	require.NoError(t, executor.Execute(context.Background(), question, categoryTagsOp()))

	require.Len(t, questions.patches[question.ID], 1)
	patch := questions.patches[question.ID][0]
	require.NotNil(t, patch.StageTag)
	assert.Equal(t, domain.StageTagFull, *patch.StageTag)
}

func TestCategoryTagsExecutor_LicenseTagsAlias(t *testing.T) {
	t.Parallel()

	question := testQuestion()
	completer := &scriptedCompleter{responses: []string{`{"license_tags": ["A1"]}`}}
	questions := newFakeQuestionStore(question)
	executor := NewCategoryTagsExecutor(completer, questions, testLogger())

	require.NoError(t, executor.Execute(context.Background(), question, categoryTagsOp()))

	require.Len(t, questions.patches[question.ID], 1)
	patch := questions.patches[question.ID][0]
	require.NotNil(t, patch.LicenseTypes)
	assert.Equal(t, []string{"A1"}, *patch.LicenseTypes)
}

func TestCategoryTagsExecutor_EmptyResponseLeavesTagsAlone(t *testing.T) {
	t.Parallel()

	question := testQuestion()
	question.TopicTags = []string{"existing"}
	completer := &scriptedCompleter{responses: []string{
		`{"category": "", "stage_tag": "unknown", "topic_tags": [], "license_types": []}`,
	}}
	questions := newFakeQuestionStore(question)
	executor := NewCategoryTagsExecutor(completer, questions, testLogger())

	require.NoError(t, executor.Execute(context.Background(), question, categoryTagsOp()))
	assert.Empty(t, questions.patches[question.ID])
}
