package processing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
)

func fillMissingOp() domain.Operation {
	return domain.Operation{Name: domain.OperationFillMissing}
}

func TestFillMissingExecutor_FillsOnlyAbsentFields(t *testing.T) {
	t.Parallel()

	question := &domain.Question{
		ID:          7,
		ContentHash: "def456",
		Content:     "夜间会车时应当怎样使用灯光？",
		// Options and explanation are absent.
	}

	completer := &scriptedCompleter{responses: []string{
		`{"content": "REWRITTEN STEM", "options": ["改用近光灯", "保持远光灯"], "explanation": "夜间会车应在150米内改用近光灯。"}`,
	}}
	questions := newFakeQuestionStore(question)
	executor := NewFillMissingExecutor(completer, questions, testLogger())

	require.NoError(t, executor.Execute(context.Background(), question, fillMissingOp()))

	require.Len(t, questions.patches[question.ID], 1)
	patch := questions.patches[question.ID][0]

	// The present content must survive even though the model rewrote it.
	assert.Nil(t, patch.Content)
	require.NotNil(t, patch.Options)
	assert.Equal(t, []string{"改用近光灯", "保持远光灯"}, *patch.Options)
	require.NotNil(t, patch.Explanation)
	assert.Equal(t, "夜间会车应在150米内改用近光灯。", *patch.Explanation)

	require.Len(t, completer.requests, 1)
	assert.Equal(t, SceneFillMissing, completer.requests[0].Scene)
	assert.Contains(t, completer.requests[0].Input, "Options: [missing]")
	assert.Contains(t, completer.requests[0].Input, "Explanation: [missing]")
}

func TestFillMissingExecutor_CompleteQuestionSkipsAICall(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{}
	question := testQuestion()
	questions := newFakeQuestionStore(question)
	executor := NewFillMissingExecutor(completer, questions, testLogger())

	require.NoError(t, executor.Execute(context.Background(), question, fillMissingOp()))

	assert.Empty(t, completer.requests)
	assert.Empty(t, questions.patches[question.ID])
}

func TestFillMissingExecutor_EmptyResponseFieldsPatchNothing(t *testing.T) {
	t.Parallel()

	question := &domain.Question{ID: 8, ContentHash: "ghi789", Content: "题干"}
	completer := &scriptedCompleter{responses: []string{`{"content": "", "options": []}`}}
	questions := newFakeQuestionStore(question)
	executor := NewFillMissingExecutor(completer, questions, testLogger())

	require.NoError(t, executor.Execute(context.Background(), question, fillMissingOp()))
	assert.Empty(t, questions.patches[question.ID])
}
