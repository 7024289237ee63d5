package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchTask(t *testing.T) {
	t.Parallel()

	translateOp := Operation{
		Name:      OperationTranslate,
		Translate: &TranslateParams{From: "zh", To: []string{"ja"}},
	}

	t.Run("creates pending task with defaults", func(t *testing.T) {
		task, err := NewBatchTask([]Operation{translateOp}, []int64{42}, 0, true, "admin-1")

		require.NoError(t, err)
		assert.NotEmpty(t, task.TaskID)
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.Equal(t, DefaultBatchSize, task.BatchSize)
		assert.True(t, task.ContinueOnError)
		assert.Equal(t, []int64{42}, task.QuestionIDs)
		assert.False(t, task.IsTerminal())
		assert.True(t, task.IsActive())
	})

	t.Run("fails without operations", func(t *testing.T) {
		task, err := NewBatchTask(nil, nil, 10, true, "")

		assert.ErrorIs(t, err, ErrNoOperations)
		assert.Nil(t, task)
	})

	t.Run("fails with negative batch size", func(t *testing.T) {
		task, err := NewBatchTask([]Operation{translateOp}, nil, -1, true, "")

		assert.ErrorIs(t, err, ErrInvalidBatchSize)
		assert.Nil(t, task)
	})

	t.Run("unique task IDs", func(t *testing.T) {
		first, err := NewBatchTask([]Operation{translateOp}, nil, 10, true, "")
		require.NoError(t, err)
		second, err := NewBatchTask([]Operation{translateOp}, nil, 10, true, "")
		require.NoError(t, err)

		assert.NotEqual(t, first.TaskID, second.TaskID)
	})
}

func TestOperationValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		op      Operation
		wantErr error
	}{
		{
			name: "valid translate",
			op: Operation{
				Name:      OperationTranslate,
				Translate: &TranslateParams{From: "zh", To: []string{"ja", "en"}},
			},
		},
		{
			name:    "translate without params",
			op:      Operation{Name: OperationTranslate},
			wantErr: ErrMissingTranslateOpts,
		},
		{
			name: "translate with empty target",
			op: Operation{
				Name:      OperationTranslate,
				Translate: &TranslateParams{From: "zh", To: []string{""}},
			},
			wantErr: ErrMissingTranslateOpts,
		},
		{
			name: "valid polish",
			op:   Operation{Name: OperationPolish, Polish: &PolishParams{Locale: "zh"}},
		},
		{
			name:    "polish without locale",
			op:      Operation{Name: OperationPolish, Polish: &PolishParams{}},
			wantErr: ErrMissingPolishOpts,
		},
		{
			name: "fill_missing takes no params",
			op:   Operation{Name: OperationFillMissing},
		},
		{
			name: "category_tags takes no params",
			op:   Operation{Name: OperationCategoryTags},
		},
		{
			name:    "unknown operation",
			op:      Operation{Name: "summarize"},
			wantErr: ErrInvalidOperation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOperationJSONRoundTrip(t *testing.T) {
	t.Parallel()

	ops := []Operation{
		{Name: OperationTranslate, Translate: &TranslateParams{From: "zh", To: []string{"ja"}}},
		{Name: OperationPolish, Polish: &PolishParams{Locale: "en"}},
		{Name: OperationFillMissing},
		{Name: OperationCategoryTags},
	}

	data, err := json.Marshal(ops)
	require.NoError(t, err)

	var decoded []Operation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ops, decoded)
}

func TestIsTerminalTaskStatus(t *testing.T) {
	t.Parallel()

	assert.False(t, IsTerminalTaskStatus(TaskStatusPending))
	assert.False(t, IsTerminalTaskStatus(TaskStatusProcessing))
	assert.True(t, IsTerminalTaskStatus(TaskStatusCompleted))
	assert.True(t, IsTerminalTaskStatus(TaskStatusFailed))
	assert.True(t, IsTerminalTaskStatus(TaskStatusCancelled))
}
