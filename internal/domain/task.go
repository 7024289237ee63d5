package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a batch task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// OperationName identifies which transformation an executor applies.
type OperationName string

// Supported operation names
const (
	OperationTranslate    OperationName = "translate"
	OperationPolish       OperationName = "polish"
	OperationFillMissing  OperationName = "fill_missing"
	OperationCategoryTags OperationName = "category_tags"
)

// Common validation errors for BatchTask
var (
	ErrNoOperations         = errors.New("task must request at least one operation")
	ErrMissingTranslateOpts = errors.New("translate options are required for the translate operation")
	ErrMissingPolishOpts    = errors.New("polish options are required for the polish operation")
	ErrInvalidBatchSize     = errors.New("batch size must be positive")
)

// TranslateParams carries the source and target locales for a translate
// operation. To may name several target locales; each is translated in turn.
type TranslateParams struct {
	From string   `json:"from"`
	To   []string `json:"to"`
}

// PolishParams carries the locale whose rendering should be polished.
type PolishParams struct {
	Locale string `json:"locale"`
}

// Operation is a tagged variant identifying one transformation to apply to
// each question in a task. Only the params field matching Name is set;
// fill_missing and category_tags carry no parameters.
type Operation struct {
	Name      OperationName    `json:"name"`
	Translate *TranslateParams `json:"translate,omitempty"`
	Polish    *PolishParams    `json:"polish,omitempty"`
}

// Validate checks that the operation name is known and that the parameters
// its executor needs are present.
func (o Operation) Validate() error {
	switch o.Name {
	case OperationTranslate:
		if o.Translate == nil || o.Translate.From == "" || len(o.Translate.To) == 0 {
			return ErrMissingTranslateOpts
		}
		for _, to := range o.Translate.To {
			if to == "" {
				return fmt.Errorf("%w: empty target locale", ErrMissingTranslateOpts)
			}
		}
	case OperationPolish:
		if o.Polish == nil || o.Polish.Locale == "" {
			return ErrMissingPolishOpts
		}
	case OperationFillMissing, OperationCategoryTags:
		// No parameters.
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOperation, o.Name)
	}
	return nil
}

// TaskError records a failure for one question within a task.
type TaskError struct {
	QuestionID int64  `json:"question_id"`
	Error      string `json:"error"`
}

// TaskDetail summarizes the outcome for one question within a task.
// Operations lists the operation names that completed for the question, in
// execution order. Status is "success" unless any requested operation failed.
type TaskDetail struct {
	QuestionID int64    `json:"question_id"`
	Operations []string `json:"operations"`
	Status     string   `json:"status"`
}

// Outcome values for TaskDetail.Status.
const (
	DetailStatusSuccess = "success"
	DetailStatusFailed  = "failed"
)

// BatchTask is one batch job applying one or more operations across a set of
// questions. QuestionIDs of nil means "all questions". Counters and the
// Errors/Details lists grow monotonically while the task runs; once the task
// reaches a terminal status no further mutation is permitted.
type BatchTask struct {
	TaskID          string       `json:"task_id"`
	Status          TaskStatus   `json:"status"`
	Operations      []Operation  `json:"operations"`
	QuestionIDs     []int64      `json:"question_ids,omitempty"`
	BatchSize       int          `json:"batch_size"`
	ContinueOnError bool         `json:"continue_on_error"`
	Total           int          `json:"total"`
	Processed       int          `json:"processed"`
	Succeeded       int          `json:"succeeded"`
	Failed          int          `json:"failed"`
	CurrentBatch    int          `json:"current_batch"`
	Errors          []TaskError  `json:"errors,omitempty"`
	Details         []TaskDetail `json:"details,omitempty"`
	CreatedBy       string       `json:"created_by,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
}

// DefaultBatchSize is the chunk size used when a request does not specify one.
const DefaultBatchSize = 10

// NewBatchTask creates a pending BatchTask with a fresh task ID.
// Returns an error if validation fails.
func NewBatchTask(operations []Operation, questionIDs []int64, batchSize int, continueOnError bool, createdBy string) (*BatchTask, error) {
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	t := &BatchTask{
		TaskID:          uuid.New().String(),
		Status:          TaskStatusPending,
		Operations:      operations,
		QuestionIDs:     questionIDs,
		BatchSize:       batchSize,
		ContinueOnError: continueOnError,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks if the BatchTask has valid data.
func (t *BatchTask) Validate() error {
	if t.TaskID == "" {
		return ErrInvalidID
	}

	if len(t.Operations) == 0 {
		return ErrNoOperations
	}

	for _, op := range t.Operations {
		if err := op.Validate(); err != nil {
			return err
		}
	}

	if t.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// IsTerminal reports whether the task has reached a final status.
func (t *BatchTask) IsTerminal() bool {
	return IsTerminalTaskStatus(t.Status)
}

// IsActive reports whether the task counts against the single active task
// guard.
func (t *BatchTask) IsActive() bool {
	return t.Status == TaskStatusPending || t.Status == TaskStatusProcessing
}

// IsTerminalTaskStatus reports whether the given status is final.
func IsTerminalTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}
