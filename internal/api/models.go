package api

import (
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
)

// Common request/response structures

// OperationPayload is one requested transformation inside a task or a
// single-record call.
type OperationPayload struct {
	Name      string             `json:"name"                validate:"required,oneof=translate polish fill_missing category_tags"`
	Translate *TranslatePayload  `json:"translate,omitempty" validate:"omitempty"`
	Polish    *PolishOptsPayload `json:"polish,omitempty"    validate:"omitempty"`
}

// TranslatePayload carries the locales for a translate operation.
type TranslatePayload struct {
	From string   `json:"from" validate:"required"`
	To   []string `json:"to"   validate:"required,min=1,dive,required"`
}

// PolishOptsPayload carries the locale for a polish operation.
type PolishOptsPayload struct {
	Locale string `json:"locale" validate:"required"`
}

// toDomain converts the payload to a domain operation. Parameter presence is
// validated by domain.Operation.Validate, not here.
func (p OperationPayload) toDomain() domain.Operation {
	op := domain.Operation{Name: domain.OperationName(p.Name)}
	if p.Translate != nil {
		op.Translate = &domain.TranslateParams{From: p.Translate.From, To: p.Translate.To}
	}
	if p.Polish != nil {
		op.Polish = &domain.PolishParams{Locale: p.Polish.Locale}
	}
	return op
}

// CreateTaskRequest defines the payload for creating a batch task.
type CreateTaskRequest struct {
	Operations      []OperationPayload `json:"operations"        validate:"required,min=1,dive"`
	QuestionIDs     []int64            `json:"question_ids"      validate:"omitempty,dive,gt=0"`
	BatchSize       int                `json:"batch_size"        validate:"gte=0,lte=500"`
	ContinueOnError bool               `json:"continue_on_error"`
}

// RetryTaskRequest names the finished task whose unprocessed questions
// should be submitted as a new task.
type RetryTaskRequest struct {
	TaskID string `json:"task_id" validate:"required"`
}

// TaskResponse is the JSON rendering of a batch task.
type TaskResponse struct {
	TaskID          string              `json:"task_id"`
	Status          string              `json:"status"`
	Operations      []domain.Operation  `json:"operations"`
	QuestionIDs     []int64             `json:"question_ids,omitempty"`
	BatchSize       int                 `json:"batch_size"`
	ContinueOnError bool                `json:"continue_on_error"`
	Total           int                 `json:"total"`
	Processed       int                 `json:"processed"`
	Succeeded       int                 `json:"succeeded"`
	Failed          int                 `json:"failed"`
	CurrentBatch    int                 `json:"current_batch"`
	Errors          []domain.TaskError  `json:"errors,omitempty"`
	Details         []domain.TaskDetail `json:"details,omitempty"`
	CreatedBy       string              `json:"created_by,omitempty"`
	CreatedAt       string              `json:"created_at"`
	StartedAt       string              `json:"started_at,omitempty"`
	CompletedAt     string              `json:"completed_at,omitempty"`
}

// newTaskResponse builds a TaskResponse from a domain task.
func newTaskResponse(task *domain.BatchTask) TaskResponse {
	resp := TaskResponse{
		TaskID:          task.TaskID,
		Status:          string(task.Status),
		Operations:      task.Operations,
		QuestionIDs:     task.QuestionIDs,
		BatchSize:       task.BatchSize,
		ContinueOnError: task.ContinueOnError,
		Total:           task.Total,
		Processed:       task.Processed,
		Succeeded:       task.Succeeded,
		Failed:          task.Failed,
		CurrentBatch:    task.CurrentBatch,
		Errors:          task.Errors,
		Details:         task.Details,
		CreatedBy:       task.CreatedBy,
		CreatedAt:       task.CreatedAt.Format(timeFormat),
	}
	if task.StartedAt != nil {
		resp.StartedAt = task.StartedAt.Format(timeFormat)
	}
	if task.CompletedAt != nil {
		resp.CompletedAt = task.CompletedAt.Format(timeFormat)
	}
	return resp
}

// timeFormat is RFC 3339 with second precision, matching the admin console.
const timeFormat = "2006-01-02T15:04:05Z07:00"

// TaskListResponse wraps a task listing with the total matching count.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// TranslateRequest defines the payload for the synchronous translate endpoint.
type TranslateRequest struct {
	QuestionID int64    `json:"question_id" validate:"required,gt=0"`
	From       string   `json:"from"        validate:"required"`
	To         []string `json:"to"          validate:"required,min=1,dive,required"`
}

// TranslateResponse returns the stored translations after a synchronous
// translate call.
type TranslateResponse struct {
	QuestionID   int64                 `json:"question_id"`
	Translations []*domain.Translation `json:"translations"`
}

// PolishRequest defines the payload for the synchronous polish endpoint.
type PolishRequest struct {
	QuestionID int64  `json:"question_id" validate:"required,gt=0"`
	Locale     string `json:"locale"      validate:"required"`
}

// PolishResponse acknowledges a polish proposal. The proposal itself sits in
// the review queue until approved.
type PolishResponse struct {
	QuestionID int64  `json:"question_id"`
	Locale     string `json:"locale"`
	Status     string `json:"status"`
}

// ReviewListResponse wraps a review listing.
type ReviewListResponse struct {
	Reviews []*domain.PolishReview `json:"reviews"`
}

// DecisionResponse reports the outcome of a review decision.
type DecisionResponse struct {
	ReviewID string `json:"review_id"`
	Status   string `json:"status"`
}
