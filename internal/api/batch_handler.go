package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/api/shared"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// TaskLauncher starts, retries, and cancels batch tasks. Implemented by the
// task orchestrator.
type TaskLauncher interface {
	CreateTask(ctx context.Context, operations []domain.Operation, questionIDs []int64, batchSize int, continueOnError bool, createdBy string) (*domain.BatchTask, error)
	Retry(ctx context.Context, taskID string) (*domain.BatchTask, error)
	Cancel(ctx context.Context, taskID string) error
}

// Listing defaults for GET /batch-process.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// BatchHandler handles the batch task lifecycle endpoints.
type BatchHandler struct {
	launcher  TaskLauncher
	tasks     store.TaskStore
	validator *validator.Validate
	logger    *slog.Logger
}

// NewBatchHandler creates a new BatchHandler with the given dependencies.
func NewBatchHandler(launcher TaskLauncher, tasks store.TaskStore, logger *slog.Logger) *BatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{
		launcher:  launcher,
		tasks:     tasks,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "batch_handler")),
	}
}

// Create handles POST /batch-process.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	operations := make([]domain.Operation, 0, len(req.Operations))
	for _, op := range req.Operations {
		operations = append(operations, op.toDomain())
	}

	createdBy, _ := shared.GetAdminID(r.Context())

	task, err := h.launcher.CreateTask(r.Context(), operations, req.QuestionIDs,
		req.BatchSize, req.ContinueOnError, createdBy)
	if err != nil {
		var activeErr *store.ActiveTaskError
		if errors.As(err, &activeErr) {
			shared.RespondWithJSON(w, r, http.StatusConflict, shared.ErrorResponse{
				Error:             GetSafeErrorMessage(err),
				TraceID:           shared.GetTraceID(r.Context()),
				ConflictingTaskID: activeErr.TaskID,
			})
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, newTaskResponse(task))
}

// Retry handles POST /batch-process/retry. A new task is created over the
// questions the source task never processed.
func (h *BatchHandler) Retry(w http.ResponseWriter, r *http.Request) {
	var req RetryTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.launcher.Retry(r.Context(), req.TaskID)
	if err != nil {
		var activeErr *store.ActiveTaskError
		if errors.As(err, &activeErr) {
			shared.RespondWithJSON(w, r, http.StatusConflict, shared.ErrorResponse{
				Error:             GetSafeErrorMessage(err),
				TraceID:           shared.GetTraceID(r.Context()),
				ConflictingTaskID: activeErr.TaskID,
			})
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, newTaskResponse(task))
}

// Get handles GET /batch-process/{taskID}.
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID is required")
		return
	}

	task, err := h.tasks.GetByID(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(task))
}

// List handles GET /batch-process.
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.TaskFilter{Limit: defaultListLimit}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.TaskStatus(status)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
			return
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid offset")
			return
		}
		filter.Offset = offset
	}

	tasks, total, err := h.tasks.List(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	resp := TaskListResponse{Tasks: make([]TaskResponse, 0, len(tasks)), Total: total}
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, newTaskResponse(task))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Delete handles DELETE /batch-process?taskId=&action=cancel|delete.
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "taskId query parameter is required")
		return
	}

	action := r.URL.Query().Get("action")
	switch action {
	case "", "cancel":
		if err := h.launcher.Cancel(r.Context(), taskID); err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		h.logger.InfoContext(r.Context(), "task cancelled", slog.String("task_id", taskID))
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
			"task_id": taskID,
			"status":  string(domain.TaskStatusCancelled),
		})

	case "delete":
		if err := h.tasks.Delete(r.Context(), taskID); err != nil {
			if errors.Is(err, store.ErrUpdateFailed) {
				shared.RespondWithError(w, r, http.StatusConflict, "Only finished tasks can be deleted")
				return
			}
			HandleAPIError(w, r, err, "")
			return
		}
		h.logger.InfoContext(r.Context(), "task deleted", slog.String("task_id", taskID))
		w.WriteHeader(http.StatusNoContent)

	default:
		shared.RespondWithError(w, r, http.StatusBadRequest, "action must be cancel or delete")
	}
}
