package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// singleActiveIndex is the partial unique index that admits at most one
// pending or processing task at a time. CreateActive relies on its violation
// to detect a concurrent active task.
const singleActiveIndex = "batch_process_tasks_single_active_idx"

const taskColumns = `task_id, status, operations, question_ids, batch_size,
	continue_on_error, total, processed, succeeded, failed, current_batch,
	errors, details, created_by, created_at, updated_at, started_at, completed_at`

// activeStatuses matches the index predicate; guarded updates reuse it so a
// finalized task can never be mutated.
var activeStatuses = []domain.TaskStatus{
	domain.TaskStatusPending,
	domain.TaskStatusProcessing,
}

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// CreateActive implements store.TaskStore.CreateActive
// The single-active-task guard lives in the database, so two processes
// racing to create a task cannot both succeed.
func (s *PostgresTaskStore) CreateActive(ctx context.Context, task *domain.BatchTask) error {
	operations, err := marshalJSONB(task.Operations)
	if err != nil {
		return err
	}
	questionIDs, err := marshalJSONB(task.QuestionIDs)
	if err != nil {
		return err
	}
	taskErrors, err := marshalJSONB(task.Errors)
	if err != nil {
		return err
	}
	details, err := marshalJSONB(task.Details)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO batch_process_tasks
			(task_id, status, operations, question_ids, batch_size,
			 continue_on_error, total, processed, succeeded, failed,
			 current_batch, errors, details, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = s.db.ExecContext(ctx, query,
		task.TaskID,
		task.Status,
		operations,
		questionIDs,
		task.BatchSize,
		task.ContinueOnError,
		task.Total,
		task.Processed,
		task.Succeeded,
		task.Failed,
		task.CurrentBatch,
		taskErrors,
		details,
		task.CreatedBy,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err, singleActiveIndex) {
			activeID, lookupErr := s.activeTaskID(ctx)
			if lookupErr != nil {
				s.logger.WarnContext(ctx, "active task lookup failed after conflict",
					slog.String("error", lookupErr.Error()))
			}
			return &store.ActiveTaskError{TaskID: activeID}
		}
		return fmt.Errorf("failed to create task: %w", MapError(err))
	}

	s.logger.InfoContext(ctx, "created batch task",
		slog.String("task_id", task.TaskID),
		slog.Int("operations", len(task.Operations)))

	return nil
}

// activeTaskID returns the ID of the currently pending or processing task.
func (s *PostgresTaskStore) activeTaskID(ctx context.Context) (string, error) {
	query := `
		SELECT task_id FROM batch_process_tasks
		WHERE status IN ($1, $2)
		LIMIT 1
	`

	var taskID string
	err := s.db.QueryRowContext(ctx, query,
		domain.TaskStatusPending, domain.TaskStatusProcessing).Scan(&taskID)
	if err != nil {
		return "", MapError(err)
	}
	return taskID, nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, taskID string) (*domain.BatchTask, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM batch_process_tasks WHERE task_id = $1`, taskColumns)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}

	return task, nil
}

// GetStatus implements store.TaskStore.GetStatus
func (s *PostgresTaskStore) GetStatus(ctx context.Context, taskID string) (domain.TaskStatus, error) {
	var status domain.TaskStatus
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM batch_process_tasks WHERE task_id = $1`, taskID).
		Scan(&status)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return "", store.ErrTaskNotFound
		}
		return "", fmt.Errorf("failed to get task status: %w", MapError(err))
	}
	return status, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.BatchTask, int, error) {
	countBuilder := sq.Select("COUNT(*)").
		From("batch_process_tasks").
		PlaceholderFormat(sq.Dollar)

	listBuilder := sq.Select(taskColumns).
		From("batch_process_tasks").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.Status != "" {
		countBuilder = countBuilder.Where(sq.Eq{"status": filter.Status})
		listBuilder = listBuilder.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Limit > 0 {
		listBuilder = listBuilder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		listBuilder = listBuilder.Offset(uint64(filter.Offset))
	}

	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build task count query: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", MapError(err))
	}

	query, args, err := listBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build task list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.BatchTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, total, nil
}

// MarkProcessing implements store.TaskStore.MarkProcessing
func (s *PostgresTaskStore) MarkProcessing(ctx context.Context, taskID string, total int) error {
	query := `
		UPDATE batch_process_tasks
		SET status = $1, total = $2, started_at = NOW(), updated_at = NOW()
		WHERE task_id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusProcessing, total, taskID, domain.TaskStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark task processing: %w", MapError(err))
	}

	return s.mapGuardedUpdate(ctx, result, taskID)
}

// UpdateProgress implements store.TaskStore.UpdateProgress
// The status guard keeps a cancelled or finalized task immutable even if the
// execution loop has a write in flight.
func (s *PostgresTaskStore) UpdateProgress(ctx context.Context, taskID string, progress store.TaskProgress) error {
	taskErrors, err := marshalJSONB(progress.Errors)
	if err != nil {
		return err
	}
	details, err := marshalJSONB(progress.Details)
	if err != nil {
		return err
	}

	query := `
		UPDATE batch_process_tasks
		SET processed = $1, succeeded = $2, failed = $3, current_batch = $4,
		    errors = $5, details = $6, updated_at = NOW()
		WHERE task_id = $7 AND status IN ($8, $9)
	`

	result, err := s.db.ExecContext(ctx, query,
		progress.Processed,
		progress.Succeeded,
		progress.Failed,
		progress.CurrentBatch,
		taskErrors,
		details,
		taskID,
		activeStatuses[0],
		activeStatuses[1],
	)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", MapError(err))
	}

	return s.mapGuardedUpdate(ctx, result, taskID)
}

// Finalize implements store.TaskStore.Finalize
func (s *PostgresTaskStore) Finalize(ctx context.Context, taskID string, status domain.TaskStatus, progress store.TaskProgress) error {
	if !domain.IsTerminalTaskStatus(status) {
		return fmt.Errorf("%w: %q is not a terminal status", domain.ErrInvalidTaskStatus, status)
	}

	taskErrors, err := marshalJSONB(progress.Errors)
	if err != nil {
		return err
	}
	details, err := marshalJSONB(progress.Details)
	if err != nil {
		return err
	}

	query := `
		UPDATE batch_process_tasks
		SET status = $1, processed = $2, succeeded = $3, failed = $4,
		    current_batch = $5, errors = $6, details = $7,
		    completed_at = NOW(), updated_at = NOW()
		WHERE task_id = $8 AND status IN ($9, $10)
	`

	result, err := s.db.ExecContext(ctx, query,
		status,
		progress.Processed,
		progress.Succeeded,
		progress.Failed,
		progress.CurrentBatch,
		taskErrors,
		details,
		taskID,
		activeStatuses[0],
		activeStatuses[1],
	)
	if err != nil {
		return fmt.Errorf("failed to finalize task: %w", MapError(err))
	}

	if err := s.mapGuardedUpdate(ctx, result, taskID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "task finalized",
		slog.String("task_id", taskID),
		slog.String("status", string(status)),
		slog.Int("processed", progress.Processed),
		slog.Int("succeeded", progress.Succeeded),
		slog.Int("failed", progress.Failed))

	return nil
}

// Cancel implements store.TaskStore.Cancel
func (s *PostgresTaskStore) Cancel(ctx context.Context, taskID string) error {
	query := `
		UPDATE batch_process_tasks
		SET status = $1, completed_at = NOW(), updated_at = NOW()
		WHERE task_id = $2 AND status IN ($3, $4)
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusCancelled, taskID, activeStatuses[0], activeStatuses[1])
	if err != nil {
		return fmt.Errorf("failed to cancel task: %w", MapError(err))
	}

	if err := s.mapGuardedUpdate(ctx, result, taskID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "task cancelled", slog.String("task_id", taskID))

	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, taskID string) error {
	status, err := s.GetStatus(ctx, taskID)
	if err != nil {
		return err
	}
	if !domain.IsTerminalTaskStatus(status) {
		return fmt.Errorf("%w: task is still %s", store.ErrUpdateFailed, status)
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM batch_process_tasks WHERE task_id = $1 AND status NOT IN ($2, $3)`,
		taskID, activeStatuses[0], activeStatuses[1])
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	return nil
}

// mapGuardedUpdate interprets a zero-row guarded update: the task either does
// not exist or already reached a terminal status.
func (s *PostgresTaskStore) mapGuardedUpdate(ctx context.Context, result sql.Result, taskID string) error {
	if err := CheckRowsAffected(result, ""); err == nil {
		return nil
	}

	if _, getErr := s.GetStatus(ctx, taskID); getErr != nil {
		return getErr
	}
	return store.ErrTaskFinalized
}

func scanTask(row rowScanner) (*domain.BatchTask, error) {
	var t domain.BatchTask
	var operations, questionIDs, taskErrors, details []byte
	var createdBy sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&t.TaskID,
		&t.Status,
		&operations,
		&questionIDs,
		&t.BatchSize,
		&t.ContinueOnError,
		&t.Total,
		&t.Processed,
		&t.Succeeded,
		&t.Failed,
		&t.CurrentBatch,
		&taskErrors,
		&details,
		&createdBy,
		&t.CreatedAt,
		&t.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedBy = createdBy.String
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}

	if err := unmarshalJSONB(operations, &t.Operations); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(questionIDs, &t.QuestionIDs); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(taskErrors, &t.Errors); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(details, &t.Details); err != nil {
		return nil, err
	}

	return &t, nil
}
