package store

import (
	"context"
	"database/sql"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
)

// TaskProgress is one incremental progress write for a running task. The
// orchestrator persists it after every processed question so a concurrent
// status read always reflects the latest completed record.
type TaskProgress struct {
	Processed    int
	Succeeded    int
	Failed       int
	CurrentBatch int
	Errors       []domain.TaskError
	Details      []domain.TaskDetail
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	Status domain.TaskStatus
	Limit  int
	Offset int
}

// TaskStore defines the interface for batch task persistence. The store, not
// the orchestrator process, owns the single-active-task guard: CreateActive
// must fail for a second active task even if two processes race.
type TaskStore interface {
	// CreateActive inserts a new task in pending status. If another task is
	// already pending or processing it returns an *ActiveTaskError naming the
	// conflicting task ID (wrapping ErrActiveTaskExists).
	CreateActive(ctx context.Context, task *domain.BatchTask) error

	// GetByID retrieves the full task record.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, taskID string) (*domain.BatchTask, error)

	// GetStatus reads only the current status. Used by the execution loop as
	// its cooperative cancellation check between records.
	GetStatus(ctx context.Context, taskID string) (domain.TaskStatus, error)

	// List retrieves tasks newest first, with an optional status filter, and
	// returns the total row count matching the filter.
	List(ctx context.Context, filter TaskFilter) ([]*domain.BatchTask, int, error)

	// MarkProcessing transitions a pending task to processing and records the
	// resolved target-set size and the start timestamp.
	// Returns ErrTaskFinalized if the task is no longer active.
	MarkProcessing(ctx context.Context, taskID string, total int) error

	// UpdateProgress persists counters and the errors/details lists for a
	// running task. The update is guarded: it only applies while the task is
	// still active, so a cancelled or finalized task is never mutated.
	// Returns ErrTaskFinalized if the guard rejected the write.
	UpdateProgress(ctx context.Context, taskID string, progress TaskProgress) error

	// Finalize moves an active task to a terminal status together with its
	// final counters, and stamps completed_at. Terminal states are final:
	// returns ErrTaskFinalized if the task already reached one.
	Finalize(ctx context.Context, taskID string, status domain.TaskStatus, progress TaskProgress) error

	// Cancel marks an active task cancelled. The execution loop observes the
	// new status at the next record boundary and stops.
	// Returns ErrTaskFinalized if the task is not pending or processing.
	Cancel(ctx context.Context, taskID string) error

	// Delete removes a terminal task.
	// Returns ErrUpdateFailed if the task is still active.
	Delete(ctx context.Context, taskID string) error

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
