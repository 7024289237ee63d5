package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/processing"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// resolvePageSize is the keyset page size used when a task targets the whole
// question table.
const resolvePageSize = 200

// OrchestratorConfig holds configuration for the orchestrator.
type OrchestratorConfig struct {
	// PageSize overrides the keyset page size used to resolve a whole-table
	// target set. Zero keeps the default.
	PageSize int
}

// Orchestrator owns the batch task lifecycle: creation, background
// execution, and graceful shutdown. At most one task is active at a time;
// the store enforces the guard, so concurrent creates race safely.
type Orchestrator struct {
	tasks     store.TaskStore
	questions store.QuestionStore
	registry  processing.Registry
	logger    *slog.Logger
	pageSize  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator.
// If logger is nil, a default logger will be used.
func NewOrchestrator(tasks store.TaskStore, questions store.QuestionStore, registry processing.Registry, cfg OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = resolvePageSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		tasks:     tasks,
		questions: questions,
		registry:  registry,
		logger:    logger.With(slog.String("component", "task_orchestrator")),
		pageSize:  pageSize,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// CreateTask validates and persists a new batch task, resolves its target
// questions, and starts executing it in the background. The returned task is
// a snapshot in processing status with the resolved total, so the caller can
// report real numbers immediately.
// Returns a *store.ActiveTaskError when another task is already active.
func (o *Orchestrator) CreateTask(ctx context.Context, operations []domain.Operation, questionIDs []int64, batchSize int, continueOnError bool, createdBy string) (*domain.BatchTask, error) {
	task, err := domain.NewBatchTask(operations, questionIDs, batchSize, continueOnError, createdBy)
	if err != nil {
		return nil, err
	}

	if err := o.tasks.CreateActive(ctx, task); err != nil {
		return nil, err
	}

	questions, err := o.startTask(ctx, task)
	if err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "batch task started",
		slog.String("task_id", task.TaskID),
		slog.Int("operations", len(task.Operations)),
		slog.Int("total", task.Total),
		slog.Bool("continue_on_error", task.ContinueOnError))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(o.ctx, task, questions)
	}()

	return task, nil
}

// startTask resolves the target questions and flips the just-created task to
// processing, updating the snapshot in place. A failure here finalizes the
// task as failed so the active-task guard is released.
func (o *Orchestrator) startTask(ctx context.Context, task *domain.BatchTask) ([]*domain.Question, error) {
	questions, err := o.resolveTargets(ctx, task)
	if err != nil {
		o.finalize(ctx, task.TaskID, domain.TaskStatusFailed, store.TaskProgress{
			Errors: []domain.TaskError{{Error: fmt.Sprintf("failed to resolve targets: %v", err)}},
		}, o.logger.With(slog.String("task_id", task.TaskID)))
		return nil, fmt.Errorf("failed to resolve targets: %w", err)
	}

	if err := o.tasks.MarkProcessing(ctx, task.TaskID, len(questions)); err != nil {
		if !errors.Is(err, store.ErrTaskFinalized) {
			o.finalize(ctx, task.TaskID, domain.TaskStatusFailed, store.TaskProgress{
				Errors: []domain.TaskError{{Error: fmt.Sprintf("failed to start task: %v", err)}},
			}, o.logger.With(slog.String("task_id", task.TaskID)))
		}
		return nil, fmt.Errorf("failed to start task: %w", err)
	}

	now := time.Now().UTC()
	task.Status = domain.TaskStatusProcessing
	task.Total = len(questions)
	task.StartedAt = &now
	return questions, nil
}

// Retry builds and starts a new task covering the questions a failed or
// cancelled task never processed. The source task must carry an explicit
// question ID list; a whole-table task has no reliable record of what was
// left, so it cannot be retried.
// Returns domain.ErrTaskNotRetryable when the source does not qualify.
func (o *Orchestrator) Retry(ctx context.Context, taskID string) (*domain.BatchTask, error) {
	source, err := o.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	switch source.Status {
	case domain.TaskStatusFailed, domain.TaskStatusCancelled:
	default:
		return nil, fmt.Errorf("%w: status is %s", domain.ErrTaskNotRetryable, source.Status)
	}

	if len(source.QuestionIDs) == 0 {
		return nil, fmt.Errorf("%w: the task targeted all questions", domain.ErrTaskNotRetryable)
	}

	remaining := unprocessedIDs(source)
	if len(remaining) == 0 {
		return nil, fmt.Errorf("%w: every question was already processed", domain.ErrTaskNotRetryable)
	}

	o.logger.InfoContext(ctx, "retrying batch task",
		slog.String("source_task_id", source.TaskID),
		slog.Int("remaining", len(remaining)))

	return o.CreateTask(ctx, source.Operations, remaining, source.BatchSize,
		source.ContinueOnError, source.CreatedBy)
}

// unprocessedIDs returns the source task's question IDs that have no detail
// entry, in their original order.
func unprocessedIDs(source *domain.BatchTask) []int64 {
	processed := make(map[int64]struct{}, len(source.Details))
	for _, detail := range source.Details {
		processed[detail.QuestionID] = struct{}{}
	}

	var remaining []int64
	for _, id := range source.QuestionIDs {
		if _, ok := processed[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	return remaining
}

// Cancel requests cancellation of an active task. The execution loop stops
// at the next question boundary; progress persisted so far is kept.
func (o *Orchestrator) Cancel(ctx context.Context, taskID string) error {
	return o.tasks.Cancel(ctx, taskID)
}

// Stop waits for the running task goroutine to observe shutdown and return.
// The task itself stays in the store; RecoverInterrupted deals with it on
// the next start.
func (o *Orchestrator) Stop() {
	o.cancel()
	o.wg.Wait()
}

// RecoverInterrupted finalizes tasks left active by a previous process. An
// interrupted run cannot be resumed safely, some of its operations may have
// already been applied, so the task is failed and the operator decides
// whether to submit a new one.
func (o *Orchestrator) RecoverInterrupted(ctx context.Context) error {
	for _, status := range []domain.TaskStatus{domain.TaskStatusPending, domain.TaskStatusProcessing} {
		stale, _, err := o.tasks.List(ctx, store.TaskFilter{Status: status})
		if err != nil {
			return fmt.Errorf("failed to list %s tasks: %w", status, err)
		}

		for _, task := range stale {
			progress := progressOf(task)
			progress.Errors = append(progress.Errors, domain.TaskError{
				Error: "task interrupted by process restart",
			})

			if err := o.tasks.Finalize(ctx, task.TaskID, domain.TaskStatusFailed, progress); err != nil {
				return fmt.Errorf("failed to finalize interrupted task %s: %w", task.TaskID, err)
			}

			o.logger.WarnContext(ctx, "finalized interrupted task",
				slog.String("task_id", task.TaskID),
				slog.String("previous_status", string(status)),
				slog.Int("processed", task.Processed))
		}
	}

	return nil
}

// run executes a task to completion. It never returns an error; every
// failure path finalizes the task and logs.
func (o *Orchestrator) run(ctx context.Context, task *domain.BatchTask, questions []*domain.Question) {
	logger := o.logger.With(slog.String("task_id", task.TaskID))

	operations := orderOperations(task.Operations)

	var progress store.TaskProgress
	for i, question := range questions {
		progress.CurrentBatch = i/task.BatchSize + 1

		if o.shouldStop(ctx, task.TaskID, logger) {
			return
		}

		detail, firstErr := o.processQuestion(ctx, question, operations, logger)

		progress.Processed++
		if detail.Status == domain.DetailStatusSuccess {
			progress.Succeeded++
		} else {
			progress.Failed++
			progress.Errors = append(progress.Errors, domain.TaskError{
				QuestionID: question.ID,
				Error:      firstErr.Error(),
			})
		}
		progress.Details = append(progress.Details, detail)

		if err := o.tasks.UpdateProgress(ctx, task.TaskID, progress); err != nil {
			if errors.Is(err, store.ErrTaskFinalized) {
				logger.InfoContext(ctx, "task finalized concurrently, stopping",
					slog.Int("processed", progress.Processed))
				return
			}
			// Counters that cannot be persisted cannot be trusted either;
			// the task must not end completed on top of stale numbers.
			logger.ErrorContext(ctx, "failed to persist progress, failing task",
				slog.Int("processed", progress.Processed),
				slog.String("error", err.Error()))
			progress.Errors = append(progress.Errors, domain.TaskError{
				QuestionID: question.ID,
				Error:      fmt.Sprintf("failed to persist progress: %v", err),
			})
			o.finalize(ctx, task.TaskID, domain.TaskStatusFailed, progress, logger)
			return
		}

		if firstErr != nil && o.mustAbort(firstErr, task.ContinueOnError) {
			logger.WarnContext(ctx, "aborting batch task",
				slog.Int64("question_id", question.ID),
				slog.String("error", firstErr.Error()))
			o.finalize(ctx, task.TaskID, domain.TaskStatusFailed, progress, logger)
			return
		}
	}

	o.finalize(ctx, task.TaskID, domain.TaskStatusCompleted, progress, logger)
}

// processQuestion applies every operation to one question and reports the
// outcome. The first error is returned; with multiple operations the
// remaining ones still run unless the failure is a quota exhaustion, which
// would fail them all the same way.
func (o *Orchestrator) processQuestion(ctx context.Context, question *domain.Question, operations []domain.Operation, logger *slog.Logger) (domain.TaskDetail, error) {
	detail := domain.TaskDetail{
		QuestionID: question.ID,
		Status:     domain.DetailStatusSuccess,
	}

	var firstErr error
	current := question
	for i, op := range operations {
		// Later operations must see what earlier ones wrote; translate in
		// particular runs last so it renders the filled and classified body.
		if i > 0 {
			if fresh, err := o.questions.GetByID(ctx, question.ID); err == nil {
				current = fresh
			}
		}

		executor, err := o.registry.Get(op.Name)
		if err == nil {
			err = executor.Execute(ctx, current, op)
		}

		if err != nil {
			logger.WarnContext(ctx, "operation failed",
				slog.Int64("question_id", question.ID),
				slog.String("operation", string(op.Name)),
				slog.String("error", err.Error()))
			detail.Status = domain.DetailStatusFailed
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", op.Name, err)
			}
			if errors.Is(err, ai.ErrQuotaExceeded) {
				break
			}
			continue
		}

		detail.Operations = append(detail.Operations, string(op.Name))
	}

	return detail, firstErr
}

// shouldStop checks for shutdown and cooperative cancellation between
// questions.
func (o *Orchestrator) shouldStop(ctx context.Context, taskID string, logger *slog.Logger) bool {
	select {
	case <-ctx.Done():
		logger.InfoContext(ctx, "shutdown requested, leaving task for recovery")
		return true
	default:
	}

	status, err := o.tasks.GetStatus(ctx, taskID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read task status",
			slog.String("error", err.Error()))
		return true
	}

	if domain.IsTerminalTaskStatus(status) {
		logger.InfoContext(ctx, "task no longer active, stopping",
			slog.String("status", string(status)))
		return true
	}

	return false
}

// mustAbort decides whether a question failure ends the whole task. Quota
// exhaustion always aborts; nothing recovers within the task's lifetime and
// every further call would burn the same failure.
func (o *Orchestrator) mustAbort(err error, continueOnError bool) bool {
	if errors.Is(err, ai.ErrQuotaExceeded) {
		return true
	}
	return !continueOnError
}

func (o *Orchestrator) finalize(ctx context.Context, taskID string, status domain.TaskStatus, progress store.TaskProgress, logger *slog.Logger) {
	if err := o.tasks.Finalize(ctx, taskID, status, progress); err != nil {
		if errors.Is(err, store.ErrTaskFinalized) {
			return
		}
		logger.ErrorContext(ctx, "failed to finalize task",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
	}
}

// resolveTargets loads the questions the task operates on: the explicit ID
// list when one was given, the whole table in keyset pages otherwise.
func (o *Orchestrator) resolveTargets(ctx context.Context, task *domain.BatchTask) ([]*domain.Question, error) {
	if len(task.QuestionIDs) > 0 {
		return o.questions.GetByIDs(ctx, task.QuestionIDs)
	}

	var all []*domain.Question
	var afterID int64
	for {
		page, err := o.questions.ListPage(ctx, afterID, o.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		afterID = page[len(page)-1].ID
	}
}

// orderOperations returns the operations with translate moved last, other
// order preserved. Translation reads the question body, so body-changing
// operations must run first or the new locales would render stale text.
func orderOperations(operations []domain.Operation) []domain.Operation {
	ordered := make([]domain.Operation, len(operations))
	copy(ordered, operations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Name != domain.OperationTranslate &&
			ordered[j].Name == domain.OperationTranslate
	})
	return ordered
}

// progressOf snapshots a stored task's counters as a TaskProgress.
func progressOf(task *domain.BatchTask) store.TaskProgress {
	return store.TaskProgress{
		Processed:    task.Processed,
		Succeeded:    task.Succeeded,
		Failed:       task.Failed,
		CurrentBatch: task.CurrentBatch,
		Errors:       task.Errors,
		Details:      task.Details,
	}
}
