package processing

import (
	"context"
	"fmt"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
)

// Executor applies one operation to one question. Implementations own their
// writes: an executor either persists its outcome or returns an error, and a
// returned error never leaves partial state behind for that question.
type Executor interface {
	// Name returns the operation this executor handles.
	Name() domain.OperationName

	// Execute applies the operation to the question. The op argument carries
	// the operation parameters; its Name always matches Name().
	Execute(ctx context.Context, question *domain.Question, op domain.Operation) error
}

// Registry maps operation names to their executors.
type Registry map[domain.OperationName]Executor

// NewRegistry builds a Registry from the given executors.
// Returns an error if two executors claim the same operation.
func NewRegistry(executors ...Executor) (Registry, error) {
	registry := make(Registry, len(executors))
	for _, executor := range executors {
		name := executor.Name()
		if _, exists := registry[name]; exists {
			return nil, fmt.Errorf("duplicate executor for operation %q", name)
		}
		registry[name] = executor
	}
	return registry, nil
}

// Get returns the executor for an operation name.
func (r Registry) Get(name domain.OperationName) (Executor, error) {
	executor, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: no executor for %q", domain.ErrInvalidOperation, name)
	}
	return executor, nil
}

// bodyFields is the response shape shared by the translate, polish, and
// fill_missing scenes.
var bodyFields = []ai.Field{
	{Name: "content", Kind: ai.KindString},
	{Name: "options", Kind: ai.KindStringList},
	{Name: "explanation", Kind: ai.KindString},
}
