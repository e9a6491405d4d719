package process

import "context"

// WorkItem is a unit of work produced by a runtime for delegation to an
// external handler.
type WorkItem struct {
	// ID is a unique identifier for the work item.
	ID string

	// Name identifies the handler responsible for the work item.
	Name string

	// NodeID identifies the node within the definition that produced the
	// work item.
	NodeID string

	// ProcessInstanceID is the ID of the instance that produced the work
	// item.
	ProcessInstanceID string

	// ProcessDefinitionID is the ID of the definition of that instance.
	ProcessDefinitionID string

	// Parameters are the input values supplied by the runtime.
	Parameters map[string]any

	// Results are the output values produced when the work item is
	// completed.
	Results map[string]any
}

// Transition describes how a work item progresses through its handler.
type Transition struct {
	// ID identifies the transition.
	ID string

	// Data carries the values associated with the transition. On completion
	// transitions it becomes the work item's results.
	Data map[string]any

	// UserDriven is false when the transition was initiated by the engine
	// itself, such as a deadline firing, rather than by a user action.
	UserDriven bool
}

// Standard transition IDs.
const (
	// TransitionActivate is applied when a work item is first handed to its
	// handler.
	TransitionActivate = "activate"

	// TransitionComplete is applied when a work item is finished normally.
	TransitionComplete = "complete"

	// TransitionAbort is applied when a work item is cancelled.
	TransitionAbort = "abort"
)

// Manager is the interface via which a handler reports the outcome of a work
// item back to the instance that produced it.
type Manager interface {
	// CompleteWorkItem finishes the work item with the given ID on behalf of
	// a user, merging data into the execution context.
	CompleteWorkItem(ctx context.Context, id string, data map[string]any) error

	// AbortWorkItem cancels the work item with the given ID.
	AbortWorkItem(ctx context.Context, id string) error

	// TransitionWorkItem finishes or cancels the work item with the given ID
	// using an explicit transition, allowing engine-driven outcomes to be
	// marked as such.
	TransitionWorkItem(ctx context.Context, id string, tr Transition) error
}

// Dispatcher routes work items to their handlers.
//
// Each method returns the transition to apply immediately to the work item,
// or nil if the work item remains pending until the handler reports back via
// the manager.
type Dispatcher interface {
	// Activate hands a newly produced work item to its handler.
	Activate(ctx context.Context, m Manager, wi *WorkItem, tr Transition) (*Transition, error)

	// Complete informs the handler that the work item is being finished.
	Complete(ctx context.Context, m Manager, wi *WorkItem, tr Transition) (*Transition, error)

	// Abort informs the handler that the work item is being cancelled.
	Abort(ctx context.Context, m Manager, wi *WorkItem, tr Transition) (*Transition, error)
}
