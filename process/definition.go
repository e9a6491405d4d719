package process

import "context"

// Definition is an immutable description of a process that instances are
// created from.
//
// Implementations are fixed at build time; the engine never discovers
// definitions by reflection.
type Definition interface {
	// ID returns a unique identifier for the definition.
	ID() string

	// Version returns the version of the definition.
	Version() string

	// New returns the runtime for a new occurrence of the process, with the
	// given variable values already applied.
	New(variables map[string]any) (Runtime, error)

	// Restore reconstructs the runtime of a persisted occurrence from the
	// variable values and the snapshot previously produced by
	// Runtime.Snapshot().
	Restore(variables, snapshot map[string]any) (Runtime, error)
}

// Runtime executes the node logic of a single occurrence of a process.
//
// The instance drives the runtime; the runtime never persists anything
// itself.
type Runtime interface {
	// Start begins execution, running until no further progress can be made
	// without external input.
	Start(ctx context.Context) error

	// Abort cancels execution.
	Abort(ctx context.Context) error

	// Status returns the current status of the occurrence.
	Status() Status

	// Variables returns the current variable values.
	Variables() map[string]any

	// WorkItems returns the work items that are awaiting completion.
	WorkItems() []*WorkItem

	// CompleteWorkItem finishes the work item with the given ID, merging
	// data into the execution context, and resumes execution.
	CompleteWorkItem(ctx context.Context, id string, data map[string]any) error

	// AbortWorkItem cancels the work item with the given ID and resumes
	// execution.
	AbortWorkItem(ctx context.Context, id string) error

	// Signal delivers a named signal to the occurrence.
	Signal(ctx context.Context, name string, payload any) error

	// Snapshot returns an opaque representation of the runtime's execution
	// state, suitable for passing to Definition.Restore().
	Snapshot() map[string]any
}
