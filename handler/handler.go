// Package handler defines the contract between process instances and the
// pluggable executors that perform their work items.
package handler

import (
	"context"

	"github.com/enactiq/enact/process"
)

// Handler executes work items with a particular name on behalf of process
// instances.
//
// Each method receives the manager of the owning process instance, which the
// handler may also call asynchronously, from outside the initial dispatch.
type Handler interface {
	// Name returns the work item name served by the handler.
	Name() string

	// Activate is called when a work item is first dispatched.
	//
	// Returning a nil transition leaves the work item pending until the
	// handler reports back via the manager; returning a transition
	// progresses the work item immediately.
	Activate(ctx context.Context, m process.Manager, wi *process.WorkItem, tr process.Transition) (*process.Transition, error)

	// Complete is called when the manager is told to finish the work item.
	Complete(ctx context.Context, m process.Manager, wi *process.WorkItem, tr process.Transition) (*process.Transition, error)

	// Abort is called when the manager is told to cancel the work item.
	Abort(ctx context.Context, m process.Manager, wi *process.WorkItem, tr process.Transition) (*process.Transition, error)
}
