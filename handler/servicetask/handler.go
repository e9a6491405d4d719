// Package servicetask provides a work item handler for automated tasks that
// execute immediately when dispatched.
package servicetask

import (
	"context"

	"github.com/enactiq/enact/process"
)

// DefaultWorkItemName is the work item name served when none is configured.
const DefaultWorkItemName = "Service Task"

// Handler is an implementation of handler.Handler that invokes an automated
// service and completes the work item in the same dispatch, fire-and-forget
// style.
type Handler struct {
	// WorkItemName is the work item name served by the handler. If it is
	// empty, DefaultWorkItemName is used.
	WorkItemName string

	// Execute performs the service invocation, returning the work item's
	// results. If it is nil, the work item completes with no results.
	Execute func(ctx context.Context, wi *process.WorkItem) (map[string]any, error)
}

// Name returns the work item name served by the handler.
func (h *Handler) Name() string {
	if h.WorkItemName != "" {
		return h.WorkItemName
	}

	return DefaultWorkItemName
}

// Activate invokes the service and completes the work item immediately.
func (h *Handler) Activate(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	var (
		results map[string]any
		err     error
	)

	if h.Execute != nil {
		results, err = h.Execute(ctx, wi)
		if err != nil {
			return nil, err
		}
	}

	return &process.Transition{
		ID:         process.TransitionComplete,
		Data:       results,
		UserDriven: tr.UserDriven,
	}, nil
}

// Complete is a no-op; the work item already completed during activation.
func (h *Handler) Complete(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	return nil, nil
}

// Abort is a no-op; there is nothing to cancel once the service has been
// invoked.
func (h *Handler) Abort(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	return nil, nil
}
