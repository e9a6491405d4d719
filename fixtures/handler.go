package fixtures

import (
	"context"

	"github.com/enactiq/enact/process"
)

// StubHandler is a test implementation of handler.Handler.
//
// By default work items remain pending when activated.
type StubHandler struct {
	HandlerName string

	ActivateFunc func(ctx context.Context, m process.Manager, wi *process.WorkItem, tr process.Transition) (*process.Transition, error)
	CompleteFunc func(ctx context.Context, m process.Manager, wi *process.WorkItem, tr process.Transition) (*process.Transition, error)
	AbortFunc    func(ctx context.Context, m process.Manager, wi *process.WorkItem, tr process.Transition) (*process.Transition, error)
}

// Name returns the work item name served by the handler.
func (h *StubHandler) Name() string {
	if h.HandlerName != "" {
		return h.HandlerName
	}

	return "<handler>"
}

// Activate is called when a work item is first dispatched.
func (h *StubHandler) Activate(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	if h.ActivateFunc != nil {
		return h.ActivateFunc(ctx, m, wi, tr)
	}

	return nil, nil
}

// Complete is called when the manager is told to finish the work item.
func (h *StubHandler) Complete(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	if h.CompleteFunc != nil {
		return h.CompleteFunc(ctx, m, wi, tr)
	}

	return nil, nil
}

// Abort is called when the manager is told to cancel the work item.
func (h *StubHandler) Abort(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	if h.AbortFunc != nil {
		return h.AbortFunc(ctx, m, wi, tr)
	}

	return nil, nil
}
