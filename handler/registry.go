package handler

import (
	"context"
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/enactiq/enact/internal/mlog"
	"github.com/enactiq/enact/process"
)

// Registry routes work items to handlers by name.
//
// It is populated once, at startup, and read-only thereafter. It implements
// process.Dispatcher.
type Registry struct {
	logger   logging.Logger
	handlers map[string]Handler
}

// NewRegistry returns a registry containing the given handlers.
//
// It returns an error if two handlers serve the same name.
func NewRegistry(logger logging.Logger, handlers ...Handler) (*Registry, error) {
	r := &Registry{
		logger:   logger,
		handlers: make(map[string]Handler, len(handlers)),
	}

	for _, h := range handlers {
		n := h.Name()

		if _, ok := r.handlers[n]; ok {
			return nil, fmt.Errorf("multiple handlers are registered for work items named %#v", n)
		}

		r.handlers[n] = h
	}

	return r, nil
}

// Get returns the handler serving the given work item name.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Activate hands a newly produced work item to its handler.
func (r *Registry) Activate(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (_ *process.Transition, err error) {
	h, ok := r.handlers[wi.Name]
	if !ok {
		return nil, UnknownHandlerError{Name: wi.Name}
	}

	defer mlog.LogHandlerResult(r.logger, wi.ProcessInstanceID, wi.ID, h.Name(), &err)

	return h.Activate(ctx, m, wi, tr)
}

// Complete informs the handler that a work item is being finished.
func (r *Registry) Complete(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (_ *process.Transition, err error) {
	h, ok := r.handlers[wi.Name]
	if !ok {
		return nil, UnknownHandlerError{Name: wi.Name}
	}

	defer mlog.LogHandlerResult(r.logger, wi.ProcessInstanceID, wi.ID, h.Name(), &err)

	return h.Complete(ctx, m, wi, tr)
}

// Abort informs the handler that a work item is being cancelled.
func (r *Registry) Abort(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (_ *process.Transition, err error) {
	h, ok := r.handlers[wi.Name]
	if !ok {
		return nil, UnknownHandlerError{Name: wi.Name}
	}

	defer mlog.LogHandlerResult(r.logger, wi.ProcessInstanceID, wi.ID, h.Name(), &err)

	return h.Abort(ctx, m, wi, tr)
}
