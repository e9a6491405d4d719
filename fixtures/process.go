package fixtures

import (
	"context"

	"github.com/enactiq/enact/process"
	"github.com/google/uuid"
)

// StubTask describes one unit of work performed by a StubDefinition.
type StubTask struct {
	// Name identifies the handler responsible for the task's work item.
	Name string

	// NodeID identifies the node that produces the work item.
	NodeID string

	// Parameters are the input values supplied with the work item.
	Parameters map[string]any
}

// StubDefinition is a test implementation of process.Definition.
//
// Its runtime performs the configured tasks strictly in order, producing one
// work item at a time. An empty task list produces a runtime that completes
// immediately when started.
type StubDefinition struct {
	DefinitionID      string
	DefinitionVersion string
	Tasks             []StubTask

	// StartFunc, if non-nil, is called when a runtime created from this
	// definition is started. A non-nil error fails the start.
	StartFunc func(rt *StubRuntime) error

	// SignalFunc, if non-nil, is called when a runtime created from this
	// definition receives a signal. If nil, the payload is stored as a
	// variable under the signal's name.
	SignalFunc func(rt *StubRuntime, name string, payload any) error
}

// ID returns the definition's ID.
func (d *StubDefinition) ID() string {
	if d.DefinitionID != "" {
		return d.DefinitionID
	}

	return "<definition>"
}

// Version returns the definition's version.
func (d *StubDefinition) Version() string {
	if d.DefinitionVersion != "" {
		return d.DefinitionVersion
	}

	return "1.0.0"
}

// New returns the runtime for a new occurrence of the process.
func (d *StubDefinition) New(variables map[string]any) (process.Runtime, error) {
	return &StubRuntime{
		Definition: d,
		Vars:       variables,
	}, nil
}

// Restore reconstructs a runtime from a snapshot produced by
// StubRuntime.Snapshot().
func (d *StubDefinition) Restore(variables, snapshot map[string]any) (process.Runtime, error) {
	rt := &StubRuntime{
		Definition: d,
		Vars:       variables,
		Started:    true,
	}

	switch v := snapshot["position"].(type) {
	case int:
		rt.Position = v
	case float64:
		// JSON round-trip.
		rt.Position = int(v)
	}

	if id, ok := snapshot["work_item_id"].(string); ok && id != "" {
		rt.producePending(id)
	} else {
		rt.advance()
	}

	return rt, nil
}

// StubRuntime is the runtime produced by a StubDefinition.
type StubRuntime struct {
	Definition *StubDefinition
	Vars       map[string]any
	Position   int
	Started    bool
	Signals    []process.Signal

	pending *process.WorkItem
	status  process.Status
}

// Start begins execution of the runtime.
func (rt *StubRuntime) Start(ctx context.Context) error {
	rt.Started = true

	if fn := rt.Definition.StartFunc; fn != nil {
		if err := fn(rt); err != nil {
			return err
		}
	}

	rt.advance()

	return nil
}

// Abort cancels execution of the runtime.
func (rt *StubRuntime) Abort(ctx context.Context) error {
	rt.pending = nil
	rt.status = process.Aborted

	return nil
}

// Status returns the runtime's status.
func (rt *StubRuntime) Status() process.Status {
	return rt.status
}

// Variables returns the runtime's variable values.
func (rt *StubRuntime) Variables() map[string]any {
	return rt.Vars
}

// WorkItems returns the runtime's pending work items.
func (rt *StubRuntime) WorkItems() []*process.WorkItem {
	if rt.pending == nil {
		return nil
	}

	return []*process.WorkItem{rt.pending}
}

// CompleteWorkItem finishes the pending work item, merging data into the
// variables, and advances to the next task.
func (rt *StubRuntime) CompleteWorkItem(ctx context.Context, id string, data map[string]any) error {
	if rt.pending == nil || rt.pending.ID != id {
		return process.UnknownWorkItemError{WorkItemID: id}
	}

	if rt.Vars == nil {
		rt.Vars = map[string]any{}
	}

	for k, v := range data {
		rt.Vars[k] = v
	}

	rt.pending = nil
	rt.Position++
	rt.advance()

	return nil
}

// AbortWorkItem cancels the pending work item and advances to the next task.
func (rt *StubRuntime) AbortWorkItem(ctx context.Context, id string) error {
	if rt.pending == nil || rt.pending.ID != id {
		return process.UnknownWorkItemError{WorkItemID: id}
	}

	rt.pending = nil
	rt.Position++
	rt.advance()

	return nil
}

// Signal delivers a named signal to the runtime.
func (rt *StubRuntime) Signal(ctx context.Context, name string, payload any) error {
	rt.Signals = append(
		rt.Signals,
		process.Signal{
			Name:    name,
			Payload: payload,
		},
	)

	if fn := rt.Definition.SignalFunc; fn != nil {
		return fn(rt, name, payload)
	}

	if rt.Vars == nil {
		rt.Vars = map[string]any{}
	}

	rt.Vars[name] = payload

	return nil
}

// Snapshot returns the runtime's execution state.
func (rt *StubRuntime) Snapshot() map[string]any {
	snap := map[string]any{
		"position": rt.Position,
	}

	if rt.pending != nil {
		snap["work_item_id"] = rt.pending.ID
	}

	return snap
}

func (rt *StubRuntime) advance() {
	if rt.pending != nil {
		return
	}

	if rt.Position >= len(rt.Definition.Tasks) {
		if rt.Started {
			rt.status = process.Completed
		}

		return
	}

	rt.status = process.Active
	rt.producePending(uuid.NewString())
}

func (rt *StubRuntime) producePending(id string) {
	t := rt.Definition.Tasks[rt.Position]

	rt.status = process.Active
	rt.pending = &process.WorkItem{
		ID:         id,
		Name:       t.Name,
		NodeID:     t.NodeID,
		Parameters: t.Parameters,
	}
}

// StubDispatcher is a test implementation of process.Dispatcher.
//
// By default work items remain pending when activated. Each method records
// the work item it was called with.
type StubDispatcher struct {
	ActivateFunc func(ctx context.Context, m process.Manager, wi *process.WorkItem, tr process.Transition) (*process.Transition, error)
	CompleteFunc func(ctx context.Context, m process.Manager, wi *process.WorkItem, tr process.Transition) (*process.Transition, error)
	AbortFunc    func(ctx context.Context, m process.Manager, wi *process.WorkItem, tr process.Transition) (*process.Transition, error)

	Activated []*process.WorkItem
	Completed []*process.WorkItem
	Aborted   []*process.WorkItem
}

// Activate hands a newly produced work item to its handler.
func (d *StubDispatcher) Activate(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	d.Activated = append(d.Activated, wi)

	if d.ActivateFunc != nil {
		return d.ActivateFunc(ctx, m, wi, tr)
	}

	return nil, nil
}

// Complete informs the handler that a work item is being finished.
func (d *StubDispatcher) Complete(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	d.Completed = append(d.Completed, wi)

	if d.CompleteFunc != nil {
		return d.CompleteFunc(ctx, m, wi, tr)
	}

	return nil, nil
}

// Abort informs the handler that a work item is being cancelled.
func (d *StubDispatcher) Abort(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	d.Aborted = append(d.Aborted, wi)

	if d.AbortFunc != nil {
		return d.AbortFunc(ctx, m, wi, tr)
	}

	return nil, nil
}
