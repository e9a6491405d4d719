// Package humantask provides the work item handler that backs human task
// nodes with user task instances.
package humantask

import (
	"context"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/enactiq/enact/internal/mlog"
	"github.com/enactiq/enact/process"
	"github.com/enactiq/enact/usertask"
)

// DefaultWorkItemName is the work item name served when none is configured.
const DefaultWorkItemName = "Human Task"

// ManagerResolver locates the manager of the process instance that owns a
// work item.
type ManagerResolver interface {
	// Manager returns the manager of the process instance with the given ID,
	// or false if no such instance is stored.
	Manager(ctx context.Context, definitionID, instanceID string) (process.Manager, bool, error)
}

// Scheduler schedules deadline-driven side effects against task instances.
type Scheduler interface {
	// ScheduleNotify schedules a notification against a task.
	ScheduleNotify(taskID string, at time.Time, payload map[string]any)

	// ScheduleReassign schedules an ownership change against a task.
	ScheduleReassign(taskID string, at time.Time, users, groups []string)

	// Cancel cancels all pending deadlines against a task.
	Cancel(taskID string)
}

// Handler is an implementation of handler.Handler that creates a user task
// instance for each work item it is given, and signals the owning process
// instance when the task reaches a terminal state.
type Handler struct {
	// WorkItemName is the work item name served by the handler. If it is
	// empty, DefaultWorkItemName is used.
	WorkItemName string

	// Tasks is the service that owns the task instances.
	Tasks *usertask.Service

	// Processes locates the process instances that own the work items.
	Processes ManagerResolver

	// Scheduler schedules the tasks' deadline descriptors. It may be nil, in
	// which case deadlines are not tracked.
	Scheduler Scheduler

	// Logger is the target for messages about the handler's activity.
	Logger logging.Logger

	// inflight holds the IDs of work items whose terminal transition is
	// currently being driven from the process side, to prevent the task
	// event listener from signalling the process a second time.
	inflight sync.Map
}

// Name returns the work item name served by the handler.
func (h *Handler) Name() string {
	if h.WorkItemName != "" {
		return h.WorkItemName
	}

	return DefaultWorkItemName
}

// Activate creates and persists a task instance for the work item.
//
// The work item always remains pending; it progresses when the task reaches
// a terminal state.
func (h *Handler) Activate(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	task := usertask.NewInstance(wi)

	if err := h.Tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	h.schedule(task)

	return nil, nil
}

// Complete brings the task in line with its work item when the work item is
// finished directly on the process instance.
func (h *Handler) Complete(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	return nil, h.finalize(ctx, wi, usertask.TransitionComplete, tr)
}

// Abort marks the task obsolete when the work item is cancelled.
func (h *Handler) Abort(
	ctx context.Context,
	m process.Manager,
	wi *process.WorkItem,
	tr process.Transition,
) (*process.Transition, error) {
	return nil, h.finalize(ctx, wi, usertask.TransitionAbort, tr)
}

// Listener returns the task event listener that signals terminal task states
// back to the owning process instance.
//
// It must be registered with the task service that the handler creates its
// instances through.
func (h *Handler) Listener() usertask.Listener {
	return func(ctx context.Context, ev usertask.Event) error {
		if ev.Transition == usertask.TransitionStart {
			h.reschedule(ev.Task)
			return nil
		}

		if !ev.Terminal {
			return nil
		}

		t := ev.Task

		if h.Scheduler != nil {
			h.Scheduler.Cancel(t.ID())
		}

		wiID := t.ExternalReferenceID()

		if !h.acquire(wiID) {
			// The work item itself initiated this transition; signalling the
			// process again would loop.
			return nil
		}
		defer h.release(wiID)

		mlog.LogSignal(h.Logger, t.ProcessInstanceID(), wiID, ev.Transition)

		err := h.signal(ctx, t, ev)

		if err != nil && !ev.UserDriven {
			// A failure to signal the process after an engine-driven terminal
			// transition must not desynchronize task state from process
			// state. The task has already ended; the error stops here.
			mlog.LogIgnoredFailure(h.Logger, t.ID(), err)
			return nil
		}

		return err
	}
}

// signal reports a terminal task state to the owning process instance.
func (h *Handler) signal(
	ctx context.Context,
	t *usertask.Instance,
	ev usertask.Event,
) error {
	m, ok, err := h.Processes.Manager(
		ctx,
		t.ProcessDefinitionID(),
		t.ProcessInstanceID(),
	)
	if err != nil {
		return err
	}

	if !ok {
		// The owning process instance has already ended.
		return nil
	}

	tr := process.Transition{
		ID:         process.TransitionComplete,
		Data:       t.Outputs(),
		UserDriven: ev.UserDriven,
	}

	if ev.To == usertask.Failed || ev.To == usertask.Obsolete {
		tr = process.Transition{
			ID:         process.TransitionAbort,
			UserDriven: ev.UserDriven,
		}
	}

	return m.TransitionWorkItem(ctx, t.ExternalReferenceID(), tr)
}

// finalize applies a terminal transition to the task belonging to a work
// item, if it has not already ended.
func (h *Handler) finalize(
	ctx context.Context,
	wi *process.WorkItem,
	transitionID string,
	tr process.Transition,
) error {
	if h.acquire(wi.ID) {
		defer h.release(wi.ID)
	}

	task, ok, err := h.Tasks.GetByWorkItem(ctx, wi.ID)

	if err == nil && (!ok || task.Ended()) {
		// Either there is no task to synchronize, or it has already reached
		// a terminal state, which is the normal case when the work item is
		// being finished in reaction to a task event.
		return nil
	}

	if err == nil {
		err = h.Tasks.Finalize(ctx, task.ID(), transitionID, tr.Data)

		if err == nil && h.Scheduler != nil {
			h.Scheduler.Cancel(task.ID())
		}
	}

	if err != nil && !tr.UserDriven {
		taskID := wi.ID
		if task != nil {
			taskID = task.ID()
		}

		mlog.LogIgnoredFailure(h.Logger, taskID, err)

		return nil
	}

	return err
}

// schedule registers the task's not-started deadline descriptors with the
// scheduler.
func (h *Handler) schedule(t *usertask.Instance) {
	if h.Scheduler == nil {
		return
	}

	base := t.CreatedAt()

	for _, d := range t.NotStartedDeadlines() {
		h.Scheduler.ScheduleNotify(t.ID(), base.Add(d.Duration), d.Notification)
	}

	for _, r := range t.NotStartedReassignments() {
		h.Scheduler.ScheduleReassign(t.ID(), base.Add(r.Duration), r.Users, r.Groups)
	}
}

// reschedule replaces the task's not-started deadlines with its
// not-completed deadlines when work on the task begins.
func (h *Handler) reschedule(t *usertask.Instance) {
	if h.Scheduler == nil {
		return
	}

	h.Scheduler.Cancel(t.ID())

	base := t.StartedAt()

	for _, d := range t.NotCompletedDeadlines() {
		h.Scheduler.ScheduleNotify(t.ID(), base.Add(d.Duration), d.Notification)
	}

	for _, r := range t.NotCompletedReassignments() {
		h.Scheduler.ScheduleReassign(t.ID(), base.Add(r.Duration), r.Users, r.Groups)
	}
}

func (h *Handler) acquire(id string) bool {
	_, loaded := h.inflight.LoadOrStore(id, struct{}{})
	return !loaded
}

func (h *Handler) release(id string) {
	h.inflight.Delete(id)
}
