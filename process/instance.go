package process

import (
	"context"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/enactiq/enact/internal/mlog"
	"github.com/enactiq/enact/persistence"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Instance is a single occurrence of a process definition.
//
// It implements persistence.Entity so that it can be stored in any instance
// store, and Manager so that handlers can report work item outcomes back to
// it.
type Instance struct {
	def        Definition
	store      persistence.Store[*Instance]
	dispatcher Dispatcher
	logger     logging.Logger

	id          string
	description string
	parentID    string
	rootID      string
	status      Status
	vars        Variables
	variables   map[string]any
	snapshot    map[string]any
	workItems   []*WorkItem
	activated   map[string]struct{}
	runtime     Runtime
	readOnly    bool
}

// InstanceOption configures the behavior of an instance.
type InstanceOption func(*Instance)

// WithDescription returns an instance option that sets a human-readable
// description of the instance.
func WithDescription(desc string) InstanceOption {
	return func(s *Instance) {
		s.description = desc
	}
}

// WithParent returns an instance option that links the instance to the
// parent instance that spawned it, and to the root instance of that
// hierarchy.
func WithParent(parentID, rootID string) InstanceOption {
	return func(s *Instance) {
		s.parentID = parentID
		s.rootID = rootID
	}
}

// NewInstance returns a new, unstarted occurrence of the given definition.
//
// The instance ID is assigned immediately; it does not change when the
// instance is started or persisted.
func NewInstance(
	def Definition,
	store persistence.Store[*Instance],
	dispatcher Dispatcher,
	vars Variables,
	logger logging.Logger,
	options ...InstanceOption,
) *Instance {
	s := &Instance{
		def:        def,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		id:         uuid.NewString(),
		status:     Pending,
		vars:       vars,
		activated:  map[string]struct{}{},
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// ID returns the unique identifier of the instance.
func (s *Instance) ID() string {
	return s.id
}

// DefinitionID returns the ID of the definition the instance was created
// from.
func (s *Instance) DefinitionID() string {
	return s.def.ID()
}

// Status returns the current lifecycle status of the instance.
func (s *Instance) Status() Status {
	return s.status
}

// Description returns the human-readable description of the instance.
func (s *Instance) Description() string {
	return s.description
}

// ParentID returns the ID of the instance that spawned this one, or an empty
// string if this is a top-level instance.
func (s *Instance) ParentID() string {
	return s.parentID
}

// RootID returns the ID of the root instance of the hierarchy this instance
// belongs to, or an empty string if this is a top-level instance.
func (s *Instance) RootID() string {
	return s.rootID
}

// Variables returns a copy of the current variable values.
func (s *Instance) Variables() map[string]any {
	if s.runtime != nil {
		return copyValues(s.runtime.Variables())
	}

	return copyValues(s.variables)
}

// WorkItems returns the work items of the instance that are awaiting
// completion.
func (s *Instance) WorkItems() []*WorkItem {
	if s.runtime != nil {
		return s.runtime.WorkItems()
	}

	return s.workItems
}

// Start begins execution of the instance.
//
// The instance is registered in its store before any node logic executes, so
// that work items produced mid-execution can resolve their owning instance.
func (s *Instance) Start(ctx context.Context) error {
	if s.readOnly {
		return persistence.ErrReadOnly
	}

	if s.status != Pending {
		return InvalidStatusError{
			InstanceID: s.id,
			Op:         "start",
			Status:     s.status,
		}
	}

	values := map[string]any{}
	if s.vars != nil {
		values = s.vars.Bind()
	}

	rt, err := s.def.New(values)
	if err != nil {
		return err
	}

	s.runtime = rt
	s.status = Active
	s.variables = rt.Variables()

	if err := s.store.Create(ctx, s.id, s); err != nil {
		return err
	}

	mlog.LogProcessStatus(s.logger, s.def.ID(), s.id, s.status.String())

	if err := rt.Start(ctx); err != nil {
		return s.fault(ctx, err)
	}

	if err := s.dispatchPending(ctx); err != nil {
		return err
	}

	return s.sync(ctx)
}

// Abort cancels execution of the instance.
//
// Pending work items are aborted via their handlers before the instance
// itself is stopped. Aborting an instance that has already ended is a no-op.
func (s *Instance) Abort(ctx context.Context) error {
	if s.readOnly {
		return persistence.ErrReadOnly
	}

	if s.status.Ended() {
		return nil
	}

	if s.status == Pending {
		// The instance was never started, and hence never stored.
		s.status = Aborted
		return nil
	}

	if err := s.ensureRuntime(); err != nil {
		return err
	}

	tr := Transition{
		ID:         TransitionAbort,
		UserDriven: true,
	}

	for _, wi := range s.runtime.WorkItems() {
		if _, err := s.dispatcher.Abort(ctx, s, wi, tr); err != nil {
			return s.fault(ctx, err)
		}

		if err := s.runtime.AbortWorkItem(ctx, wi.ID); err != nil {
			return s.fault(ctx, err)
		}

		delete(s.activated, wi.ID)
	}

	if err := s.runtime.Abort(ctx); err != nil {
		return s.fault(ctx, err)
	}

	s.refresh()
	s.status = Aborted

	if err := s.store.Update(ctx, s.id, s); err != nil {
		return err
	}

	mlog.LogProcessStatus(s.logger, s.def.ID(), s.id, s.status.String())

	return nil
}

// Send delivers a named signal to the instance.
//
// Signals sent to an instance that has already ended are discarded.
func (s *Instance) Send(ctx context.Context, sig Signal) error {
	if s.readOnly {
		return persistence.ErrReadOnly
	}

	if s.status.Ended() {
		return nil
	}

	if s.status != Active {
		return InvalidStatusError{
			InstanceID: s.id,
			Op:         "signal",
			Status:     s.status,
		}
	}

	if err := s.ensureRuntime(); err != nil {
		return err
	}

	if err := s.runtime.Signal(ctx, sig.Name, sig.Payload); err != nil {
		return s.fault(ctx, err)
	}

	if err := s.dispatchPending(ctx); err != nil {
		return err
	}

	return s.sync(ctx)
}

// CompleteWorkItem finishes the work item with the given ID on behalf of a
// user, merging data into the execution context.
func (s *Instance) CompleteWorkItem(ctx context.Context, id string, data map[string]any) error {
	return s.TransitionWorkItem(
		ctx,
		id,
		Transition{
			ID:         TransitionComplete,
			Data:       data,
			UserDriven: true,
		},
	)
}

// AbortWorkItem cancels the work item with the given ID.
func (s *Instance) AbortWorkItem(ctx context.Context, id string) error {
	return s.TransitionWorkItem(
		ctx,
		id,
		Transition{
			ID:         TransitionAbort,
			UserDriven: true,
		},
	)
}

// TransitionWorkItem finishes or cancels the work item with the given ID
// using an explicit transition.
//
// The work item's handler is consulted before the runtime is updated; the
// handler may substitute its own transition, whose data then becomes the
// work item's results.
func (s *Instance) TransitionWorkItem(ctx context.Context, id string, tr Transition) error {
	if s.readOnly {
		return persistence.ErrReadOnly
	}

	if s.status != Active {
		return InvalidStatusError{
			InstanceID: s.id,
			Op:         "transition a work item of",
			Status:     s.status,
		}
	}

	if err := s.ensureRuntime(); err != nil {
		return err
	}

	wi := s.findWorkItem(id)
	if wi == nil {
		return UnknownWorkItemError{
			InstanceID: s.id,
			WorkItemID: id,
		}
	}

	s.stamp(wi)

	var (
		res *Transition
		err error
	)

	if tr.ID == TransitionAbort {
		res, err = s.dispatcher.Abort(ctx, s, wi, tr)
	} else {
		res, err = s.dispatcher.Complete(ctx, s, wi, tr)
	}

	if err != nil {
		// The handler refused the transition. The instance itself is
		// unaffected; the error propagates to whoever requested the
		// transition.
		return err
	}

	data := tr.Data
	if res != nil {
		data = res.Data
	}

	if tr.ID == TransitionAbort {
		err = s.runtime.AbortWorkItem(ctx, id)
	} else {
		wi.Results = copyValues(data)
		err = s.runtime.CompleteWorkItem(ctx, id, data)
	}

	if err != nil {
		return s.fault(ctx, err)
	}

	delete(s.activated, id)

	if err := s.dispatchPending(ctx); err != nil {
		return err
	}

	return s.sync(ctx)
}

// InstanceID returns the ID used to key the instance within a store.
func (s *Instance) InstanceID() string {
	return s.id
}

// Ended returns true if the instance has reached a terminal status.
func (s *Instance) Ended() bool {
	return s.status.Ended()
}

// ReadOnly returns true if the instance is a read-only handle.
func (s *Instance) ReadOnly() bool {
	return s.readOnly
}

// Meta returns the instance's metadata.
func (s *Instance) Meta() persistence.Metadata {
	return persistence.Metadata{
		Description: s.description,
		Status:      s.status.String(),
	}
}

// Clone returns an independent copy of the instance with the given access
// mode.
//
// The copy shares the instance's definition and collaborators, but none of
// its state; if the instance has a live runtime, the copy carries a snapshot
// of it instead.
func (s *Instance) Clone(mode persistence.AccessMode) *Instance {
	c := &Instance{
		def:         s.def,
		store:       s.store,
		dispatcher:  s.dispatcher,
		logger:      s.logger,
		id:          s.id,
		description: s.description,
		parentID:    s.parentID,
		rootID:      s.rootID,
		status:      s.status,
		activated:   map[string]struct{}{},
		readOnly:    mode == persistence.ReadOnly,
	}

	if s.runtime != nil {
		c.variables = copyValues(s.runtime.Variables())
		c.snapshot = copyValues(s.runtime.Snapshot())
		c.workItems = cloneWorkItems(s.runtime.WorkItems())
	} else {
		c.variables = copyValues(s.variables)
		c.snapshot = copyValues(s.snapshot)
		c.workItems = cloneWorkItems(s.workItems)
	}

	for id := range s.activated {
		c.activated[id] = struct{}{}
	}

	return c
}

// fault places the instance into the Faulted status and persists it.
//
// The causal error is always returned, combined with any persistence failure
// that occurs along the way.
func (s *Instance) fault(ctx context.Context, cause error) error {
	s.status = Faulted
	s.refresh()

	if err := s.store.Update(ctx, s.id, s); err != nil {
		return multierr.Append(cause, err)
	}

	mlog.LogProcessStatus(s.logger, s.def.ID(), s.id, s.status.String())

	return cause
}

// dispatchPending activates any work items that have not yet been handed to
// their handler, looping for as long as handlers complete work items
// immediately.
func (s *Instance) dispatchPending(ctx context.Context) error {
	for {
		progressed := false

		for _, wi := range s.runtime.WorkItems() {
			if _, ok := s.activated[wi.ID]; ok {
				continue
			}

			s.activated[wi.ID] = struct{}{}
			s.stamp(wi)

			mlog.LogDispatch(s.logger, s.id, wi.ID, wi.Name)

			tr, err := s.dispatcher.Activate(
				ctx,
				s,
				wi,
				Transition{
					ID:         TransitionActivate,
					UserDriven: true,
				},
			)
			if err != nil {
				return s.fault(ctx, err)
			}

			if tr == nil {
				continue
			}

			wi.Results = copyValues(tr.Data)

			if err := s.runtime.CompleteWorkItem(ctx, wi.ID, tr.Data); err != nil {
				return s.fault(ctx, err)
			}

			delete(s.activated, wi.ID)
			progressed = true
		}

		if !progressed {
			return nil
		}
	}
}

// sync copies the runtime's state back into the instance and persists it.
func (s *Instance) sync(ctx context.Context) error {
	s.refresh()

	if err := s.store.Update(ctx, s.id, s); err != nil {
		return err
	}

	mlog.LogProcessStatus(s.logger, s.def.ID(), s.id, s.status.String())

	return nil
}

// refresh copies the runtime's state back into the instance.
func (s *Instance) refresh() {
	if s.runtime == nil {
		return
	}

	s.variables = s.runtime.Variables()
	s.workItems = s.runtime.WorkItems()

	if s.status != Faulted {
		s.status = s.runtime.Status()
	}

	if s.vars != nil {
		s.vars.Unbind(s.variables)
	}
}

// ensureRuntime reconstructs the runtime of a restored instance on first
// use.
func (s *Instance) ensureRuntime() error {
	if s.runtime != nil {
		return nil
	}

	rt, err := s.def.Restore(s.variables, s.snapshot)
	if err != nil {
		return err
	}

	s.runtime = rt

	return nil
}

// stamp marks a work item produced by the runtime with the identity of its
// owning instance.
func (s *Instance) stamp(wi *WorkItem) {
	wi.ProcessInstanceID = s.id
	wi.ProcessDefinitionID = s.def.ID()
}

func (s *Instance) findWorkItem(id string) *WorkItem {
	for _, wi := range s.runtime.WorkItems() {
		if wi.ID == id {
			return wi
		}
	}

	return nil
}

// Signal is a named signal that can be delivered to a process instance.
type Signal struct {
	Name    string
	Payload any
}

func copyValues(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}

	c := make(map[string]any, len(values))
	for k, v := range values {
		c[k] = v
	}

	return c
}

func cloneWorkItems(items []*WorkItem) []*WorkItem {
	if items == nil {
		return nil
	}

	c := make([]*WorkItem, len(items))
	for i, wi := range items {
		w := *wi
		w.Parameters = copyValues(wi.Parameters)
		w.Results = copyValues(wi.Results)
		c[i] = &w
	}

	return c
}
