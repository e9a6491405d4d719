// Package enact is an embeddable engine for executing business processes and
// the human tasks they produce.
package enact

import (
	"context"

	"github.com/enactiq/enact/handler"
	"github.com/enactiq/enact/handler/humantask"
	"github.com/enactiq/enact/internal/x/syncx"
	"github.com/enactiq/enact/persistence"
	"github.com/enactiq/enact/process"
	"github.com/enactiq/enact/semaphore"
	"github.com/enactiq/enact/timer"
	"github.com/enactiq/enact/usertask"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// taskScope is the store scope that user task instances are persisted under.
const taskScope = "user-tasks"

// Engine hosts a set of process definitions.
//
// It owns the stores that process and task instances are persisted to, the
// registry of work item handlers, the user task service and the deadline
// scheduler, and serializes operations on each process instance.
type Engine struct {
	opts      *engineOptions
	defs      map[string]process.Definition
	registry  *handler.Registry
	service   *usertask.Service
	scheduler *timer.Scheduler
	processes *persistence.StoreSet[*process.Instance]
	sem       semaphore.Semaphore
	locks     syncx.MutexNamespace
}

// runner is implemented by stores that require a background goroutine, such
// as the append-log store's replayer.
type runner interface {
	Run(ctx context.Context) error
}

// New returns a new engine that hosts the given process definition.
//
// def may be nil, in which case at least one WithDefinition() option must be
// specified.
//
// It panics if the configuration is invalid.
func New(def process.Definition, options ...EngineOption) *Engine {
	if def != nil {
		options = append(options, WithDefinition(def))
	}

	opts := resolveEngineOptions(options...)

	e := &Engine{
		opts: opts,
		defs: map[string]process.Definition{},
	}

	for _, d := range opts.Definitions {
		e.defs[d.ID()] = d
	}

	e.service = &usertask.Service{
		Store: &lazyTaskStore{
			open: e.openTaskStore,
		},
		Logger: opts.Logger,
	}

	e.scheduler = &timer.Scheduler{
		Tasks:           e.service,
		BackoffStrategy: opts.DeadlineBackoff,
		Logger:          opts.Logger,
	}

	human := &humantask.Handler{
		Tasks:     e.service,
		Processes: e,
		Scheduler: e.scheduler,
		Logger:    opts.Logger,
	}

	e.service.Listeners = append(
		[]usertask.Listener{
			human.Listener(),
		},
		opts.Listeners...,
	)

	r, err := handler.NewRegistry(
		opts.Logger,
		append(opts.Handlers, human)...,
	)
	if err != nil {
		panic(err)
	}
	e.registry = r

	e.processes = &persistence.StoreSet[*process.Instance]{
		Provider: &processProvider{e},
	}

	e.sem = semaphore.New(
		int(opts.ConcurrencyLimit),
	)

	return e
}

// Run hosts the engine's background activity until ctx is canceled or an
// error occurs.
//
// The engine's operations may be used before and while Run is executing, but
// deadlines do not fire and log-backed stores do not become ready until it
// is.
func (e *Engine) Run(ctx context.Context) error {
	defer e.close()

	var runners []runner

	for id := range e.defs {
		st, err := e.processes.Get(ctx, id)
		if err != nil {
			return err
		}

		if r, ok := st.(runner); ok {
			runners = append(runners, r)
		}
	}

	if l, ok := e.service.Store.(*lazyTaskStore); ok {
		st, err := l.resolve(ctx)
		if err != nil {
			return err
		}

		if r, ok := st.(runner); ok {
			runners = append(runners, r)
		}
	}

	parent := ctx
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.scheduler.Run(ctx)
	})

	for _, r := range runners {
		r := r // capture loop variable

		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	err := g.Wait()

	if parent.Err() != nil {
		return parent.Err()
	}

	return err
}

// StartProcess begins a new instance of the definition with the given ID.
//
// It returns the instance, which may already have ended if the definition
// runs to quiescence without producing pending work items.
func (e *Engine) StartProcess(
	ctx context.Context,
	definitionID string,
	vars process.Variables,
	options ...process.InstanceOption,
) (*process.Instance, error) {
	def, ok := e.defs[definitionID]
	if !ok {
		return nil, UnknownDefinitionError{definitionID}
	}

	st, err := e.processes.Get(ctx, definitionID)
	if err != nil {
		return nil, err
	}

	inst := process.NewInstance(
		def,
		st,
		e.registry,
		vars,
		e.opts.Logger,
		options...,
	)

	return inst, inst.Start(ctx)
}

// FindProcess returns a read-only snapshot of a stored process instance.
//
// It returns false, without an error, if no such instance is stored.
func (e *Engine) FindProcess(
	ctx context.Context,
	definitionID, instanceID string,
) (*process.Instance, bool, error) {
	st, err := e.processes.Get(ctx, definitionID)
	if err != nil {
		return nil, false, err
	}

	return st.Find(ctx, instanceID, persistence.ReadOnly)
}

// AbortProcess cancels a stored process instance.
//
// It is idempotent; aborting an instance that is not stored is not an error.
func (e *Engine) AbortProcess(ctx context.Context, definitionID, instanceID string) error {
	found, err := e.withInstance(
		ctx,
		definitionID,
		instanceID,
		func(inst *process.Instance) error {
			return inst.Abort(ctx)
		},
	)

	if err == nil && !found {
		return nil
	}

	return err
}

// CompleteWorkItem finishes a pending work item of a stored process
// instance, merging data into its execution context.
func (e *Engine) CompleteWorkItem(
	ctx context.Context,
	definitionID, instanceID, workItemID string,
	data map[string]any,
) error {
	found, err := e.withInstance(
		ctx,
		definitionID,
		instanceID,
		func(inst *process.Instance) error {
			return inst.CompleteWorkItem(ctx, workItemID, data)
		},
	)

	if err == nil && !found {
		return UnknownInstanceError{definitionID, instanceID}
	}

	return err
}

// Signal delivers a signal to a stored process instance.
//
// Signals sent to instances that are not stored are discarded.
func (e *Engine) Signal(
	ctx context.Context,
	definitionID, instanceID string,
	sig process.Signal,
) error {
	_, err := e.withInstance(
		ctx,
		definitionID,
		instanceID,
		func(inst *process.Instance) error {
			return inst.Send(ctx, sig)
		},
	)

	return err
}

// Broadcast delivers a signal to every stored instance of a definition.
//
// Deliveries are fanned out concurrently, limited by the engine's
// concurrency limit.
func (e *Engine) Broadcast(
	ctx context.Context,
	definitionID string,
	sig process.Signal,
) error {
	st, err := e.processes.Get(ctx, definitionID)
	if err != nil {
		return err
	}

	var ids []string
	if err := st.Each(
		ctx,
		persistence.ReadOnly,
		func(inst *process.Instance) (bool, error) {
			ids = append(ids, inst.ID())
			return true, nil
		},
	); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	var acquireErr error

	for _, id := range ids {
		id := id // capture loop variable

		if err := e.sem.Acquire(ctx); err != nil {
			// The remaining instances never receive the signal; the caller
			// must know the broadcast was cut short.
			acquireErr = err
			break
		}

		g.Go(func() error {
			defer e.sem.Release()
			return e.Signal(ctx, definitionID, id, sig)
		})
	}

	return multierr.Append(acquireErr, g.Wait())
}

// Tasks returns the service used to operate on the engine's user task
// instances.
func (e *Engine) Tasks() *usertask.Service {
	return e.service
}

// Manager returns the manager of the process instance with the given ID, or
// false if no such instance is stored.
//
// It implements the humantask.ManagerResolver interface. Operations on the
// returned manager are serialized with all other engine operations on the
// same instance.
func (e *Engine) Manager(
	ctx context.Context,
	definitionID, instanceID string,
) (process.Manager, bool, error) {
	st, err := e.processes.Get(ctx, definitionID)
	if err != nil {
		return nil, false, err
	}

	ok, err := st.Exists(ctx, instanceID)
	if !ok || err != nil {
		return nil, false, err
	}

	return &instanceManager{e, definitionID, instanceID}, true, nil
}

// withInstance locks a process instance, loads it, and applies fn to it.
//
// It returns false, without calling fn, if the instance is not stored.
func (e *Engine) withInstance(
	ctx context.Context,
	definitionID, instanceID string,
	fn func(*process.Instance) error,
) (bool, error) {
	st, err := e.processes.Get(ctx, definitionID)
	if err != nil {
		return false, err
	}

	unlock, err := e.locks.Lock(ctx, definitionID+"/"+instanceID)
	if err != nil {
		return false, err
	}
	defer unlock()

	inst, ok, err := st.Find(ctx, instanceID, persistence.Mutable)
	if !ok || err != nil {
		return false, err
	}

	return true, fn(inst)
}

// openTaskStore opens the engine's user task store.
func (e *Engine) openTaskStore(ctx context.Context) (persistence.Store[*usertask.Instance], error) {
	return e.opts.TaskStorage(ctx, taskScope, &usertask.Codec{})
}

// close closes the engine's stores.
func (e *Engine) close() error {
	return multierr.Append(
		e.processes.Close(),
		e.service.Store.Close(),
	)
}

// instanceManager is a process.Manager that resolves the instance afresh for
// each operation, holding the engine's per-instance lock while it executes.
type instanceManager struct {
	e            *Engine
	definitionID string
	instanceID   string
}

func (m *instanceManager) CompleteWorkItem(ctx context.Context, id string, data map[string]any) error {
	return m.transition(ctx, func(inst *process.Instance) error {
		return inst.CompleteWorkItem(ctx, id, data)
	})
}

func (m *instanceManager) AbortWorkItem(ctx context.Context, id string) error {
	return m.transition(ctx, func(inst *process.Instance) error {
		return inst.AbortWorkItem(ctx, id)
	})
}

func (m *instanceManager) TransitionWorkItem(ctx context.Context, id string, tr process.Transition) error {
	return m.transition(ctx, func(inst *process.Instance) error {
		return inst.TransitionWorkItem(ctx, id, tr)
	})
}

func (m *instanceManager) transition(
	ctx context.Context,
	fn func(*process.Instance) error,
) error {
	found, err := m.e.withInstance(ctx, m.definitionID, m.instanceID, fn)

	if err == nil && !found {
		return UnknownInstanceError{m.definitionID, m.instanceID}
	}

	return err
}

// processProvider opens the store for each registered definition, binding a
// codec to the definition so that durable providers can marshal instances.
type processProvider struct {
	e *Engine
}

func (p *processProvider) Open(
	ctx context.Context,
	definitionID string,
) (persistence.Store[*process.Instance], error) {
	def, ok := p.e.defs[definitionID]
	if !ok {
		return nil, UnknownDefinitionError{definitionID}
	}

	c := &process.Codec{
		Definition: def,
		Dispatcher: p.e.registry,
		Logger:     p.e.opts.Logger,
	}

	st, err := p.e.opts.ProcessStorage(ctx, definitionID, c)
	if err != nil {
		return nil, err
	}

	// The codec produces instances that persist themselves back to the
	// store it belongs to.
	c.Store = st

	return st, nil
}
