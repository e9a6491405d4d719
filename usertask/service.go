package usertask

import (
	"context"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/enactiq/enact/identity"
	"github.com/enactiq/enact/internal/mlog"
	"github.com/enactiq/enact/internal/x/syncx"
	"github.com/enactiq/enact/persistence"
	"go.uber.org/multierr"
)

// DefaultTimeout is the default timeout applied to each service operation.
const DefaultTimeout = 5 * time.Second

// Service applies lifecycle transitions to stored task instances.
//
// The store contract does not provide compare-and-swap semantics, so the
// service serializes all operations against the same task ID with a per-ID
// mutex. Operations against different task IDs proceed in parallel.
type Service struct {
	// Store is the store that task instances are persisted to.
	Store persistence.Store[*Instance]

	// Listeners are notified after each lifecycle transition, in order.
	Listeners []Listener

	// DefaultTimeout is the timeout applied to each operation. If it is
	// zero, DefaultTimeout is used.
	DefaultTimeout time.Duration

	// Logger is the target for messages about lifecycle transitions.
	Logger logging.Logger

	locks syncx.MutexNamespace
}

// Create persists a new task instance and fires the initial state-change
// event.
func (s *Service) Create(ctx context.Context, t *Instance) error {
	ctx, cancel := linger.ContextWithTimeout(ctx, s.DefaultTimeout, DefaultTimeout)
	defer cancel()

	if err := s.Store.Create(ctx, t.ID(), t); err != nil {
		return err
	}

	mlog.LogTaskTransition(
		s.Logger,
		t.ID(),
		"create",
		string(Created),
		string(Created),
		true,
	)

	return s.publish(
		ctx,
		Event{
			Task:       t.Clone(persistence.ReadOnly),
			Transition: "create",
			From:       Created,
			To:         Created,
			UserDriven: true,
		},
	)
}

// Get returns a read-only view of the task with the given ID, or false if no
// such task is stored.
func (s *Service) Get(ctx context.Context, taskID string) (*Instance, bool, error) {
	ctx, cancel := linger.ContextWithTimeout(ctx, s.DefaultTimeout, DefaultTimeout)
	defer cancel()

	return s.Store.Find(ctx, taskID, persistence.ReadOnly)
}

// GetByWorkItem returns a read-only view of the task belonging to the work
// item with the given ID, or false if no such task is stored.
func (s *Service) GetByWorkItem(ctx context.Context, workItemID string) (*Instance, bool, error) {
	ctx, cancel := linger.ContextWithTimeout(ctx, s.DefaultTimeout, DefaultTimeout)
	defer cancel()

	var found *Instance

	err := s.Store.Each(
		ctx,
		persistence.ReadOnly,
		func(t *Instance) (bool, error) {
			if t.ExternalReferenceID() == workItemID {
				found = t
				return false, nil
			}

			return true, nil
		},
	)

	return found, found != nil, err
}

// Transition applies the transition with the given ID to a task on behalf of
// an actor.
func (s *Service) Transition(
	ctx context.Context,
	taskID string,
	transitionID string,
	data map[string]any,
	who identity.Identity,
) error {
	return s.apply(ctx, taskID, transitionID, data, who, true)
}

// Claim reserves the task for the acting identity.
func (s *Service) Claim(ctx context.Context, taskID string, who identity.Identity) error {
	return s.apply(ctx, taskID, TransitionClaim, nil, who, true)
}

// Release returns the task to the unclaimed pool.
func (s *Service) Release(ctx context.Context, taskID string, who identity.Identity) error {
	return s.apply(ctx, taskID, TransitionRelease, nil, who, true)
}

// Start begins work on the task, claiming it first if necessary.
func (s *Service) Start(ctx context.Context, taskID string, who identity.Identity) error {
	return s.apply(ctx, taskID, TransitionStart, nil, who, true)
}

// Stop pauses work on the task.
func (s *Service) Stop(ctx context.Context, taskID string, who identity.Identity) error {
	return s.apply(ctx, taskID, TransitionStop, nil, who, true)
}

// Complete finishes the task normally, recording its outputs.
func (s *Service) Complete(
	ctx context.Context,
	taskID string,
	outputs map[string]any,
	who identity.Identity,
) error {
	return s.apply(ctx, taskID, TransitionComplete, outputs, who, true)
}

// Fail finishes the task with a fault.
func (s *Service) Fail(
	ctx context.Context,
	taskID string,
	faultData map[string]any,
	who identity.Identity,
) error {
	return s.apply(ctx, taskID, TransitionFail, faultData, who, true)
}

// Skip administratively skips the task.
func (s *Service) Skip(ctx context.Context, taskID string, who identity.Identity) error {
	return s.apply(ctx, taskID, TransitionSkip, nil, who, true)
}

// Abort marks the task obsolete on behalf of its owning process instance.
//
// userDriven reflects whether the process-side operation that triggered the
// abort was itself initiated by a user.
func (s *Service) Abort(ctx context.Context, taskID string, userDriven bool) error {
	return s.apply(ctx, taskID, TransitionAbort, nil, identity.Anonymous, userDriven)
}

// Finalize applies a transition on the engine's own authority, bypassing the
// ownership policy.
//
// It is used when a task must be brought in line with its work item, such as
// when the work item is completed directly on the process instance.
func (s *Service) Finalize(
	ctx context.Context,
	taskID string,
	transitionID string,
	data map[string]any,
) error {
	return s.apply(ctx, taskID, transitionID, data, identity.Anonymous, false)
}

// Reassign replaces the task's potential-owner sets. It is invoked by the
// deadline timer, so it is engine-driven by definition.
func (s *Service) Reassign(ctx context.Context, taskID string, users, groups []string) error {
	data := map[string]any{
		DataUsers: users,
	}

	if groups != nil {
		data[DataGroups] = groups
	}

	return s.apply(ctx, taskID, TransitionReassign, data, identity.Anonymous, false)
}

// Notify fires a deadline notification against the task without changing its
// state.
func (s *Service) Notify(ctx context.Context, taskID string, payload map[string]any) error {
	return s.apply(ctx, taskID, TransitionNotify, payload, identity.Anonymous, false)
}

// AddComment adds a comment to the task and returns it.
func (s *Service) AddComment(
	ctx context.Context,
	taskID string,
	who identity.Identity,
	content string,
) (*Comment, error) {
	var c *Comment

	err := s.update(ctx, taskID, func(t *Instance) error {
		var err error
		c, err = t.AddComment(who.Name, content)
		return err
	})

	return c, err
}

// UpdateComment replaces the content of a comment on the task.
//
// It returns false if no such comment exists.
func (s *Service) UpdateComment(ctx context.Context, taskID, commentID, content string) (bool, error) {
	var ok bool

	err := s.update(ctx, taskID, func(t *Instance) error {
		var err error
		ok, err = t.UpdateComment(commentID, content)
		return err
	})

	return ok, err
}

// RemoveComment removes a comment from the task.
func (s *Service) RemoveComment(ctx context.Context, taskID, commentID string) error {
	return s.update(ctx, taskID, func(t *Instance) error {
		return t.RemoveComment(commentID)
	})
}

// AddAttachment adds an attachment to the task and returns it.
func (s *Service) AddAttachment(
	ctx context.Context,
	taskID string,
	who identity.Identity,
	name, uri string,
) (*Attachment, error) {
	var a *Attachment

	err := s.update(ctx, taskID, func(t *Instance) error {
		var err error
		a, err = t.AddAttachment(who.Name, name, uri)
		return err
	})

	return a, err
}

// UpdateAttachment replaces the name and URI of an attachment on the task.
//
// It returns false if no such attachment exists.
func (s *Service) UpdateAttachment(ctx context.Context, taskID, attachmentID, name, uri string) (bool, error) {
	var ok bool

	err := s.update(ctx, taskID, func(t *Instance) error {
		var err error
		ok, err = t.UpdateAttachment(attachmentID, name, uri)
		return err
	})

	return ok, err
}

// RemoveAttachment removes an attachment from the task.
func (s *Service) RemoveAttachment(ctx context.Context, taskID, attachmentID string) error {
	return s.update(ctx, taskID, func(t *Instance) error {
		return t.RemoveAttachment(attachmentID)
	})
}

// apply loads a task, validates and applies a transition, persists the
// result and publishes the state-change event.
func (s *Service) apply(
	ctx context.Context,
	taskID string,
	transitionID string,
	data map[string]any,
	who identity.Identity,
	userDriven bool,
) error {
	ctx, cancel := linger.ContextWithTimeout(ctx, s.DefaultTimeout, DefaultTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, taskID)
	if err != nil {
		return err
	}
	defer unlock()

	t, ok, err := s.Store.Find(ctx, taskID, persistence.Mutable)
	if err != nil {
		return err
	}

	if !ok {
		return NotFoundError{TaskID: taskID}
	}

	tok, err := t.NewToken(transitionID, data)
	if err != nil {
		return err
	}

	// Engine-driven transitions act on the engine's own authority; the
	// ownership policy applies only to user-driven transitions.
	if userDriven && tok.authorized {
		if err := identity.Authorize(taskID, t.authorization(), who); err != nil {
			return err
		}
	}

	from := t.State()
	t.apply(tok, who)

	mlog.LogTaskTransition(
		s.Logger,
		taskID,
		transitionID,
		string(from),
		string(t.State()),
		userDriven,
	)

	if err := s.Store.Update(ctx, taskID, t); err != nil {
		return err
	}

	return s.publish(
		ctx,
		Event{
			Task:       t.Clone(persistence.ReadOnly),
			Transition: transitionID,
			From:       from,
			To:         t.State(),
			Data:       data,
			Terminal:   t.State().Terminal(),
			UserDriven: userDriven,
		},
	)
}

// update loads a task, applies fn to it and persists the result.
func (s *Service) update(
	ctx context.Context,
	taskID string,
	fn func(*Instance) error,
) error {
	ctx, cancel := linger.ContextWithTimeout(ctx, s.DefaultTimeout, DefaultTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, taskID)
	if err != nil {
		return err
	}
	defer unlock()

	t, ok, err := s.Store.Find(ctx, taskID, persistence.Mutable)
	if err != nil {
		return err
	}

	if !ok {
		return NotFoundError{TaskID: taskID}
	}

	if err := fn(t); err != nil {
		return err
	}

	return s.Store.Update(ctx, taskID, t)
}

// publish notifies the listeners of an event.
func (s *Service) publish(ctx context.Context, ev Event) error {
	var err error

	for _, l := range s.Listeners {
		err = multierr.Append(err, l(ctx, ev))
	}

	return err
}
