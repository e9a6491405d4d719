// Package timer delivers deadline-driven transitions to user task instances.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
	"github.com/enactiq/enact/internal/mlog"
	"github.com/enactiq/enact/internal/x/containerx/pdeque"
	"github.com/enactiq/enact/usertask"
)

// DefaultBackoff is the default strategy for delaying redelivery of a
// deadline after a failure.
var DefaultBackoff backoff.Strategy = backoff.WithTransforms(
	backoff.Exponential(100*time.Millisecond),
	linger.FullJitter,
	linger.Limiter(0, 1*time.Minute),
)

// Service is the subset of the user task service that deadlines are delivered
// to.
type Service interface {
	// Notify applies a notification transition to a task.
	Notify(ctx context.Context, taskID string, payload map[string]any) error

	// Reassign changes the set of users that a task is offered to.
	Reassign(ctx context.Context, taskID string, users, groups []string) error
}

// Scheduler is an in-memory deadline scheduler.
//
// It accumulates the deadlines of live user task instances and delivers each
// one to the task service when its time elapses. Deliveries are at-least-once;
// a deadline that can no longer be applied to its task is discarded.
//
// It implements the humantask.Scheduler interface.
type Scheduler struct {
	// Tasks is the service that deadlines are delivered to.
	Tasks Service

	// BackoffStrategy is the strategy used to delay redelivery of a deadline
	// after a failure. If it is nil, DefaultBackoff is used.
	BackoffStrategy backoff.Strategy

	// Logger is the target for messages about deadline deliveries.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	m       sync.Mutex
	pending pdeque.Deque
	wake    chan struct{}
}

// deadline is a scheduled delivery against a single task.
//
// It implements the pdeque.Elem interface.
type deadline struct {
	taskID  string
	at      time.Time
	attempt int

	reassign bool
	payload  map[string]any
	users    []string
	groups   []string
}

func (d *deadline) Less(v pdeque.Elem) bool {
	return d.at.Before(
		v.(*deadline).at,
	)
}

func (d *deadline) transition() string {
	if d.reassign {
		return usertask.TransitionReassign
	}

	return usertask.TransitionNotify
}

// ScheduleNotify schedules delivery of a notification to a task.
func (s *Scheduler) ScheduleNotify(
	taskID string,
	at time.Time,
	payload map[string]any,
) {
	s.push(&deadline{
		taskID:  taskID,
		at:      at,
		payload: payload,
	})
}

// ScheduleReassign schedules an ownership change against a task.
func (s *Scheduler) ScheduleReassign(
	taskID string,
	at time.Time,
	users, groups []string,
) {
	s.push(&deadline{
		taskID:   taskID,
		at:       at,
		reassign: true,
		users:    users,
		groups:   groups,
	})
}

// Cancel discards all pending deadlines against a task.
//
// A deadline that has already been popped for delivery is not discarded;
// delivering it is harmless, as the task service rejects transitions against
// ended tasks.
func (s *Scheduler) Cancel(taskID string) {
	s.m.Lock()
	defer s.m.Unlock()

	for s.pending.Remove(
		func(e pdeque.Elem) bool {
			return e.(*deadline).taskID == taskID
		},
	) {
	}
}

// Run delivers deadlines as they elapse until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		d, wait, ok := s.peekOrPopIfElapsed()

		if ok && wait <= 0 {
			s.deliver(ctx, d)
			continue
		}

		var (
			t       *time.Timer
			elapsed <-chan time.Time
		)

		if ok {
			t = time.NewTimer(wait)
			elapsed = t.C
		}

		select {
		case <-ctx.Done():
			if t != nil {
				t.Stop()
			}
			return ctx.Err()
		case <-s.wakeChan():
			// The front of the pending queue has changed.
			if t != nil {
				t.Stop()
			}
		case <-elapsed:
		}
	}
}

// peekOrPopIfElapsed returns the deadline at the front of the pending queue.
//
// Additionally, if that deadline has already elapsed it is popped, in which
// case wait <= 0.
//
// If the pending queue is empty, ok is false.
func (s *Scheduler) peekOrPopIfElapsed() (d *deadline, wait time.Duration, ok bool) {
	s.m.Lock()
	defer s.m.Unlock()

	e, ok := s.pending.PeekFront()
	if !ok {
		return nil, 0, false
	}

	d = e.(*deadline)
	wait = time.Until(d.at)

	if wait <= 0 {
		s.pending.PopFront()
	}

	return d, wait, true
}

// deliver applies a deadline to its task.
//
// If the delivery fails for any reason other than the deadline having been
// superseded, it is rescheduled as per the backoff strategy.
func (s *Scheduler) deliver(ctx context.Context, d *deadline) {
	mlog.LogDeadline(s.Logger, d.taskID, d.transition(), d.attempt)

	var err error
	if d.reassign {
		err = s.Tasks.Reassign(ctx, d.taskID, d.users, d.groups)
	} else {
		err = s.Tasks.Notify(ctx, d.taskID, d.payload)
	}

	if err == nil {
		return
	}

	if superseded(err) {
		logging.Debug(
			s.Logger,
			"discarding a deadline against task %s: %s",
			d.taskID,
			err,
		)

		return
	}

	strategy := s.BackoffStrategy
	if strategy == nil {
		strategy = DefaultBackoff
	}

	d.at = time.Now().Add(
		strategy(err, uint(d.attempt)),
	)
	d.attempt++

	mlog.LogDeadlineFailure(s.Logger, d.taskID, err, d.at)

	s.push(d)
}

// superseded returns true if err indicates that a deadline no longer applies
// to its task.
func superseded(err error) bool {
	var (
		nf usertask.NotFoundError
		it usertask.IllegalTransitionError
	)

	return errors.As(err, &nf) || errors.As(err, &it)
}

// push adds d to the pending queue, waking the run loop if d is now at the
// front.
func (s *Scheduler) push(d *deadline) {
	s.m.Lock()
	front := s.pending.Push(d)
	s.m.Unlock()

	if front {
		select {
		case s.wakeChan() <- struct{}{}:
		default:
		}
	}
}

func (s *Scheduler) wakeChan() chan struct{} {
	s.m.Lock()
	defer s.m.Unlock()

	if s.wake == nil {
		s.wake = make(chan struct{}, 1)
	}

	return s.wake
}
