package usertask

import "context"

// Event describes a lifecycle transition that has been applied to a task
// instance.
type Event struct {
	// Task is a read-only view of the task after the transition.
	Task *Instance

	// Transition is the ID of the transition that was applied.
	Transition string

	// From and To are the task's states before and after the transition.
	From, To State

	// Data is the payload carried by the transition, such as a completing
	// user's outputs or the message of a deadline notification.
	Data map[string]any

	// Terminal is true if the transition moved the task to a terminal
	// state.
	Terminal bool

	// UserDriven is false if the transition was initiated by the engine
	// itself, such as a deadline firing.
	UserDriven bool
}

// Listener is a function notified after each lifecycle transition.
//
// An error returned from a listener propagates to the caller that requested
// the transition; the transition itself has already been persisted.
type Listener func(ctx context.Context, ev Event) error
