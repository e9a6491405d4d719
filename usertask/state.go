// Package usertask implements the lifecycle state machine for human task
// instances, and the service layer that serializes, authorizes and persists
// lifecycle transitions.
package usertask

// State is a named state within the user task lifecycle.
type State string

const (
	// Created is the initial state of every task instance. The task has no
	// actual owner yet.
	Created State = "Created"

	// Reserved is the state of a task that has been claimed by an actor.
	Reserved State = "Reserved"

	// InProgress is the state of a task that its owner has started working
	// on.
	InProgress State = "InProgress"

	// Completed is the terminal state of a task that was finished normally.
	Completed State = "Completed"

	// Failed is the terminal state of a task whose owner reported a fault.
	Failed State = "Failed"

	// Skipped is the terminal state of a task that was administratively
	// skipped.
	Skipped State = "Skipped"

	// Obsolete is the terminal state of a task whose owning process instance
	// no longer requires it, such as when the process is aborted.
	Obsolete State = "Obsolete"
)

// Terminal returns true if no further transitions can be applied from s.
func (s State) Terminal() bool {
	switch s {
	case Completed, Failed, Skipped, Obsolete:
		return true
	default:
		return false
	}
}
