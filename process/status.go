// Package process implements the process instance lifecycle state machine
// and the work-item handoff protocol between a process instance and its
// pluggable work item handlers.
package process

import "fmt"

// Status is the lifecycle status of a process instance.
type Status int

const (
	// Pending is the status of an instance that has been created but not yet
	// started.
	Pending Status = iota

	// Active is the status of an instance that has started and has not yet
	// reached a terminal status.
	Active

	// Completed is the status of an instance that has run to completion.
	Completed

	// Aborted is the status of an instance that was aborted before
	// completing.
	Aborted

	// Faulted is the status of an instance that encountered an unhandled
	// fault during execution. Faulted instances remain addressable but do
	// not resume without explicit intervention.
	Faulted
)

// Ended returns true if the status is terminal.
//
// Faulted is deliberately not terminal; faulted instances remain stored so
// that they can be inspected and aborted.
func (s Status) Ended() bool {
	return s == Completed || s == Aborted
}

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Active:
		return "Active"
	case Completed:
		return "Completed"
	case Aborted:
		return "Aborted"
	case Faulted:
		return "Error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// statusByName maps the string representation of each status back to its
// value, for use by the codec.
var statusByName = map[string]Status{
	"Pending":   Pending,
	"Active":    Active,
	"Completed": Completed,
	"Aborted":   Aborted,
	"Error":     Faulted,
}
