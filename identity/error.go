package identity

import "fmt"

// NotAuthorizedError is the error returned when an identity attempts an
// operation on a user task that it is not authorized to perform.
type NotAuthorizedError struct {
	// TaskID is the ID of the task the operation was attempted against.
	TaskID string

	// Identity is the identity that attempted the operation.
	Identity Identity

	// Owner is the name of the actor that has already claimed the task, if
	// the failure is due to the task being claimed by somebody else.
	Owner string
}

func (e NotAuthorizedError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf(
			"user '%s' is not authorized to operate on task '%s', it is already claimed by '%s'",
			e.Identity.Name,
			e.TaskID,
			e.Owner,
		)
	}

	return fmt.Sprintf(
		"user '%s' is not a potential owner of task '%s'",
		e.Identity.Name,
		e.TaskID,
	)
}
