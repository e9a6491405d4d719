package usertask

import "fmt"

// IllegalTransitionError indicates that a transition is not legal from the
// task's current state.
type IllegalTransitionError struct {
	TaskID     string
	Transition string
	State      State
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf(
		"task %s can not make the %s transition from the %s state",
		e.TaskID,
		e.Transition,
		e.State,
	)
}

// NotFoundError indicates that a task ID does not refer to any stored task
// instance.
type NotFoundError struct {
	TaskID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("task %s does not exist", e.TaskID)
}
