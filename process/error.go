package process

import "fmt"

// UnknownWorkItemError indicates that a work item ID does not refer to any
// pending work item of the instance.
type UnknownWorkItemError struct {
	InstanceID string
	WorkItemID string
}

func (e UnknownWorkItemError) Error() string {
	return fmt.Sprintf(
		"process instance %s has no pending work item with ID %s",
		e.InstanceID,
		e.WorkItemID,
	)
}

// InvalidStatusError indicates that an operation was attempted against an
// instance whose status does not permit it.
type InvalidStatusError struct {
	InstanceID string
	Op         string
	Status     Status
}

func (e InvalidStatusError) Error() string {
	return fmt.Sprintf(
		"can not %s process instance %s, its status is %s",
		e.Op,
		e.InstanceID,
		e.Status,
	)
}
