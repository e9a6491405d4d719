package handler

import "fmt"

// UnknownHandlerError indicates that a work item names a handler that is not
// registered.
type UnknownHandlerError struct {
	Name string
}

func (e UnknownHandlerError) Error() string {
	return fmt.Sprintf("no handler is registered for work items named %#v", e.Name)
}
