package enact

import "fmt"

// UnknownDefinitionError indicates that a definition ID has not been
// registered with the engine.
type UnknownDefinitionError struct {
	DefinitionID string
}

func (e UnknownDefinitionError) Error() string {
	return fmt.Sprintf(
		"the '%s' definition is not registered with this engine",
		e.DefinitionID,
	)
}

// UnknownInstanceError indicates that an instance ID does not refer to any
// stored process instance of a definition.
type UnknownInstanceError struct {
	DefinitionID string
	InstanceID   string
}

func (e UnknownInstanceError) Error() string {
	return fmt.Sprintf(
		"the '%s' definition does not have a stored instance with the ID %s",
		e.DefinitionID,
		e.InstanceID,
	)
}
