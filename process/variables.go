package process

// Variables is a typed variable container bound into a process instance for
// the duration of its execution.
type Variables interface {
	// Bind returns the variable values as an untyped mapping consumed by the
	// runtime.
	Bind() map[string]any

	// Unbind copies values from the runtime's mapping back into the
	// container.
	Unbind(values map[string]any)
}

// MapVariables is a Variables implementation backed by a plain map.
type MapVariables map[string]any

// Bind returns a copy of the map.
func (v MapVariables) Bind() map[string]any {
	values := make(map[string]any, len(v))
	for k, val := range v {
		values[k] = val
	}

	return values
}

// Unbind copies values back into the map.
func (v MapVariables) Unbind(values map[string]any) {
	for k := range v {
		delete(v, k)
	}

	for k, val := range values {
		v[k] = val
	}
}
