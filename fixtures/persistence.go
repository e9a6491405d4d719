// Package fixtures contains test fixtures for the enact engine.
package fixtures

import (
	"encoding/json"

	"github.com/enactiq/enact/persistence"
)

// StubInstance is a minimal persistable entity used to test store
// implementations.
type StubInstance struct {
	ID          string
	Description string
	Status      string
	Terminal    bool
	Payload     map[string]string

	readOnly bool
}

// NewStubInstance returns a new stub instance with the given ID.
func NewStubInstance(id string) *StubInstance {
	return &StubInstance{
		ID:          id,
		Description: "<description of " + id + ">",
		Status:      "Active",
		Payload: map[string]string{
			"test": "value",
		},
	}
}

// InstanceID returns the unique ID of the instance.
func (i *StubInstance) InstanceID() string {
	return i.ID
}

// Ended returns true if the instance has reached a terminal status.
func (i *StubInstance) Ended() bool {
	return i.Terminal
}

// ReadOnly returns true if this handle is a read-only snapshot.
func (i *StubInstance) ReadOnly() bool {
	return i.readOnly
}

// Meta returns the instance's queryable metadata.
func (i *StubInstance) Meta() persistence.Metadata {
	return persistence.Metadata{
		Description: i.Description,
		Status:      i.Status,
	}
}

// Clone returns an independent deep copy of the instance.
func (i *StubInstance) Clone(mode persistence.AccessMode) *StubInstance {
	clone := *i
	clone.readOnly = mode == persistence.ReadOnly

	clone.Payload = make(map[string]string, len(i.Payload))
	for k, v := range i.Payload {
		clone.Payload[k] = v
	}

	return &clone
}

// StubCodec is a persistence.Codec for StubInstance values.
type StubCodec struct{}

// MarshalInstance marshals a stub instance to its JSON representation.
func (StubCodec) MarshalInstance(i *StubInstance) ([]byte, error) {
	return json.Marshal(i)
}

// UnmarshalInstance unmarshals a stub instance from its JSON representation.
func (StubCodec) UnmarshalInstance(data []byte) (*StubInstance, error) {
	i := &StubInstance{}
	return i, json.Unmarshal(data, i)
}
