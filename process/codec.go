package process

import (
	"encoding/json"
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/enactiq/enact/persistence"
)

// Codec is a persistence.Codec implementation for process instances.
//
// Unmarshalled instances are reconnected to the codec's definition and
// collaborators; their runtime is reconstructed lazily, on the first
// operation that needs it.
//
// Store is the store the unmarshalled instances persist themselves to. It
// can not be populated until the store itself has been opened with this
// codec, so it is assigned separately, before any instance is unmarshalled.
type Codec struct {
	Definition Definition
	Dispatcher Dispatcher
	Store      persistence.Store[*Instance]
	Logger     logging.Logger
}

type instanceRecord struct {
	ID          string         `json:"id"`
	Description string         `json:"description,omitempty"`
	ParentID    string         `json:"parent_id,omitempty"`
	RootID      string         `json:"root_id,omitempty"`
	Status      string         `json:"status"`
	Variables   map[string]any `json:"variables,omitempty"`
	Snapshot    map[string]any `json:"snapshot,omitempty"`
	WorkItems   []*WorkItem    `json:"work_items,omitempty"`
	Activated   []string       `json:"activated,omitempty"`
}

// MarshalInstance returns the binary representation of inst.
func (c *Codec) MarshalInstance(inst *Instance) ([]byte, error) {
	// Snapshot the live runtime, if any, without disturbing the instance.
	snap := inst.Clone(persistence.ReadOnly)

	rec := instanceRecord{
		ID:          snap.id,
		Description: snap.description,
		ParentID:    snap.parentID,
		RootID:      snap.rootID,
		Status:      snap.status.String(),
		Variables:   snap.variables,
		Snapshot:    snap.snapshot,
		WorkItems:   snap.workItems,
	}

	for id := range snap.activated {
		rec.Activated = append(rec.Activated, id)
	}

	return json.Marshal(rec)
}

// UnmarshalInstance reconstructs an instance from its binary representation.
func (c *Codec) UnmarshalInstance(data []byte) (*Instance, error) {
	var rec instanceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	status, ok := statusByName[rec.Status]
	if !ok {
		return nil, fmt.Errorf("unrecognized process instance status: %s", rec.Status)
	}

	s := &Instance{
		def:         c.Definition,
		store:       c.Store,
		dispatcher:  c.Dispatcher,
		logger:      c.Logger,
		id:          rec.ID,
		description: rec.Description,
		parentID:    rec.ParentID,
		rootID:      rec.RootID,
		status:      status,
		variables:   rec.Variables,
		snapshot:    rec.Snapshot,
		workItems:   rec.WorkItems,
		activated:   map[string]struct{}{},
	}

	for _, id := range rec.Activated {
		s.activated[id] = struct{}{}
	}

	return s, nil
}
