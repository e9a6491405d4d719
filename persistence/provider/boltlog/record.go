package boltlog

import "encoding/json"

const (
	// opSave is a log record that creates or overwrites an instance.
	opSave = "save"

	// opRemove is a log record that removes an instance.
	opRemove = "remove"
)

// record is the representation of a single log entry.
type record struct {
	Op          string `json:"op"`
	InstanceID  string `json:"id"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

func marshalRecord(rec record) ([]byte, error) {
	return json.Marshal(rec)
}

func unmarshalRecord(data []byte) (record, error) {
	var rec record
	return rec, json.Unmarshal(data, &rec)
}

// viewRecord is the materialized state of one instance in the local view.
type viewRecord struct {
	description string
	status      string
	data        []byte
}
