package usertask

import (
	"encoding/json"
	"time"
)

// Codec is a persistence.Codec implementation for task instances.
type Codec struct{}

type instanceRecord struct {
	ID                  string         `json:"id"`
	ExternalReferenceID string         `json:"external_reference_id"`
	ProcessInstanceID   string         `json:"process_instance_id,omitempty"`
	ProcessDefinitionID string         `json:"process_definition_id,omitempty"`
	State               State          `json:"state"`
	TaskName            string         `json:"task_name,omitempty"`
	Description         string         `json:"description,omitempty"`
	Priority            int            `json:"priority,omitempty"`
	PotentialUsers      []string       `json:"potential_users,omitempty"`
	PotentialGroups     []string       `json:"potential_groups,omitempty"`
	AdminUsers          []string       `json:"admin_users,omitempty"`
	AdminGroups         []string       `json:"admin_groups,omitempty"`
	ExcludedUsers       []string       `json:"excluded_users,omitempty"`
	ActualOwner         string         `json:"actual_owner,omitempty"`
	Inputs              map[string]any `json:"inputs,omitempty"`
	Outputs             map[string]any `json:"outputs,omitempty"`
	Comments            []*Comment     `json:"comments,omitempty"`
	Attachments         []*Attachment  `json:"attachments,omitempty"`

	NotStartedDeadlines       []Deadline     `json:"not_started_deadlines,omitempty"`
	NotCompletedDeadlines     []Deadline     `json:"not_completed_deadlines,omitempty"`
	NotStartedReassignments   []Reassignment `json:"not_started_reassignments,omitempty"`
	NotCompletedReassignments []Reassignment `json:"not_completed_reassignments,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// MarshalInstance returns the binary representation of t.
func (Codec) MarshalInstance(t *Instance) ([]byte, error) {
	rec := instanceRecord{
		ID:                  t.id,
		ExternalReferenceID: t.externalReferenceID,
		ProcessInstanceID:   t.processInstanceID,
		ProcessDefinitionID: t.processDefinitionID,
		State:               t.state,
		TaskName:            t.taskName,
		Description:         t.description,
		Priority:            t.priority,
		PotentialUsers:      t.potentialUsers,
		PotentialGroups:     t.potentialGroups,
		AdminUsers:          t.adminUsers,
		AdminGroups:         t.adminGroups,
		ExcludedUsers:       t.excludedUsers,
		ActualOwner:         t.actualOwner,
		Inputs:              t.inputs,
		Outputs:             t.outputs,
		Comments:            t.comments,
		Attachments:         t.attachments,

		NotStartedDeadlines:       t.notStartedDeadlines,
		NotCompletedDeadlines:     t.notCompletedDeadlines,
		NotStartedReassignments:   t.notStartedReassignments,
		NotCompletedReassignments: t.notCompletedReassignments,

		CreatedAt: t.createdAt,
	}

	if !t.startedAt.IsZero() {
		rec.StartedAt = &t.startedAt
	}

	return json.Marshal(rec)
}

// UnmarshalInstance reconstructs a task instance from its binary
// representation.
func (Codec) UnmarshalInstance(data []byte) (*Instance, error) {
	var rec instanceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	if rec.Inputs == nil {
		rec.Inputs = map[string]any{}
	}

	if rec.Outputs == nil {
		rec.Outputs = map[string]any{}
	}

	t := &Instance{
		id:                  rec.ID,
		externalReferenceID: rec.ExternalReferenceID,
		processInstanceID:   rec.ProcessInstanceID,
		processDefinitionID: rec.ProcessDefinitionID,
		state:               rec.State,
		taskName:            rec.TaskName,
		description:         rec.Description,
		priority:            rec.Priority,
		potentialUsers:      rec.PotentialUsers,
		potentialGroups:     rec.PotentialGroups,
		adminUsers:          rec.AdminUsers,
		adminGroups:         rec.AdminGroups,
		excludedUsers:       rec.ExcludedUsers,
		actualOwner:         rec.ActualOwner,
		inputs:              rec.Inputs,
		outputs:             rec.Outputs,
		comments:            rec.Comments,
		attachments:         rec.Attachments,

		notStartedDeadlines:       rec.NotStartedDeadlines,
		notCompletedDeadlines:     rec.NotCompletedDeadlines,
		notStartedReassignments:   rec.NotStartedReassignments,
		notCompletedReassignments: rec.NotCompletedReassignments,

		createdAt: rec.CreatedAt,
	}

	if rec.StartedAt != nil {
		t.startedAt = *rec.StartedAt
	}

	return t, nil
}
