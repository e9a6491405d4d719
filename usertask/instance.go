package usertask

import (
	"strings"
	"time"

	"github.com/enactiq/enact/identity"
	"github.com/enactiq/enact/persistence"
	"github.com/enactiq/enact/process"
	"github.com/google/uuid"
)

// Reserved work item parameter names. Parameters with these names configure
// the task instance itself and are not copied into its inputs.
const (
	ParamTaskName    = "TaskName"
	ParamDescription = "Description"
	ParamPriority    = "Priority"

	// ParamActors and ParamGroups are comma-delimited lists of the actors
	// and groups that may claim the task.
	ParamActors = "ActorId"
	ParamGroups = "GroupId"

	// ParamAdminUsers and ParamAdminGroups are comma-delimited lists of the
	// actors and groups that may administer the task.
	ParamAdminUsers  = "BusinessAdministratorId"
	ParamAdminGroups = "BusinessAdministratorGroupId"

	// ParamExcludedUsers is a comma-delimited list of actors that may never
	// act on the task.
	ParamExcludedUsers = "ExcludedOwnerId"

	// Deadline descriptors, carried as typed values rather than strings.
	ParamNotStartedDeadlines       = "NotStartedNotify"
	ParamNotCompletedDeadlines     = "NotCompletedNotify"
	ParamNotStartedReassignments   = "NotStartedReassign"
	ParamNotCompletedReassignments = "NotCompletedReassign"
)

var reservedParams = map[string]struct{}{
	ParamTaskName:                  {},
	ParamDescription:               {},
	ParamPriority:                  {},
	ParamActors:                    {},
	ParamGroups:                    {},
	ParamAdminUsers:                {},
	ParamAdminGroups:               {},
	ParamExcludedUsers:             {},
	ParamNotStartedDeadlines:       {},
	ParamNotCompletedDeadlines:     {},
	ParamNotStartedReassignments:   {},
	ParamNotCompletedReassignments: {},
}

// Deadline describes a notification that fires if the task has not left the
// relevant state after a duration.
type Deadline struct {
	// Duration is the offset of the deadline relative to the task's
	// creation.
	Duration time.Duration `json:"duration"`

	// Notification is the payload delivered when the deadline fires.
	Notification map[string]any `json:"notification,omitempty"`
}

// Reassignment describes an ownership change applied if the task has not
// left the relevant state after a duration.
type Reassignment struct {
	// Duration is the offset of the reassignment relative to the task's
	// creation.
	Duration time.Duration `json:"duration"`

	// Users and Groups are the new potential-owner sets.
	Users  []string `json:"users,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// Comment is a timestamped remark attached to a task.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment is a timestamped reference to external content attached to a
// task.
type Attachment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Name      string    `json:"name"`
	URI       string    `json:"uri"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Instance is a single occurrence of a human task.
//
// Its authorization sets and actual owner are mutated only by lifecycle
// transitions, never directly.
type Instance struct {
	id                  string
	externalReferenceID string
	processInstanceID   string
	processDefinitionID string
	state               State
	taskName            string
	description         string
	priority            int
	potentialUsers      []string
	potentialGroups     []string
	adminUsers          []string
	adminGroups         []string
	excludedUsers       []string
	actualOwner         string
	inputs              map[string]any
	outputs             map[string]any
	comments            []*Comment
	attachments         []*Attachment

	notStartedDeadlines       []Deadline
	notCompletedDeadlines     []Deadline
	notStartedReassignments   []Reassignment
	notCompletedReassignments []Reassignment

	createdAt time.Time
	startedAt time.Time
	readOnly  bool
}

// NewInstance returns a new task instance for the given work item.
//
// Task metadata, authorization sets and deadline descriptors are copied from
// the work item's reserved parameters; all remaining parameters become the
// task's inputs.
func NewInstance(wi *process.WorkItem) *Instance {
	t := &Instance{
		id:                  uuid.NewString(),
		externalReferenceID: wi.ID,
		processInstanceID:   wi.ProcessInstanceID,
		processDefinitionID: wi.ProcessDefinitionID,
		state:               Created,
		taskName:            wi.Name,
		inputs:              map[string]any{},
		outputs:             map[string]any{},
		createdAt:           time.Now(),
	}

	for k, v := range wi.Parameters {
		switch k {
		case ParamTaskName:
			if s, ok := v.(string); ok {
				t.taskName = s
			}
		case ParamDescription:
			t.description, _ = v.(string)
		case ParamPriority:
			switch p := v.(type) {
			case int:
				t.priority = p
			case float64:
				t.priority = int(p)
			}
		case ParamActors:
			t.potentialUsers = splitList(v)
		case ParamGroups:
			t.potentialGroups = splitList(v)
		case ParamAdminUsers:
			t.adminUsers = splitList(v)
		case ParamAdminGroups:
			t.adminGroups = splitList(v)
		case ParamExcludedUsers:
			t.excludedUsers = splitList(v)
		case ParamNotStartedDeadlines:
			t.notStartedDeadlines, _ = v.([]Deadline)
		case ParamNotCompletedDeadlines:
			t.notCompletedDeadlines, _ = v.([]Deadline)
		case ParamNotStartedReassignments:
			t.notStartedReassignments, _ = v.([]Reassignment)
		case ParamNotCompletedReassignments:
			t.notCompletedReassignments, _ = v.([]Reassignment)
		default:
			t.inputs[k] = v
		}
	}

	return t
}

// ID returns the unique identifier of the task instance.
func (t *Instance) ID() string {
	return t.id
}

// ExternalReferenceID returns the ID of the work item the task belongs to.
func (t *Instance) ExternalReferenceID() string {
	return t.externalReferenceID
}

// ProcessInstanceID returns the ID of the process instance that produced the
// task's work item.
func (t *Instance) ProcessInstanceID() string {
	return t.processInstanceID
}

// ProcessDefinitionID returns the ID of the definition of that instance.
func (t *Instance) ProcessDefinitionID() string {
	return t.processDefinitionID
}

// State returns the task's current lifecycle state.
func (t *Instance) State() State {
	return t.state
}

// TaskName returns the task's name.
func (t *Instance) TaskName() string {
	return t.taskName
}

// Description returns the task's human-readable description.
func (t *Instance) Description() string {
	return t.description
}

// Priority returns the task's priority.
func (t *Instance) Priority() int {
	return t.priority
}

// ActualOwner returns the name of the actor that has claimed the task, or an
// empty string if it is unclaimed.
func (t *Instance) ActualOwner() string {
	return t.actualOwner
}

// PotentialUsers returns the actors that may claim the task.
func (t *Instance) PotentialUsers() []string {
	return copyList(t.potentialUsers)
}

// PotentialGroups returns the groups whose members may claim the task.
func (t *Instance) PotentialGroups() []string {
	return copyList(t.potentialGroups)
}

// AdminUsers returns the actors that may administer the task.
func (t *Instance) AdminUsers() []string {
	return copyList(t.adminUsers)
}

// AdminGroups returns the groups whose members may administer the task.
func (t *Instance) AdminGroups() []string {
	return copyList(t.adminGroups)
}

// ExcludedUsers returns the actors that may never act on the task.
func (t *Instance) ExcludedUsers() []string {
	return copyList(t.excludedUsers)
}

// Inputs returns the task's input values.
func (t *Instance) Inputs() map[string]any {
	return copyValues(t.inputs)
}

// Outputs returns the task's output values.
func (t *Instance) Outputs() map[string]any {
	return copyValues(t.outputs)
}

// NotStartedDeadlines returns the deadlines that fire if the task is not
// started in time.
func (t *Instance) NotStartedDeadlines() []Deadline {
	return append([]Deadline(nil), t.notStartedDeadlines...)
}

// NotCompletedDeadlines returns the deadlines that fire if the task is not
// completed in time.
func (t *Instance) NotCompletedDeadlines() []Deadline {
	return append([]Deadline(nil), t.notCompletedDeadlines...)
}

// NotStartedReassignments returns the reassignments that apply if the task
// is not started in time.
func (t *Instance) NotStartedReassignments() []Reassignment {
	return append([]Reassignment(nil), t.notStartedReassignments...)
}

// NotCompletedReassignments returns the reassignments that apply if the task
// is not completed in time.
func (t *Instance) NotCompletedReassignments() []Reassignment {
	return append([]Reassignment(nil), t.notCompletedReassignments...)
}

// CreatedAt returns the time the task was created.
func (t *Instance) CreatedAt() time.Time {
	return t.createdAt
}

// StartedAt returns the time work began on the task, or the zero time if it
// has not been started.
func (t *Instance) StartedAt() time.Time {
	return t.startedAt
}

// apply mutates the task according to a previously validated token.
func (t *Instance) apply(tok Token, who identity.Identity) {
	switch tok.transitionID {
	case TransitionClaim:
		t.actualOwner = who.Name

	case TransitionRelease:
		t.actualOwner = ""

	case TransitionStart:
		if t.actualOwner == "" {
			t.actualOwner = who.Name
		}
		t.startedAt = time.Now()

	case TransitionComplete, TransitionFail:
		if t.outputs == nil {
			t.outputs = map[string]any{}
		}

		for k, v := range tok.data {
			t.outputs[k] = v
		}

	case TransitionReassign:
		if users, ok := tok.data[DataUsers].([]string); ok {
			t.potentialUsers = copyList(users)

			// A reassignment to a single actor claims the task on their
			// behalf; a wider set returns it to the unclaimed pool.
			if len(users) == 1 {
				t.actualOwner = users[0]
			} else {
				t.actualOwner = ""
			}
		}

		if groups, ok := tok.data[DataGroups].([]string); ok {
			t.potentialGroups = copyList(groups)
		}
	}

	t.state = tok.target
}

// authorization returns the task's ownership information in the form
// consumed by the security policy.
func (t *Instance) authorization() identity.Authorization {
	return identity.Authorization{
		ActualOwner:     t.actualOwner,
		PotentialUsers:  strings.Join(t.potentialUsers, ","),
		PotentialGroups: strings.Join(t.potentialGroups, ","),
		ExcludedUsers:   strings.Join(t.excludedUsers, ","),
	}
}

// AddComment adds a comment to the task and returns it.
func (t *Instance) AddComment(author, content string) (*Comment, error) {
	if t.readOnly {
		return nil, persistence.ErrReadOnly
	}

	now := time.Now()
	c := &Comment{
		ID:        uuid.NewString(),
		Author:    author,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.comments = append(t.comments, c)

	return c, nil
}

// UpdateComment replaces the content of the comment with the given ID.
//
// It returns false if no such comment exists.
func (t *Instance) UpdateComment(id, content string) (bool, error) {
	if t.readOnly {
		return false, persistence.ErrReadOnly
	}

	for _, c := range t.comments {
		if c.ID == id {
			c.Content = content
			c.UpdatedAt = time.Now()
			return true, nil
		}
	}

	return false, nil
}

// RemoveComment removes the comment with the given ID.
//
// Removal is idempotent; removing a comment that does not exist is not an
// error.
func (t *Instance) RemoveComment(id string) error {
	if t.readOnly {
		return persistence.ErrReadOnly
	}

	for i, c := range t.comments {
		if c.ID == id {
			t.comments = append(t.comments[:i], t.comments[i+1:]...)
			break
		}
	}

	return nil
}

// Comments returns the task's comments, oldest first.
func (t *Instance) Comments() []*Comment {
	c := make([]*Comment, len(t.comments))
	for i, v := range t.comments {
		cp := *v
		c[i] = &cp
	}

	return c
}

// AddAttachment adds an attachment to the task and returns it.
func (t *Instance) AddAttachment(author, name, uri string) (*Attachment, error) {
	if t.readOnly {
		return nil, persistence.ErrReadOnly
	}

	now := time.Now()
	a := &Attachment{
		ID:        uuid.NewString(),
		Author:    author,
		Name:      name,
		URI:       uri,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.attachments = append(t.attachments, a)

	return a, nil
}

// UpdateAttachment replaces the name and URI of the attachment with the
// given ID.
//
// It returns false if no such attachment exists.
func (t *Instance) UpdateAttachment(id, name, uri string) (bool, error) {
	if t.readOnly {
		return false, persistence.ErrReadOnly
	}

	for _, a := range t.attachments {
		if a.ID == id {
			a.Name = name
			a.URI = uri
			a.UpdatedAt = time.Now()
			return true, nil
		}
	}

	return false, nil
}

// RemoveAttachment removes the attachment with the given ID.
//
// Removal is idempotent; removing an attachment that does not exist is not
// an error.
func (t *Instance) RemoveAttachment(id string) error {
	if t.readOnly {
		return persistence.ErrReadOnly
	}

	for i, a := range t.attachments {
		if a.ID == id {
			t.attachments = append(t.attachments[:i], t.attachments[i+1:]...)
			break
		}
	}

	return nil
}

// Attachments returns the task's attachments, oldest first.
func (t *Instance) Attachments() []*Attachment {
	a := make([]*Attachment, len(t.attachments))
	for i, v := range t.attachments {
		cp := *v
		a[i] = &cp
	}

	return a
}

// InstanceID returns the ID used to key the task within a store.
func (t *Instance) InstanceID() string {
	return t.id
}

// Ended returns true if the task has reached a terminal state.
func (t *Instance) Ended() bool {
	return t.state.Terminal()
}

// ReadOnly returns true if the task is a read-only handle.
func (t *Instance) ReadOnly() bool {
	return t.readOnly
}

// Meta returns the task's metadata.
func (t *Instance) Meta() persistence.Metadata {
	return persistence.Metadata{
		Description: t.description,
		Status:      string(t.state),
	}
}

// Clone returns an independent copy of the task with the given access mode.
func (t *Instance) Clone(mode persistence.AccessMode) *Instance {
	c := *t

	c.potentialUsers = copyList(t.potentialUsers)
	c.potentialGroups = copyList(t.potentialGroups)
	c.adminUsers = copyList(t.adminUsers)
	c.adminGroups = copyList(t.adminGroups)
	c.excludedUsers = copyList(t.excludedUsers)
	c.inputs = copyValues(t.inputs)
	c.outputs = copyValues(t.outputs)
	c.comments = t.Comments()
	c.attachments = t.Attachments()
	c.notStartedDeadlines = t.NotStartedDeadlines()
	c.notCompletedDeadlines = t.NotCompletedDeadlines()
	c.notStartedReassignments = t.NotStartedReassignments()
	c.notCompletedReassignments = t.NotCompletedReassignments()
	c.readOnly = mode == persistence.ReadOnly

	return &c
}

// splitList splits a comma-delimited parameter value into its entries.
func splitList(v any) []string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}

	var list []string
	for _, e := range strings.Split(s, ",") {
		e = strings.TrimSpace(e)
		if e != "" {
			list = append(list, e)
		}
	}

	return list
}

func copyList(list []string) []string {
	if list == nil {
		return nil
	}

	return append([]string(nil), list...)
}

func copyValues(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}

	c := make(map[string]any, len(values))
	for k, v := range values {
		c[k] = v
	}

	return c
}
