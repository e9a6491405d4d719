package usertask

// Lifecycle transition IDs.
const (
	// TransitionClaim reserves the task for the acting identity.
	TransitionClaim = "claim"

	// TransitionRelease returns a reserved or started task to the unclaimed
	// pool.
	TransitionRelease = "release"

	// TransitionStart begins work on the task, claiming it first if it is
	// not already reserved.
	TransitionStart = "start"

	// TransitionStop pauses work on the task, returning it to its owner's
	// reserved state.
	TransitionStop = "stop"

	// TransitionComplete finishes the task normally, recording its outputs.
	TransitionComplete = "complete"

	// TransitionFail finishes the task with a fault.
	TransitionFail = "fail"

	// TransitionSkip administratively skips the task.
	TransitionSkip = "skip"

	// TransitionAbort marks the task obsolete because its owning process
	// instance no longer requires it.
	TransitionAbort = "abort"

	// TransitionReassign replaces the task's potential owners, typically
	// when a deadline elapses.
	TransitionReassign = "reassign"

	// TransitionNotify fires a deadline notification without changing the
	// task's state.
	TransitionNotify = "notify"
)

// Data keys recognized on transition payloads.
const (
	// DataUsers carries the new potential-user set of a reassignment.
	DataUsers = "users"

	// DataGroups carries the new potential-group set of a reassignment.
	DataGroups = "groups"
)

// rule describes the legality and effect of a single transition.
type rule struct {
	// sources are the states the transition may be made from. A nil slice
	// allows any non-terminal state.
	sources []State

	// target is the state the transition moves to. An empty target leaves
	// the state unchanged.
	target State

	// authorized is true if the acting identity must satisfy the ownership
	// policy before the transition is applied.
	authorized bool
}

var rules = map[string]rule{
	TransitionClaim:    {sources: []State{Created}, target: Reserved, authorized: true},
	TransitionRelease:  {sources: []State{Reserved, InProgress}, target: Created, authorized: true},
	TransitionStart:    {sources: []State{Created, Reserved}, target: InProgress, authorized: true},
	TransitionStop:     {sources: []State{InProgress}, target: Reserved},
	TransitionComplete: {sources: []State{Created, Reserved, InProgress}, target: Completed, authorized: true},
	TransitionFail:     {sources: []State{Created, Reserved, InProgress}, target: Failed, authorized: true},
	TransitionSkip:     {target: Skipped, authorized: true},
	TransitionAbort:    {target: Obsolete},
	TransitionReassign: {target: Reserved, authorized: true},
	TransitionNotify:   {},
}

// Token is a validated request to apply a lifecycle transition to a specific
// task instance.
//
// Tokens are produced by Instance.NewToken(); a token in hand proves that
// the transition was legal from the state the task was in when the token was
// created.
type Token struct {
	transitionID string
	source       State
	target       State
	data         map[string]any
	authorized   bool
}

// TransitionID returns the ID of the transition the token applies.
func (t Token) TransitionID() string {
	return t.transitionID
}

// Target returns the state the transition moves to.
func (t Token) Target() State {
	return t.target
}

// Data returns the payload carried by the token.
func (t Token) Data() map[string]any {
	return t.data
}

// NewToken validates that the transition with the given ID is legal from the
// task's current state and returns a token that applies it.
//
// It returns an IllegalTransitionError if the transition is unknown, the
// task has already reached a terminal state, or the transition is not
// permitted from the current state.
func (t *Instance) NewToken(transitionID string, data map[string]any) (Token, error) {
	r, ok := rules[transitionID]

	if !ok || t.state.Terminal() {
		return Token{}, IllegalTransitionError{
			TaskID:     t.id,
			Transition: transitionID,
			State:      t.state,
		}
	}

	if r.sources != nil {
		legal := false
		for _, s := range r.sources {
			if s == t.state {
				legal = true
				break
			}
		}

		if !legal {
			return Token{}, IllegalTransitionError{
				TaskID:     t.id,
				Transition: transitionID,
				State:      t.state,
			}
		}
	}

	target := r.target
	if target == "" {
		target = t.state
	}

	return Token{
		transitionID: transitionID,
		source:       t.state,
		target:       target,
		data:         data,
		authorized:   r.authorized,
	}, nil
}
