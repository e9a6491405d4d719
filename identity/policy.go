package identity

import "strings"

// Authorization describes who may act on a user task.
//
// The user and group fields are comma-delimited lists, mirroring how they are
// carried on work item parameters.
type Authorization struct {
	// ActualOwner is the name of the actor that has claimed the task, if any.
	ActualOwner string

	// PotentialUsers is a comma-delimited list of actor names that may act on
	// the task.
	PotentialUsers string

	// PotentialGroups is a comma-delimited list of role names whose members
	// may act on the task.
	PotentialGroups string

	// ExcludedUsers is a comma-delimited list of actor names that may never
	// act on the task, even if they appear in PotentialUsers.
	ExcludedUsers string
}

// Authorize verifies that who may act on the task with the given ID.
//
// If both the potential-user and potential-group lists are absent the task is
// open access and any identity is authorized.
//
// It returns a NotAuthorizedError if the identity is not authorized.
func Authorize(taskID string, auth Authorization, who Identity) error {
	if auth.PotentialUsers == "" && auth.PotentialGroups == "" {
		// No ownership information at all, the task is open access.
		return nil
	}

	owners := splitList(auth.PotentialUsers)
	for x := range splitList(auth.ExcludedUsers) {
		delete(owners, x)
	}

	if _, ok := owners[who.Name]; ok {
		return nil
	}

	hasRole := false
	for g := range splitList(auth.PotentialGroups) {
		if who.HasRole(g) {
			hasRole = true
			break
		}
	}

	if hasRole {
		return nil
	}

	if auth.ActualOwner != "" && auth.ActualOwner != who.Name {
		return NotAuthorizedError{
			TaskID:   taskID,
			Identity: who,
			Owner:    auth.ActualOwner,
		}
	}

	return NotAuthorizedError{
		TaskID:   taskID,
		Identity: who,
	}
}

// splitList splits a comma-delimited list into a set, discarding surrounding
// whitespace and empty entries.
func splitList(s string) map[string]struct{} {
	if s == "" {
		return nil
	}

	set := map[string]struct{}{}

	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			set[v] = struct{}{}
		}
	}

	return set
}
