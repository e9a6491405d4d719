// Package identity describes the actor performing an operation and the
// authorization policy that gates user task operations.
package identity

// Identity is the identity of an actor, as reported by an external identity
// provider.
type Identity struct {
	// Name is the unique name of the actor.
	Name string

	// Roles is the set of role (group) names granted to the actor.
	Roles []string
}

// Anonymous is the identity used when no actor information is available.
var Anonymous = Identity{}

// HasRole returns true if the identity has been granted the given role.
func (i Identity) HasRole(r string) bool {
	for _, v := range i.Roles {
		if v == r {
			return true
		}
	}

	return false
}

// IsAnonymous returns true if the identity carries no actor name.
func (i Identity) IsAnonymous() bool {
	return i.Name == ""
}
