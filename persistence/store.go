// Package persistence defines the pluggable instance-store abstraction used
// to persist process and user task instances.
package persistence

import "context"

// AccessMode controls the mutability of instances returned by a store.
type AccessMode int

const (
	// Mutable indicates that the returned instance may be modified and
	// written back to the store.
	Mutable AccessMode = iota

	// ReadOnly indicates that the returned instance is a snapshot. Any
	// attempt to mutate it fails with ErrReadOnly.
	ReadOnly
)

// Metadata is the set of instance attributes that a store keeps queryable
// without deserializing the full instance representation.
type Metadata struct {
	// Description is the human-readable description of the instance.
	Description string

	// Status is the name of the instance's current lifecycle status.
	Status string
}

// Entity is the interface implemented by instance types that can be
// persisted by a store.
//
// The type parameter E is the concrete entity type itself, so that Clone()
// does not lose type information.
type Entity[E any] interface {
	// InstanceID returns the unique ID of the instance.
	InstanceID() string

	// Ended returns true if the instance has reached a terminal status.
	//
	// Ended instances are never persisted; creating one is a no-op and
	// updating one removes the stored representation instead.
	Ended() bool

	// ReadOnly returns true if this handle was produced with the ReadOnly
	// access mode.
	ReadOnly() bool

	// Meta returns the instance's queryable metadata.
	Meta() Metadata

	// Clone returns an independent deep copy of the instance with the given
	// access mode.
	Clone(mode AccessMode) E
}

// Store is a collection of instances of a single process or task definition,
// keyed by instance ID.
//
// Mutating methods are safe to call concurrently for different instance IDs.
// Callers must serialize mutations of the same ID externally; the store does
// not provide compare-and-swap semantics.
type Store[E Entity[E]] interface {
	// Exists returns true if an instance with the given ID is stored.
	Exists(ctx context.Context, id string) (bool, error)

	// Create stores a new instance.
	//
	// It returns a DuplicateError if an instance with the same ID already
	// exists in a non-terminal status. If inst has already ended it is not
	// persisted at all and Create is a no-op.
	Create(ctx context.Context, id string, inst E) error

	// Update overwrites the stored representation of an instance.
	//
	// If inst has ended, the stored representation is removed instead.
	Update(ctx context.Context, id string, inst E) error

	// Remove removes an instance.
	//
	// It is idempotent; removing an ID that is not stored is not an error.
	Remove(ctx context.Context, id string) error

	// Find returns the instance with the given ID.
	//
	// It returns false, without an error, if no such instance is stored.
	Find(ctx context.Context, id string, mode AccessMode) (E, bool, error)

	// Each calls fn for each stored instance.
	//
	// Iteration is lazy and restartable; each call observes the instances
	// stored at the time of the call. Iteration stops early if fn returns
	// false.
	Each(ctx context.Context, mode AccessMode, fn func(E) (bool, error)) error

	// Close closes the store, releasing any resources it holds.
	Close() error
}

// Codec marshals instances to and from the representation stored by durable
// backends.
type Codec[E any] interface {
	MarshalInstance(E) ([]byte, error)
	UnmarshalInstance([]byte) (E, error)
}
