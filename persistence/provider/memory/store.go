package memory

import (
	"context"

	"github.com/enactiq/enact/internal/x/syncx"
	"github.com/enactiq/enact/persistence"
)

// Store is an in-memory implementation of persistence.Store.
type Store[E persistence.Entity[E]] struct {
	m         syncx.RWMutex
	closed    bool
	instances map[string]E
}

// Exists returns true if an instance with the given ID is stored.
func (s *Store[E]) Exists(ctx context.Context, id string) (bool, error) {
	if err := s.m.RLock(ctx); err != nil {
		return false, err
	}
	defer s.m.RUnlock()

	if s.closed {
		return false, persistence.ErrStoreClosed
	}

	_, ok := s.instances[id]

	return ok, nil
}

// Create stores a new instance.
func (s *Store[E]) Create(ctx context.Context, id string, inst E) error {
	if inst.ReadOnly() {
		return persistence.ErrReadOnly
	}

	if inst.Ended() {
		// The instance has already reached a terminal status, there is
		// nothing worth storing.
		return nil
	}

	if err := s.m.Lock(ctx); err != nil {
		return err
	}
	defer s.m.Unlock()

	if s.closed {
		return persistence.ErrStoreClosed
	}

	if _, ok := s.instances[id]; ok {
		return persistence.DuplicateError{ID: id}
	}

	if s.instances == nil {
		s.instances = map[string]E{}
	}

	s.instances[id] = inst.Clone(persistence.Mutable)

	return nil
}

// Update overwrites the stored representation of an instance.
func (s *Store[E]) Update(ctx context.Context, id string, inst E) error {
	if inst.ReadOnly() {
		return persistence.ErrReadOnly
	}

	if inst.Ended() {
		return s.Remove(ctx, id)
	}

	if err := s.m.Lock(ctx); err != nil {
		return err
	}
	defer s.m.Unlock()

	if s.closed {
		return persistence.ErrStoreClosed
	}

	if s.instances == nil {
		s.instances = map[string]E{}
	}

	s.instances[id] = inst.Clone(persistence.Mutable)

	return nil
}

// Remove removes an instance. It is a no-op if the ID is not stored.
func (s *Store[E]) Remove(ctx context.Context, id string) error {
	if err := s.m.Lock(ctx); err != nil {
		return err
	}
	defer s.m.Unlock()

	if s.closed {
		return persistence.ErrStoreClosed
	}

	delete(s.instances, id)

	return nil
}

// Find returns the instance with the given ID, or false if it is not stored.
func (s *Store[E]) Find(
	ctx context.Context,
	id string,
	mode persistence.AccessMode,
) (E, bool, error) {
	var zero E

	if err := s.m.RLock(ctx); err != nil {
		return zero, false, err
	}
	defer s.m.RUnlock()

	if s.closed {
		return zero, false, persistence.ErrStoreClosed
	}

	inst, ok := s.instances[id]
	if !ok {
		return zero, false, nil
	}

	return inst.Clone(mode), true, nil
}

// Each calls fn for each stored instance.
func (s *Store[E]) Each(
	ctx context.Context,
	mode persistence.AccessMode,
	fn func(E) (bool, error),
) error {
	if err := s.m.RLock(ctx); err != nil {
		return err
	}

	if s.closed {
		s.m.RUnlock()
		return persistence.ErrStoreClosed
	}

	// Snapshot the current instances so that fn can mutate the store without
	// deadlocking or invalidating the iteration.
	snapshot := make([]E, 0, len(s.instances))
	for _, inst := range s.instances {
		snapshot = append(snapshot, inst.Clone(mode))
	}

	s.m.RUnlock()

	for _, inst := range snapshot {
		ok, err := fn(inst)
		if err != nil {
			return err
		}

		if !ok {
			return nil
		}
	}

	return nil
}

// Close closes the store.
func (s *Store[E]) Close() error {
	if err := s.m.Lock(context.Background()); err != nil {
		return err
	}
	defer s.m.Unlock()

	s.closed = true
	s.instances = nil

	return nil
}
