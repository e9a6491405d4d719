package persistence

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Provider is an interface used by the engine to open the instance store for
// a specific process or task definition.
type Provider[E Entity[E]] interface {
	// Open returns the store for the definition with the given ID.
	Open(ctx context.Context, definitionID string) (Store[E], error)
}

// StoreSet is a collection of stores for several definitions, opened lazily
// from a single provider.
type StoreSet[E Entity[E]] struct {
	// Provider is used to open stores on first use.
	Provider Provider[E]

	// Archive, if non-nil, is invoked with each ended instance just before
	// its stored representation is removed by an Update. It provides the
	// optional "ended" archive view.
	Archive func(E)

	m      sync.Mutex
	stores map[string]Store[E]
}

// Get returns the store for the given definition.
//
// If the set already contains a store for the definition it is returned.
// Otherwise it is opened and added to the set. The caller is NOT responsible
// for closing the store.
func (s *StoreSet[E]) Get(ctx context.Context, definitionID string) (Store[E], error) {
	s.m.Lock()
	defer s.m.Unlock()

	if st, ok := s.stores[definitionID]; ok {
		return st, nil
	}

	st, err := s.Provider.Open(ctx, definitionID)
	if err != nil {
		return nil, err
	}

	if s.Archive != nil {
		st = &archivingStore[E]{
			Store:   st,
			archive: s.Archive,
		}
	}

	if s.stores == nil {
		s.stores = map[string]Store[E]{}
	}

	s.stores[definitionID] = st

	return st, nil
}

// Close closes all stores in the set.
func (s *StoreSet[E]) Close() error {
	s.m.Lock()
	defer s.m.Unlock()

	stores := s.stores
	s.stores = nil

	var err error
	for _, st := range stores {
		err = multierr.Append(
			err,
			st.Close(),
		)
	}

	return err
}

// archivingStore decorates a store so that ended instances removed by an
// Update are passed to an archive callback first.
type archivingStore[E Entity[E]] struct {
	Store[E]
	archive func(E)
}

func (s *archivingStore[E]) Update(ctx context.Context, id string, inst E) error {
	if inst.Ended() {
		s.archive(inst)
	}

	return s.Store.Update(ctx, id, inst)
}
