package enact

import (
	"context"
	"sync"

	"github.com/enactiq/enact/persistence"
	"github.com/enactiq/enact/usertask"
)

// lazyTaskStore defers opening the engine's user task store until it is
// first used.
//
// The engine's task service is built before any store can be opened, as the
// stores themselves are opened with a caller-supplied context.
type lazyTaskStore struct {
	open func(ctx context.Context) (persistence.Store[*usertask.Instance], error)

	m     sync.Mutex
	store persistence.Store[*usertask.Instance]
}

func (s *lazyTaskStore) resolve(ctx context.Context) (persistence.Store[*usertask.Instance], error) {
	s.m.Lock()
	defer s.m.Unlock()

	if s.store == nil {
		st, err := s.open(ctx)
		if err != nil {
			return nil, err
		}

		s.store = st
	}

	return s.store, nil
}

func (s *lazyTaskStore) Exists(ctx context.Context, id string) (bool, error) {
	st, err := s.resolve(ctx)
	if err != nil {
		return false, err
	}

	return st.Exists(ctx, id)
}

func (s *lazyTaskStore) Create(ctx context.Context, id string, inst *usertask.Instance) error {
	st, err := s.resolve(ctx)
	if err != nil {
		return err
	}

	return st.Create(ctx, id, inst)
}

func (s *lazyTaskStore) Update(ctx context.Context, id string, inst *usertask.Instance) error {
	st, err := s.resolve(ctx)
	if err != nil {
		return err
	}

	return st.Update(ctx, id, inst)
}

func (s *lazyTaskStore) Remove(ctx context.Context, id string) error {
	st, err := s.resolve(ctx)
	if err != nil {
		return err
	}

	return st.Remove(ctx, id)
}

func (s *lazyTaskStore) Find(
	ctx context.Context,
	id string,
	mode persistence.AccessMode,
) (*usertask.Instance, bool, error) {
	st, err := s.resolve(ctx)
	if err != nil {
		return nil, false, err
	}

	return st.Find(ctx, id, mode)
}

func (s *lazyTaskStore) Each(
	ctx context.Context,
	mode persistence.AccessMode,
	fn func(*usertask.Instance) (bool, error),
) error {
	st, err := s.resolve(ctx)
	if err != nil {
		return err
	}

	return st.Each(ctx, mode, fn)
}

func (s *lazyTaskStore) Close() error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.store == nil {
		return nil
	}

	st := s.store
	s.store = nil

	return st.Close()
}
