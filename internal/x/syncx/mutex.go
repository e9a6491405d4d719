package syncx

import (
	"context"
	"sync"
)

// RWMutex is a context-aware read/write mutex.
//
// It guards the instance map of the in-memory store, where lock acquisition
// has to respect the deadline of the store operation that requested it.
type RWMutex struct {
	m        sync.Mutex
	readers  int // negative = write lock acquired
	unlocked chan struct{}
	retry    chan struct{}
}

// Lock acquires an exclusive lock on the mutex.
//
// It blocks until the mutex is acquired, or ctx is canceled.
func (m *RWMutex) Lock(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.m.Lock()

	if m.unlocked == nil {
		m.unlocked = make(chan struct{}, 1)
		m.unlocked <- struct{}{}
	}

	unlocked := m.unlocked

	m.m.Unlock()

	// An exclusive lock does not care about the current reader count, only
	// about when the mutex next becomes free.

	select {
	case <-ctx.Done():
		return ctx.Err()

	case <-unlocked:
		// A negative reader count marks the mutex as write-locked.
		m.m.Lock()
		m.readers--
		m.m.Unlock()

		return nil
	}
}

// Unlock releases the mutex.
//
// It panics if the mutex is not currently locked with Lock().
func (m *RWMutex) Unlock() {
	m.m.Lock()

	if m.readers >= 0 {
		m.m.Unlock()
		panic("mutex is not write-locked")
	}

	m.readers++
	m.unlocked <- struct{}{}

	m.m.Unlock()
}

// RLock acquires a shared lock on the mutex.
//
// It blocks until the mutex is acquired, or ctx is canceled.
func (m *RWMutex) RLock(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m.m.Lock()

		// A mutex that is already read-locked admits further readers
		// immediately.
		if m.readers > 0 {
			m.readers++
			m.m.Unlock()
			return nil
		}

		// Otherwise the mutex has to be acquired exclusively first, then
		// "converted" to read-locked.
		if m.unlocked == nil {
			m.unlocked = make(chan struct{}, 1)
			m.unlocked <- struct{}{}
		}

		// Other readers that arrive in the meantime wait on the retry channel.
		if m.retry == nil {
			m.retry = make(chan struct{})
		}

		unlocked := m.unlocked
		retry := m.retry

		// The internal mutex must not be held while waiting for exclusive
		// access.
		m.m.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-retry:
			// Another blocking RLock() call obtained exclusive access first
			// and announced that the mutex is ready for reads. The read-lock
			// may already have been released again, so everything has to be
			// re-checked from the top.
			continue

		case <-unlocked:
			// Exclusive access obtained. A positive reader count marks the
			// mutex as read-locked, and any other blocking RLock() calls are
			// told to retry.
			m.m.Lock()

			m.readers++

			// A nil m.retry means a competing goroutine already closed it and
			// called RUnlock() between the internal unlock above and this
			// select executing.
			if m.retry != nil {
				close(m.retry)
				m.retry = nil
			}

			m.m.Unlock()

			return nil
		}
	}
}

// RUnlock releases the mutex.
//
// It panics if the mutex is not currently locked with RLock().
func (m *RWMutex) RUnlock() {
	m.m.Lock()

	if m.readers <= 0 {
		m.m.Unlock()
		panic("mutex is not read-locked")
	}

	m.readers--

	if m.readers == 0 {
		m.unlocked <- struct{}{}
	}

	m.m.Unlock()
}
