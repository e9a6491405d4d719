package syncx

import (
	"context"
	"sync"
	"sync/atomic"
)

// UnlockFunc is a function used to unlock a previously locked mutex.
type UnlockFunc func()

// MutexNamespace is a "namespace" of named, context-aware mutexes.
//
// It is used to serialize operations against individual process and task
// instances, keyed by instance ID. A mutex only occupies memory while at
// least one Lock() call is holding or awaiting it, so an idle namespace does
// not grow with the number of instances ever locked.
type MutexNamespace struct {
	m       sync.Mutex
	mutexes map[string]*nmutex
}

// nmutex is a named mutex.
type nmutex struct {
	guard   chan struct{} // buffered guard, write = lock, read = unlock
	lockers int64         // number of pending or successful Lock() calls
}

// Lock acquires an exclusive lock on the mutex with the given name.
//
// It returns an unlock function which must be called to unlock the mutex.
//
// If the mutex is already locked, Lock() blocks until it is unlocked, or ctx is
// canceled.
func (ns *MutexNamespace) Lock(ctx context.Context, n string) (UnlockFunc, error) {
	m := ns.get(n)

	select {
	case <-ctx.Done():
		ns.release(n, m)
		return nil, ctx.Err()

	case m.guard <- struct{}{}: // lock the mutex
		var once sync.Once
		return func() {
			once.Do(func() {
				<-m.guard // unlock the mutex
				ns.release(n, m)
			})
		}, nil
	}
}

// get returns the mutex with the given name, creating it if necessary.
func (ns *MutexNamespace) get(n string) *nmutex {
	ns.m.Lock()
	defer ns.m.Unlock()

	if ns.mutexes == nil {
		ns.mutexes = map[string]*nmutex{}
	} else if m, ok := ns.mutexes[n]; ok {
		atomic.AddInt64(&m.lockers, 1)
		return m
	}

	m := &nmutex{
		guard:   make(chan struct{}, 1),
		lockers: 1,
	}

	ns.mutexes[n] = m

	return m
}

// release decrements the locker count on m and removes it from ns.mutexes if
// there are no other lockers.
func (ns *MutexNamespace) release(n string, m *nmutex) {
	// If there are still other pending Lock() calls after removing ourselves
	// from the count, one of them takes ownership of the mutex and it must
	// stay in the map.
	if atomic.AddInt64(&m.lockers, -1) > 0 {
		return
	}

	ns.m.Lock()

	// A new locker may have arrived while we were waiting for ns.m. The count
	// is only ever incremented while ns.m is held, so re-checking it here is
	// race-free.
	if atomic.LoadInt64(&m.lockers) == 0 {
		delete(ns.mutexes, n)
	}

	ns.m.Unlock()
}
