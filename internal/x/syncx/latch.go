package syncx

import (
	"context"
	"sync"
)

// Latch is a one-shot gate that starts closed and can be opened exactly once.
//
// All pending and future calls to Wait() return once the latch is opened. It
// is used to block readers until some background initialization completes.
type Latch struct {
	once sync.Once
	m    sync.Mutex
	open chan struct{}
}

// Open opens the latch, releasing all waiters.
//
// It is safe to call multiple times; calls after the first have no effect.
func (l *Latch) Open() {
	l.once.Do(func() {
		close(l.channel())
	})
}

// IsOpen returns true if the latch has been opened.
func (l *Latch) IsOpen() bool {
	select {
	case <-l.channel():
		return true
	default:
		return false
	}
}

// Wait blocks until the latch is opened, or ctx is canceled.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.channel():
		return nil
	}
}

// channel returns the channel that is closed when the latch opens, creating
// it if necessary.
func (l *Latch) channel() chan struct{} {
	l.m.Lock()
	defer l.m.Unlock()

	if l.open == nil {
		l.open = make(chan struct{})
	}

	return l.open
}
