// Package boltlog implements an instance store backed by an append-only log
// in a BoltDB database.
//
// Writes append records to a durable log keyed by definition and instance
// ID. A background replayer materializes the log into a local in-memory
// view, which is what all reads observe. The view is only eventually
// consistent with the log head: a write followed immediately by a read may
// not observe the write. Reads block until the view has caught up with the
// log for the first time, bounded by ReadyTimeout.
package boltlog

import (
	"context"
	"sync"
	"time"

	"github.com/enactiq/enact/internal/x/bboltx"
	"github.com/enactiq/enact/persistence"
	"go.etcd.io/bbolt"
)

// DefaultReadyTimeout is the default maximum duration a read will wait for
// the materialized view to become ready.
const DefaultReadyTimeout = 5 * time.Second

// DefaultPollInterval is the default interval at which the replayer polls
// the log for new records.
const DefaultPollInterval = 10 * time.Millisecond

// Provider is an implementation of persistence.Provider that opens
// log-backed stores sharing a single BoltDB database file.
type Provider[E persistence.Entity[E]] struct {
	// Path is the path to the BoltDB database to open or create.
	Path string

	// Codec marshals instances to and from their logged representation.
	Codec persistence.Codec[E]

	// ReadyTimeout is the maximum duration a read blocks waiting for the
	// materialized view. If it is non-positive, DefaultReadyTimeout is used.
	ReadyTimeout time.Duration

	// PollInterval is the interval at which the replayer polls the log. If
	// it is non-positive, DefaultPollInterval is used.
	PollInterval time.Duration

	m    sync.Mutex
	db   *bbolt.DB
	refs int
}

// Open returns the store for the definition with the given ID.
//
// The returned store's Run() method must be running for reads to observe
// writes.
func (p *Provider[E]) Open(
	ctx context.Context,
	definitionID string,
) (persistence.Store[E], error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.db == nil {
		db, err := bboltx.Open(ctx, p.Path, 0, nil)
		if err != nil {
			return nil, persistence.Failure{
				Op:    "open",
				Cause: err,
			}
		}

		p.db = db
	}

	p.refs++

	return &Store[E]{
		db:           p.db,
		codec:        p.Codec,
		definitionID: definitionID,
		readyTimeout: p.ReadyTimeout,
		pollInterval: p.PollInterval,
		release:      p.release,
		view:         map[string]viewRecord{},
	}, nil
}

// release is called when a store opened by this provider is closed.
//
// The database is closed when the last store is released.
func (p *Provider[E]) release() error {
	p.m.Lock()
	defer p.m.Unlock()

	p.refs--

	if p.refs > 0 || p.db == nil {
		return nil
	}

	db := p.db
	p.db = nil

	return db.Close()
}
