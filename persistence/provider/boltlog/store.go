package boltlog

import (
	"context"
	"sync"
	"time"

	"github.com/dogmatiq/linger"
	"github.com/enactiq/enact/internal/x/bboltx"
	"github.com/enactiq/enact/internal/x/syncx"
	"github.com/enactiq/enact/persistence"
	"go.etcd.io/bbolt"
)

var logBucket = []byte("log")

// Store is a log-backed implementation of persistence.Store.
//
// All writes are appends to the log; the log's append ordering serializes
// concurrent writers. Reads block until Run() has materialized the log into
// the local view for the first time, and then observe the latest local view,
// which may lag the log head. Callers must not assume read-after-write
// consistency.
type Store[E persistence.Entity[E]] struct {
	db           *bbolt.DB
	codec        persistence.Codec[E]
	definitionID string
	readyTimeout time.Duration
	pollInterval time.Duration
	release      func() error

	ready     syncx.Latch
	closeOnce sync.Once
	closeErr  error

	viewM   sync.RWMutex
	closed  bool
	view    map[string]viewRecord
	applied uint64
}

// Run replays the log into the local materialized view until ctx is
// canceled.
//
// The readiness gate is released after the first complete replay; reads
// issued before that block, bounded by the provider's ReadyTimeout.
func (s *Store[E]) Run(ctx context.Context) error {
	for {
		if err := s.replay(ctx); err != nil {
			return err
		}

		s.ready.Open()

		if err := linger.Sleep(ctx, s.pollInterval, DefaultPollInterval); err != nil {
			return err
		}
	}
}

// Exists returns true if an instance with the given ID is observable in the
// materialized view.
func (s *Store[E]) Exists(ctx context.Context, id string) (bool, error) {
	if err := s.waitReady(ctx); err != nil {
		return false, err
	}

	s.viewM.RLock()
	defer s.viewM.RUnlock()

	if s.closed {
		return false, persistence.ErrStoreClosed
	}

	_, ok := s.view[id]

	return ok, nil
}

// Create appends a record that stores a new instance.
//
// Duplicate detection is best-effort: presence is re-checked against the
// local view before appending, but the view may lag writes made by another
// process, so a concurrent create of the same ID may not be detected.
func (s *Store[E]) Create(ctx context.Context, id string, inst E) error {
	if inst.ReadOnly() {
		return persistence.ErrReadOnly
	}

	if inst.Ended() {
		return nil
	}

	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}

	if ok {
		return persistence.DuplicateError{ID: id}
	}

	return s.append(opSave, id, inst)
}

// Update appends a record that overwrites the stored representation of an
// instance.
func (s *Store[E]) Update(ctx context.Context, id string, inst E) error {
	if inst.ReadOnly() {
		return persistence.ErrReadOnly
	}

	if inst.Ended() {
		return s.Remove(ctx, id)
	}

	return s.append(opSave, id, inst)
}

// Remove appends a record that removes an instance.
func (s *Store[E]) Remove(ctx context.Context, id string) error {
	var zero E
	return s.append(opRemove, id, zero)
}

// Find returns the instance with the given ID as observed by the
// materialized view.
func (s *Store[E]) Find(
	ctx context.Context,
	id string,
	mode persistence.AccessMode,
) (E, bool, error) {
	var zero E

	if err := s.waitReady(ctx); err != nil {
		return zero, false, err
	}

	s.viewM.RLock()

	if s.closed {
		s.viewM.RUnlock()
		return zero, false, persistence.ErrStoreClosed
	}

	rec, ok := s.view[id]
	s.viewM.RUnlock()

	if !ok {
		return zero, false, nil
	}

	inst, err := s.codec.UnmarshalInstance(rec.data)
	if err != nil {
		return zero, false, persistence.Failure{Op: "find", ID: id, Cause: err}
	}

	return inst.Clone(mode), true, nil
}

// Each calls fn for each instance observable in the materialized view.
func (s *Store[E]) Each(
	ctx context.Context,
	mode persistence.AccessMode,
	fn func(E) (bool, error),
) error {
	if err := s.waitReady(ctx); err != nil {
		return err
	}

	s.viewM.RLock()

	if s.closed {
		s.viewM.RUnlock()
		return persistence.ErrStoreClosed
	}

	snapshot := make(map[string][]byte, len(s.view))
	for id, rec := range s.view {
		snapshot[id] = rec.data
	}

	s.viewM.RUnlock()

	for id, data := range snapshot {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		inst, err := s.codec.UnmarshalInstance(data)
		if err != nil {
			return persistence.Failure{Op: "each", ID: id, Cause: err}
		}

		ok, err := fn(inst.Clone(mode))
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
//
// The underlying database is closed when the last store opened from the same
// provider is closed.
func (s *Store[E]) Close() error {
	s.closeOnce.Do(func() {
		s.viewM.Lock()
		s.closed = true
		s.view = nil
		s.viewM.Unlock()

		s.closeErr = s.release()
	})

	return s.closeErr
}

// waitReady blocks until the materialized view is ready, bounded by the
// ready timeout.
func (s *Store[E]) waitReady(ctx context.Context) error {
	waitCtx, cancel := linger.ContextWithTimeout(ctx, s.readyTimeout, DefaultReadyTimeout)
	defer cancel()

	if err := s.ready.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return ErrNotReady
	}

	return nil
}

// append writes a single record to the log.
func (s *Store[E]) append(op, id string, inst E) error {
	rec := record{
		Op:         op,
		InstanceID: id,
	}

	if op == opSave {
		data, err := s.codec.MarshalInstance(inst)
		if err != nil {
			return persistence.Failure{Op: op, ID: id, Cause: err}
		}

		meta := inst.Meta()
		rec.Description = meta.Description
		rec.Status = meta.Status
		rec.Data = data
	}

	content, err := marshalRecord(rec)
	if err != nil {
		return persistence.Failure{Op: op, ID: id, Cause: err}
	}

	s.viewM.RLock()
	closed := s.closed
	s.viewM.RUnlock()

	if closed {
		return persistence.ErrStoreClosed
	}

	err = s.db.Update(func(tx *bbolt.Tx) (err error) {
		defer bboltx.Recover(&err)

		b := bboltx.CreateBucketIfNotExists(
			tx,
			[]byte(s.definitionID),
			logBucket,
		)

		seq, err := b.NextSequence()
		bboltx.Must(err)

		bboltx.Put(b, bboltx.MarshalUint64(seq), content)

		return nil
	})
	if err != nil {
		return persistence.Failure{Op: op, ID: id, Cause: err}
	}

	return nil
}

// replay applies any log records that have not yet been materialized into
// the local view.
func (s *Store[E]) replay(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var (
		records []record
		last    uint64
	)

	err := s.db.View(func(tx *bbolt.Tx) (err error) {
		defer bboltx.Recover(&err)

		b := bboltx.Bucket(
			tx,
			[]byte(s.definitionID),
			logBucket,
		)
		if b == nil {
			return nil
		}

		c := b.Cursor()

		for k, v := c.Seek(bboltx.MarshalUint64(s.applied + 1)); k != nil; k, v = c.Next() {
			rec, err := unmarshalRecord(v)
			bboltx.Must(err)

			records = append(records, rec)
			last = bboltx.UnmarshalUint64(k)
		}

		return nil
	})
	if err != nil {
		return persistence.Failure{Op: "replay", Cause: err}
	}

	if len(records) == 0 {
		return nil
	}

	s.viewM.Lock()
	defer s.viewM.Unlock()

	if s.closed {
		return persistence.ErrStoreClosed
	}

	for _, rec := range records {
		switch rec.Op {
		case opSave:
			s.view[rec.InstanceID] = viewRecord{
				description: rec.Description,
				status:      rec.Status,
				data:        rec.Data,
			}
		case opRemove:
			delete(s.view, rec.InstanceID)
		}
	}

	s.applied = last

	return nil
}
