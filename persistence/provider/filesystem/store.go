package filesystem

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/enactiq/enact/persistence"
)

// Store is a file-system backed implementation of persistence.Store.
//
// Writes are synchronous; a write that has returned has reached the
// file-system. Per-instance-ID serialization is the caller's responsibility.
type Store[E persistence.Entity[E]] struct {
	dir   string
	codec persistence.Codec[E]
}

// envelope is the on-disk representation of an instance.
//
// The metadata fields are stored alongside the raw instance payload so they
// can be read without unmarshaling the instance itself.
type envelope struct {
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Instance    json.RawMessage `json:"instance"`
}

// Exists returns true if an instance with the given ID is stored.
func (s *Store[E]) Exists(_ context.Context, id string) (bool, error) {
	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, persistence.Failure{Op: "exists", ID: id, Cause: err}
}

// Create stores a new instance.
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

	return s.write("create", id, inst)
}

// Update overwrites the stored representation of an instance.
func (s *Store[E]) Update(ctx context.Context, id string, inst E) error {
	if inst.ReadOnly() {
		return persistence.ErrReadOnly
	}

	if inst.Ended() {
		return s.Remove(ctx, id)
	}

	return s.write("update", id, inst)
}

// Remove removes an instance. It is a no-op if the ID is not stored.
func (s *Store[E]) Remove(_ context.Context, id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return persistence.Failure{Op: "remove", ID: id, Cause: err}
	}

	return nil
}

// Find returns the instance with the given ID, or false if it is not stored.
func (s *Store[E]) Find(
	_ context.Context,
	id string,
	mode persistence.AccessMode,
) (E, bool, error) {
	var zero E

	env, ok, err := s.read(id)
	if !ok || err != nil {
		return zero, false, err
	}

	inst, err := s.codec.UnmarshalInstance(env.Instance)
	if err != nil {
		return zero, false, persistence.Failure{Op: "find", ID: id, Cause: err}
	}

	return inst.Clone(mode), true, nil
}

// FindMeta returns the metadata of the instance with the given ID without
// deserializing the instance itself.
func (s *Store[E]) FindMeta(
	_ context.Context,
	id string,
) (persistence.Metadata, bool, error) {
	env, ok, err := s.read(id)
	if !ok || err != nil {
		return persistence.Metadata{}, false, err
	}

	return persistence.Metadata{
		Description: env.Description,
		Status:      env.Status,
	}, true, nil
}

// Each calls fn for each stored instance.
func (s *Store[E]) Each(
	ctx context.Context,
	mode persistence.AccessMode,
	fn func(E) (bool, error),
) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return persistence.Failure{Op: "each", Cause: err}
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		id, err := unsanitize(strings.TrimSuffix(e.Name(), fileSuffix))
		if err != nil {
			// Not a file written by this store.
			continue
		}

		inst, ok, err := s.Find(ctx, id, mode)
		if err != nil {
			return err
		}

		if !ok {
			// The file was removed between listing and reading.
			continue
		}

		ok, err = fn(inst)
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
	return nil
}

// write marshals inst and atomically replaces the instance's file.
func (s *Store[E]) write(op, id string, inst E) error {
	data, err := s.codec.MarshalInstance(inst)
	if err != nil {
		return persistence.Failure{Op: op, ID: id, Cause: err}
	}

	meta := inst.Meta()

	content, err := json.Marshal(envelope{
		Description: meta.Description,
		Status:      meta.Status,
		Instance:    data,
	})
	if err != nil {
		return persistence.Failure{Op: op, ID: id, Cause: err}
	}

	// Write to a temporary file first, then rename it into place so that a
	// reader never observes a partial write.
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return persistence.Failure{Op: op, ID: id, Cause: err}
	}

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return persistence.Failure{Op: op, ID: id, Cause: err}
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return persistence.Failure{Op: op, ID: id, Cause: err}
	}

	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		os.Remove(tmp.Name())
		return persistence.Failure{Op: op, ID: id, Cause: err}
	}

	return nil
}

// read loads the on-disk envelope for the given ID.
func (s *Store[E]) read(id string) (envelope, bool, error) {
	content, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return envelope{}, false, nil
		}

		return envelope{}, false, persistence.Failure{Op: "find", ID: id, Cause: err}
	}

	var env envelope
	if err := json.Unmarshal(content, &env); err != nil {
		return envelope{}, false, persistence.Failure{Op: "find", ID: id, Cause: err}
	}

	return env, true, nil
}

const fileSuffix = ".json"

func (s *Store[E]) path(id string) string {
	return filepath.Join(s.dir, sanitize(id)+fileSuffix)
}

// sanitize escapes an ID so that it is safe to use as a file name.
func sanitize(id string) string {
	return url.PathEscape(id)
}

// unsanitize reverses sanitize().
func unsanitize(name string) (string, error) {
	return url.PathUnescape(name)
}
