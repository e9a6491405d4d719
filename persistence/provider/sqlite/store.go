package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/enactiq/enact/persistence"
)

// Store is a SQLite-backed implementation of persistence.Store.
type Store[E persistence.Entity[E]] struct {
	db           *sql.DB
	codec        persistence.Codec[E]
	definitionID string
	release      func() error

	closeOnce sync.Once
	closeErr  error
}

// Exists returns true if an instance with the given ID is stored.
func (s *Store[E]) Exists(ctx context.Context, id string) (bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT 1
		FROM instance
		WHERE definition_id = ?
		AND instance_id = ?`,
		s.definitionID,
		id,
	)

	var n int
	err := row.Scan(&n)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, persistence.Failure{Op: "exists", ID: id, Cause: err}
	}

	return true, nil
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

	data, err := s.codec.MarshalInstance(inst)
	if err != nil {
		return persistence.Failure{Op: "create", ID: id, Cause: err}
	}

	meta := inst.Meta()

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO instance (
			definition_id,
			instance_id,
			description,
			status,
			data
		) VALUES (?, ?, ?, ?, ?)`,
		s.definitionID,
		id,
		meta.Description,
		meta.Status,
		data,
	)
	if err != nil {
		return persistence.Failure{Op: "create", ID: id, Cause: err}
	}

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

	data, err := s.codec.MarshalInstance(inst)
	if err != nil {
		return persistence.Failure{Op: "update", ID: id, Cause: err}
	}

	meta := inst.Meta()

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO instance (
			definition_id,
			instance_id,
			description,
			status,
			data
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (definition_id, instance_id) DO UPDATE SET
			description = excluded.description,
			status = excluded.status,
			data = excluded.data`,
		s.definitionID,
		id,
		meta.Description,
		meta.Status,
		data,
	)
	if err != nil {
		return persistence.Failure{Op: "update", ID: id, Cause: err}
	}

	return nil
}

// Remove removes an instance. It is a no-op if the ID is not stored.
func (s *Store[E]) Remove(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM instance
		WHERE definition_id = ?
		AND instance_id = ?`,
		s.definitionID,
		id,
	)
	if err != nil {
		return persistence.Failure{Op: "remove", ID: id, Cause: err}
	}

	return nil
}

// Find returns the instance with the given ID, or false if it is not stored.
func (s *Store[E]) Find(
	ctx context.Context,
	id string,
	mode persistence.AccessMode,
) (E, bool, error) {
	var zero E

	row := s.db.QueryRowContext(
		ctx,
		`SELECT data
		FROM instance
		WHERE definition_id = ?
		AND instance_id = ?`,
		s.definitionID,
		id,
	)

	var data []byte
	err := row.Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}

	if err != nil {
		return zero, false, persistence.Failure{Op: "find", ID: id, Cause: err}
	}

	inst, err := s.codec.UnmarshalInstance(data)
	if err != nil {
		return zero, false, persistence.Failure{Op: "find", ID: id, Cause: err}
	}

	return inst.Clone(mode), true, nil
}

// FindMeta returns the metadata of the instance with the given ID without
// deserializing the instance itself.
func (s *Store[E]) FindMeta(
	ctx context.Context,
	id string,
) (persistence.Metadata, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT description, status
		FROM instance
		WHERE definition_id = ?
		AND instance_id = ?`,
		s.definitionID,
		id,
	)

	var meta persistence.Metadata
	err := row.Scan(&meta.Description, &meta.Status)

	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Metadata{}, false, nil
	}

	if err != nil {
		return persistence.Metadata{}, false, persistence.Failure{Op: "find", ID: id, Cause: err}
	}

	return meta, true, nil
}

// Each calls fn for each stored instance.
func (s *Store[E]) Each(
	ctx context.Context,
	mode persistence.AccessMode,
	fn func(E) (bool, error),
) error {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT instance_id, data
		FROM instance
		WHERE definition_id = ?
		ORDER BY instance_id`,
		s.definitionID,
	)
	if err != nil {
		return persistence.Failure{Op: "each", Cause: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   string
			data []byte
		)

		if err := rows.Scan(&id, &data); err != nil {
			return persistence.Failure{Op: "each", Cause: err}
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

	if err := rows.Err(); err != nil {
		return persistence.Failure{Op: "each", Cause: err}
	}

	return nil
}

// Close closes the store.
//
// The underlying database is closed when the last store opened from the same
// provider is closed.
func (s *Store[E]) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.release()
	})

	return s.closeErr
}
