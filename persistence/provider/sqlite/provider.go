// Package sqlite implements an instance store backed by an embedded SQLite
// database.
//
// Instance metadata is kept in dedicated columns so that it can be queried
// without deserializing the instance payload.
package sqlite

import (
	"context"
	"database/sql"
	"sync"

	"github.com/enactiq/enact/persistence"

	_ "github.com/mattn/go-sqlite3"
)

// Provider is an implementation of persistence.Provider that opens stores
// sharing a single SQLite database file.
type Provider[E persistence.Entity[E]] struct {
	// Path is the path to the SQLite database to open or create.
	Path string

	// Codec marshals instances to and from their stored representation.
	Codec persistence.Codec[E]

	m    sync.Mutex
	db   *sql.DB
	refs int
}

// Open returns the store for the definition with the given ID.
func (p *Provider[E]) Open(
	ctx context.Context,
	definitionID string,
) (persistence.Store[E], error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.db == nil {
		db, err := open(ctx, p.Path)
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
		release:      p.release,
	}, nil
}

// open opens the database, applies the required pragmas and creates the
// schema.
func open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// SQLite supports a single writer at a time, so limit the pool to one
	// connection to avoid SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = NORMAL`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// release is called when a store opened by this provider is closed.
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
