// Package filesystem implements an instance store that keeps one file per
// instance on the local file-system.
//
// Each file is a JSON envelope holding the instance's queryable metadata
// alongside its serialized representation, so that metadata can be inspected
// without deserializing the full instance.
package filesystem

import (
	"context"
	"os"
	"path/filepath"

	"github.com/enactiq/enact/persistence"
)

// Provider is an implementation of persistence.Provider that opens
// file-system backed stores.
type Provider[E persistence.Entity[E]] struct {
	// Dir is the directory under which each definition's instances are
	// stored, one sub-directory per definition ID.
	Dir string

	// Codec marshals instances to and from their stored representation.
	Codec persistence.Codec[E]
}

// Open returns the store for the definition with the given ID.
func (p *Provider[E]) Open(
	_ context.Context,
	definitionID string,
) (persistence.Store[E], error) {
	dir := filepath.Join(p.Dir, sanitize(definitionID))

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, persistence.Failure{
			Op:    "open",
			Cause: err,
		}
	}

	return &Store[E]{
		dir:   dir,
		codec: p.Codec,
	}, nil
}
