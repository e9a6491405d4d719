// Package memory implements an instance store that keeps instances in
// memory.
//
// It is strongly consistent but provides no durability across restarts. It
// is the baseline store used by tests.
package memory

import (
	"context"
	"sync"

	"github.com/enactiq/enact/persistence"
)

// Provider is an implementation of persistence.Provider that opens in-memory
// stores.
//
// Opening the same definition ID twice returns the same store.
type Provider[E persistence.Entity[E]] struct {
	m      sync.Mutex
	stores map[string]*Store[E]
}

// New returns a new in-memory provider.
func New[E persistence.Entity[E]]() *Provider[E] {
	return &Provider[E]{}
}

// Open returns the store for the definition with the given ID.
func (p *Provider[E]) Open(
	_ context.Context,
	definitionID string,
) (persistence.Store[E], error) {
	p.m.Lock()
	defer p.m.Unlock()

	if s, ok := p.stores[definitionID]; ok {
		return s, nil
	}

	if p.stores == nil {
		p.stores = map[string]*Store[E]{}
	}

	s := &Store[E]{}
	p.stores[definitionID] = s

	return s, nil
}
