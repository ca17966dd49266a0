// Package memory implements flowgraph.Store in process memory. It backs
// tests and the server's local mode when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/meikuraledutech/flowgraph"
)

// Store keeps personas, special nodes and systems in insertion order.
type Store struct {
	mu       sync.RWMutex
	personas []flowgraph.Persona
	specials []flowgraph.SpecialNodeDef
	systems  []flowgraph.System
	now      func() time.Time
}

// New returns a store seeded with the default special-node catalog.
func New() *Store {
	return &Store{
		specials: flowgraph.DefaultSpecialNodes(),
		now:      time.Now,
	}
}

// CreateSchema is a no-op; memory has no schema.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema discards everything, including the special-node catalog.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personas = nil
	s.specials = nil
	s.systems = nil
	return nil
}
