package memory

import (
	"context"

	"github.com/meikuraledutech/flowgraph"
)

// ListSpecialNodes returns the catalog in its defined order.
func (s *Store) ListSpecialNodes(ctx context.Context) ([]flowgraph.SpecialNodeDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]flowgraph.SpecialNodeDef, len(s.specials))
	copy(out, s.specials)
	return out, nil
}

// PutSpecialNode inserts def or replaces the entry with the same id in place.
func (s *Store) PutSpecialNode(ctx context.Context, def *flowgraph.SpecialNodeDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.specials {
		if s.specials[i].ID == def.ID {
			s.specials[i] = *def
			return nil
		}
	}
	s.specials = append(s.specials, *def)
	return nil
}
