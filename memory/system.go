package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/meikuraledutech/flowgraph"
)

// ListSystems returns all systems in creation order.
func (s *Store) ListSystems(ctx context.Context) ([]flowgraph.System, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]flowgraph.System, len(s.systems))
	for i, sys := range s.systems {
		out[i] = cloneSystem(sys)
	}
	return out, nil
}

// GetSystem returns nil, nil if not found.
func (s *Store) GetSystem(ctx context.Context, name string) (*flowgraph.System, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.systemIndex(name); i >= 0 {
		sys := cloneSystem(s.systems[i])
		return &sys, nil
	}
	return nil, nil
}

// CreateSystem stores a new system. An empty ID gets a generated UUID.
func (s *Store) CreateSystem(ctx context.Context, sys *flowgraph.System) (*flowgraph.System, error) {
	if err := sys.Graph.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.systemIndex(sys.Name) >= 0 {
		return nil, flowgraph.ErrSystemExists
	}
	stored := cloneSystem(*sys)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.CreatedAt = s.now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	s.systems = append(s.systems, stored)

	out := cloneSystem(stored)
	return &out, nil
}

// UpdateSystem replaces description and graph of the named system.
func (s *Store) UpdateSystem(ctx context.Context, name string, sys *flowgraph.System) (*flowgraph.System, error) {
	if err := sys.Graph.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.systemIndex(name)
	if i < 0 {
		return nil, flowgraph.ErrSystemNotFound
	}
	stored := s.systems[i]
	stored.Description = sys.Description
	stored.Graph = sys.Graph.Clone()
	stored.UpdatedAt = s.now().UTC()
	s.systems[i] = stored

	out := cloneSystem(stored)
	return &out, nil
}

func (s *Store) DeleteSystem(ctx context.Context, name string) (*flowgraph.System, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.systemIndex(name)
	if i < 0 {
		return nil, flowgraph.ErrSystemNotFound
	}
	sys := s.systems[i]
	s.systems = append(s.systems[:i:i], s.systems[i+1:]...)
	return &sys, nil
}

func (s *Store) systemIndex(name string) int {
	for i, sys := range s.systems {
		if sys.Name == name {
			return i
		}
	}
	return -1
}

func cloneSystem(sys flowgraph.System) flowgraph.System {
	sys.Graph = sys.Graph.Clone()
	return sys
}
