package memory

import (
	"context"

	"github.com/meikuraledutech/flowgraph"
)

// ListPersonas returns all personas in creation order.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ListPersonas(ctx context.Context) ([]flowgraph.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]flowgraph.Persona, len(s.personas))
	copy(out, s.personas)
	return out, nil
}

// GetPersona returns nil, nil if not found.
func (s *Store) GetPersona(ctx context.Context, name string) (*flowgraph.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.personaIndex(name); i >= 0 {
		p := s.personas[i]
		return &p, nil
	}
	return nil, nil
}

func (s *Store) CreatePersona(ctx context.Context, p *flowgraph.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.personaIndex(p.Name) >= 0 {
		return flowgraph.ErrPersonaExists
	}
	s.personas = append(s.personas, *p)
	return nil
}

// UpdatePersona replaces the persona stored under name. The replacement may
// carry a new name.
func (s *Store) UpdatePersona(ctx context.Context, name string, p *flowgraph.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.personaIndex(name)
	if i < 0 {
		return flowgraph.ErrPersonaNotFound
	}
	if p.Name != name && s.personaIndex(p.Name) >= 0 {
		return flowgraph.ErrPersonaExists
	}
	s.personas[i] = *p
	return nil
}

func (s *Store) DeletePersona(ctx context.Context, name string) (*flowgraph.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.personaIndex(name)
	if i < 0 {
		return nil, flowgraph.ErrPersonaNotFound
	}
	p := s.personas[i]
	s.personas = append(s.personas[:i:i], s.personas[i+1:]...)
	return &p, nil
}

func (s *Store) personaIndex(name string) int {
	for i, p := range s.personas {
		if p.Name == name {
			return i
		}
	}
	return -1
}
