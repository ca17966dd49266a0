package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/flowgraph"
)

// ListPersonas returns all personas ordered by created_at.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListPersonas(ctx context.Context) ([]flowgraph.Persona, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, agent, task FROM flowgraph_personas ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("flowgraph: list personas: %w", err)
	}
	defer rows.Close()

	personas := []flowgraph.Persona{}
	for rows.Next() {
		var p flowgraph.Persona
		if err := rows.Scan(&p.Name, &p.Agent, &p.Task); err != nil {
			return nil, fmt.Errorf("flowgraph: scan persona: %w", err)
		}
		personas = append(personas, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowgraph: rows personas: %w", err)
	}
	return personas, nil
}

// GetPersona fetches a persona by name.
// Returns nil, nil if not found.
func (s *PGStore) GetPersona(ctx context.Context, name string) (*flowgraph.Persona, error) {
	var p flowgraph.Persona
	err := s.db.QueryRow(ctx,
		`SELECT name, agent, task FROM flowgraph_personas WHERE name = $1`, name,
	).Scan(&p.Name, &p.Agent, &p.Task)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flowgraph: get persona: %w", err)
	}
	return &p, nil
}

// CreatePersona returns ErrPersonaExists if the name is taken.
func (s *PGStore) CreatePersona(ctx context.Context, p *flowgraph.Persona) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO flowgraph_personas (name, agent, task) VALUES ($1, $2, $3)`,
		p.Name, p.Agent, p.Task,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return flowgraph.ErrPersonaExists
		}
		return fmt.Errorf("flowgraph: insert persona: %w", err)
	}
	return nil
}

// UpdatePersona replaces the persona stored under name, possibly renaming it.
// Returns ErrPersonaNotFound if it doesn't exist.
func (s *PGStore) UpdatePersona(ctx context.Context, name string, p *flowgraph.Persona) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE flowgraph_personas SET name = $1, agent = $2, task = $3 WHERE name = $4`,
		p.Name, p.Agent, p.Task, name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return flowgraph.ErrPersonaExists
		}
		return fmt.Errorf("flowgraph: update persona: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return flowgraph.ErrPersonaNotFound
	}
	return nil
}

// DeletePersona removes and returns the named persona.
func (s *PGStore) DeletePersona(ctx context.Context, name string) (*flowgraph.Persona, error) {
	var p flowgraph.Persona
	err := s.db.QueryRow(ctx,
		`DELETE FROM flowgraph_personas WHERE name = $1 RETURNING name, agent, task`, name,
	).Scan(&p.Name, &p.Agent, &p.Task)
	if err != nil {
		if isNoRows(err) {
			return nil, flowgraph.ErrPersonaNotFound
		}
		return nil, fmt.Errorf("flowgraph: delete persona: %w", err)
	}
	return &p, nil
}
