package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/flowgraph"
)

// CreateSystem saves a system and its graph in one transaction.
// If sys.ID is empty, a UUID is auto-generated.
// Returns ErrSystemExists if the name is taken.
func (s *PGStore) CreateSystem(ctx context.Context, sys *flowgraph.System) (*flowgraph.System, error) {
	if err := sys.Graph.Validate(); err != nil {
		return nil, err
	}
	id := sys.ID
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("flowgraph: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO flowgraph_systems (id, name, description) VALUES ($1, $2, $3)`,
		id, sys.Name, sys.Description,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, flowgraph.ErrSystemExists
		}
		return nil, fmt.Errorf("flowgraph: insert system: %w", err)
	}
	if err := insertGraph(ctx, tx, id, sys.Graph); err != nil {
		return nil, err
	}

	out, err := getSystem(ctx, tx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("flowgraph: commit tx: %w", err)
	}
	return out, nil
}

// GetSystem fetches a system with its full graph.
// Returns nil, nil if not found.
func (s *PGStore) GetSystem(ctx context.Context, name string) (*flowgraph.System, error) {
	return getSystem(ctx, s.db, `WHERE name = $1`, name)
}

// ListSystems returns every system with its graph, ordered by created_at.
func (s *PGStore) ListSystems(ctx context.Context) ([]flowgraph.System, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, created_at, updated_at
         FROM flowgraph_systems ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("flowgraph: list systems: %w", err)
	}
	systems, err := pgx.CollectRows(rows, scanSystem)
	if err != nil {
		return nil, fmt.Errorf("flowgraph: scan system: %w", err)
	}

	for i := range systems {
		g, err := loadGraph(ctx, s.db, systems[i].ID)
		if err != nil {
			return nil, err
		}
		systems[i].Graph = g
	}
	return systems, nil
}

// UpdateSystem replaces description and graph of the named system.
// Returns ErrSystemNotFound if it doesn't exist.
func (s *PGStore) UpdateSystem(ctx context.Context, name string, sys *flowgraph.System) (*flowgraph.System, error) {
	if err := sys.Graph.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("flowgraph: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx,
		`UPDATE flowgraph_systems SET description = $1, updated_at = NOW()
         WHERE name = $2 RETURNING id`,
		sys.Description, name,
	).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return nil, flowgraph.ErrSystemNotFound
		}
		return nil, fmt.Errorf("flowgraph: update system: %w", err)
	}

	// Replace semantics: edges go with their nodes.
	if _, err := tx.Exec(ctx, `DELETE FROM flowgraph_system_nodes WHERE system_id = $1`, id); err != nil {
		return nil, fmt.Errorf("flowgraph: delete nodes: %w", err)
	}
	if err := insertGraph(ctx, tx, id, sys.Graph); err != nil {
		return nil, err
	}

	out, err := getSystem(ctx, tx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("flowgraph: commit tx: %w", err)
	}
	return out, nil
}

// DeleteSystem removes a system. Nodes and edges are cascade-deleted by the DB.
func (s *PGStore) DeleteSystem(ctx context.Context, name string) (*flowgraph.System, error) {
	sys, err := s.GetSystem(ctx, name)
	if err != nil {
		return nil, err
	}
	if sys == nil {
		return nil, flowgraph.ErrSystemNotFound
	}

	ct, err := s.db.Exec(ctx, `DELETE FROM flowgraph_systems WHERE id = $1`, sys.ID)
	if err != nil {
		return nil, fmt.Errorf("flowgraph: delete system: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, flowgraph.ErrSystemNotFound
	}
	return sys, nil
}

func scanSystem(row pgx.CollectableRow) (flowgraph.System, error) {
	var sys flowgraph.System
	err := row.Scan(&sys.ID, &sys.Name, &sys.Description, &sys.CreatedAt, &sys.UpdatedAt)
	return sys, err
}

func getSystem(ctx context.Context, q querier, where string, arg string) (*flowgraph.System, error) {
	rows, err := q.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM flowgraph_systems `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("flowgraph: get system: %w", err)
	}
	sys, err := pgx.CollectExactlyOneRow(rows, scanSystem)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flowgraph: get system: %w", err)
	}

	sys.Graph, err = loadGraph(ctx, q, sys.ID)
	if err != nil {
		return nil, err
	}
	return &sys, nil
}
