package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/flowgraph"
)

var defaultSpecials = flowgraph.DefaultSpecialNodes

// ListSpecialNodes returns the catalog ordered by insertion time.
func (s *PGStore) ListSpecialNodes(ctx context.Context) ([]flowgraph.SpecialNodeDef, error) {
	rows, err := s.db.Query(ctx,
		`SELECT data FROM flowgraph_special_nodes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("flowgraph: list special nodes: %w", err)
	}
	defer rows.Close()

	defs := []flowgraph.SpecialNodeDef{}
	for rows.Next() {
		var def flowgraph.SpecialNodeDef
		if err := rows.Scan(&def); err != nil {
			return nil, fmt.Errorf("flowgraph: scan special node: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowgraph: rows special nodes: %w", err)
	}
	return defs, nil
}

// PutSpecialNode inserts or replaces the catalog entry with def.ID.
func (s *PGStore) PutSpecialNode(ctx context.Context, def *flowgraph.SpecialNodeDef) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO flowgraph_special_nodes (id, data) VALUES ($1, $2)
         ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		def.ID, def,
	)
	if err != nil {
		return fmt.Errorf("flowgraph: put special node: %w", err)
	}
	return nil
}
