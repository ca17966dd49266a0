package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meikuraledutech/flowgraph"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// insertGraph writes nodes then edges, preserving slice order in seq.
func insertGraph(ctx context.Context, q querier, systemID string, g flowgraph.Graph) error {
	for i, n := range g.Nodes {
		if _, err := q.Exec(ctx,
			`INSERT INTO flowgraph_system_nodes (system_id, id, seq, data) VALUES ($1, $2, $3, $4)`,
			systemID, n.ID, i, n,
		); err != nil {
			return fmt.Errorf("flowgraph: insert node %s: %w", n.ID, err)
		}
	}
	for i, e := range g.Edges {
		if _, err := q.Exec(ctx,
			`INSERT INTO flowgraph_system_edges (system_id, seq, source, target) VALUES ($1, $2, $3, $4)`,
			systemID, i, e.Source, e.Target,
		); err != nil {
			return fmt.Errorf("flowgraph: insert edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	return nil
}

// loadGraph reads a system's graph back in the order it was written.
// Both slices are non-nil.
func loadGraph(ctx context.Context, q querier, systemID string) (flowgraph.Graph, error) {
	g := flowgraph.Graph{Nodes: []flowgraph.Node{}, Edges: []flowgraph.Edge{}}

	rows, err := q.Query(ctx,
		`SELECT data FROM flowgraph_system_nodes WHERE system_id = $1 ORDER BY seq`, systemID)
	if err != nil {
		return g, fmt.Errorf("flowgraph: list nodes: %w", err)
	}
	nodes, err := pgx.CollectRows(rows, pgx.RowTo[flowgraph.Node])
	if err != nil {
		return g, fmt.Errorf("flowgraph: scan node: %w", err)
	}
	g.Nodes = append(g.Nodes, nodes...)

	rows, err = q.Query(ctx,
		`SELECT source, target FROM flowgraph_system_edges WHERE system_id = $1 ORDER BY seq`, systemID)
	if err != nil {
		return g, fmt.Errorf("flowgraph: list edges: %w", err)
	}
	edges, err := pgx.CollectRows(rows, pgx.RowToStructByPos[flowgraph.Edge])
	if err != nil {
		return g, fmt.Errorf("flowgraph: scan edge: %w", err)
	}
	g.Edges = append(g.Edges, edges...)

	return g, nil
}
