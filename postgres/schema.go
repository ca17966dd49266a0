package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS flowgraph_personas (
    name       TEXT PRIMARY KEY,
    agent      JSONB NOT NULL DEFAULT '{}',
    task       JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS flowgraph_special_nodes (
    id         TEXT PRIMARY KEY,
    data       JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS flowgraph_systems (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS flowgraph_system_nodes (
    system_id TEXT NOT NULL REFERENCES flowgraph_systems(id) ON DELETE CASCADE,
    id        TEXT NOT NULL,
    seq       INT  NOT NULL,
    data      JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (system_id, id)
);

CREATE TABLE IF NOT EXISTS flowgraph_system_edges (
    system_id TEXT NOT NULL REFERENCES flowgraph_systems(id) ON DELETE CASCADE,
    seq       INT  NOT NULL,
    source    TEXT NOT NULL,
    target    TEXT NOT NULL,
    PRIMARY KEY (system_id, seq),
    FOREIGN KEY (system_id, source) REFERENCES flowgraph_system_nodes(system_id, id) ON DELETE CASCADE,
    FOREIGN KEY (system_id, target) REFERENCES flowgraph_system_nodes(system_id, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_flowgraph_system_nodes_system ON flowgraph_system_nodes(system_id);
CREATE INDEX IF NOT EXISTS idx_flowgraph_system_edges_system ON flowgraph_system_edges(system_id);
`

const seedSQL = `
INSERT INTO flowgraph_special_nodes (id, data) VALUES ($1, $2)
ON CONFLICT (id) DO NOTHING
`

// CreateSchema creates the flowgraph tables if they don't exist and seeds
// the default special-node catalog.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return err
	}
	for _, def := range defaultSpecials() {
		if _, err := s.db.Exec(ctx, seedSQL, def.ID, def); err != nil {
			return err
		}
	}
	return nil
}

// DropSchema drops every flowgraph table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS
    flowgraph_system_edges, flowgraph_system_nodes, flowgraph_systems,
    flowgraph_special_nodes, flowgraph_personas CASCADE;`)
	return err
}
