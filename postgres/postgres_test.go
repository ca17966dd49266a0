package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/flowgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStore connects to FLOWGRAPH_TEST_DATABASE_URL and recreates the
// schema. The test is skipped when the variable is unset.
func setupStore(t *testing.T) *PGStore {
	t.Helper()
	url := os.Getenv("FLOWGRAPH_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FLOWGRAPH_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))
	t.Cleanup(func() { _ = s.DropSchema(context.Background()) })
	return s
}

func TestPGStore_Personas(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	p := &flowgraph.Persona{
		Name:  "Researcher",
		Agent: flowgraph.PersonaSpec{Role: "Researcher", Goal: "facts"},
		Task:  flowgraph.TaskSpec{Description: "research {user_prompt}"},
	}
	require.NoError(t, s.CreatePersona(ctx, p))
	assert.ErrorIs(t, s.CreatePersona(ctx, p), flowgraph.ErrPersonaExists)

	got, err := s.GetPersona(ctx, "Researcher")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	p.Agent.Goal = "more facts"
	require.NoError(t, s.UpdatePersona(ctx, "Researcher", p))
	assert.ErrorIs(t, s.UpdatePersona(ctx, "Nobody", p), flowgraph.ErrPersonaNotFound)

	list, err := s.ListPersonas(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "more facts", list[0].Agent.Goal)

	_, err = s.DeletePersona(ctx, "Researcher")
	require.NoError(t, err)
	_, err = s.DeletePersona(ctx, "Researcher")
	assert.ErrorIs(t, err, flowgraph.ErrPersonaNotFound)
}

func TestPGStore_SpecialNodesSeeded(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	defs, err := s.ListSpecialNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, flowgraph.DefaultSpecialNodes(), defs)

	def := flowgraph.DefaultSpecialNodes()[0]
	def.Description = "changed"
	require.NoError(t, s.PutSpecialNode(ctx, &def))
	defs, err = s.ListSpecialNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "changed", defs[0].Description)
}

func TestPGStore_Systems(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	g := flowgraph.Graph{
		Nodes: []flowgraph.Node{
			flowgraph.NewSpecialNode(flowgraph.DefaultSpecialNodes()[0]),
			flowgraph.NewAgentNode("a", "Researcher", ""),
			flowgraph.NewAgentNode("b", "Writer", "Editor"),
		},
		Edges: []flowgraph.Edge{
			{Source: flowgraph.PromptNodeID, Target: "a"},
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
		},
	}
	created, err := s.CreateSystem(ctx, &flowgraph.System{Name: "loop", Description: "v1", Graph: g})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, g, created.Graph)

	_, err = s.CreateSystem(ctx, &flowgraph.System{Name: "loop", Graph: g})
	assert.ErrorIs(t, err, flowgraph.ErrSystemExists)

	smaller := flowgraph.Graph{Nodes: g.Nodes[:2], Edges: g.Edges[:1]}
	updated, err := s.UpdateSystem(ctx, "loop", &flowgraph.System{Description: "v2", Graph: smaller})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Description)
	assert.Equal(t, smaller, updated.Graph)

	list, err := s.ListSystems(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	deleted, err := s.DeleteSystem(ctx, "loop")
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	missing, err := s.GetSystem(ctx, "loop")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

var _ flowgraph.Store = (*PGStore)(nil)
