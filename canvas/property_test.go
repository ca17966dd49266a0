package canvas

import (
	"fmt"
	"testing"

	"github.com/meikuraledutech/flowgraph"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// drawCommand picks a random command whose ids are drawn from what is on
// the canvas plus a few ids that do not exist.
func drawCommand(rt *rapid.T, c *Canvas, step int) Command {
	nodeIDs := []string{"ghost"}
	for _, n := range c.Nodes() {
		nodeIDs = append(nodeIDs, n.ID)
	}
	edgeIDs := []string{"edge-ghost"}
	for _, e := range c.Edges() {
		edgeIDs = append(edgeIDs, e.ID)
	}
	node := func(label string) string {
		return rapid.SampledFrom(nodeIDs).Draw(rt, fmt.Sprintf("%s_%d", label, step))
	}
	edge := func() string {
		return rapid.SampledFrom(edgeIDs).Draw(rt, fmt.Sprintf("edge_%d", step))
	}

	switch rapid.IntRange(0, 10).Draw(rt, fmt.Sprintf("op_%d", step)) {
	case 0, 1:
		return AddNode{Persona: rapid.SampledFrom([]string{"", "Writer", "Editor"}).Draw(rt, fmt.Sprintf("persona_%d", step))}
	case 2:
		return DeleteNode{ID: node("delete")}
	case 3:
		return DeleteEdge{ID: edge()}
	case 4, 5:
		return Connect{Source: node("source"), Target: node("target")}
	case 6:
		end := rapid.SampledFrom([]Endpoint{EndpointSource, EndpointTarget}).Draw(rt, fmt.Sprintf("end_%d", step))
		return Rewire{EdgeID: edge(), End: end, NodeID: node("rewire")}
	case 7:
		return SetPersona{NodeID: node("persona_node"), Persona: "Reviewer"}
	case 8:
		return Clear{Confirmed: rapid.Bool().Draw(rt, fmt.Sprintf("confirm_%d", step))}
	case 9:
		return ClickNode{ID: node("click")}
	default:
		if rapid.Bool().Draw(rt, fmt.Sprintf("click_or_key_%d", step)) {
			return ClickEdge{ID: edge()}
		}
		return KeyPress{Key: rapid.SampledFrom([]Key{KeyEscape, KeyDelete, KeyBackspace}).Draw(rt, fmt.Sprintf("key_%d", step))}
	}
}

func checkInvariants(t *rapid.T, c *Canvas, specials []flowgraph.SpecialNodeDef) {
	g := c.Graph()
	require.NoError(t, g.Validate(), "edges reference existing nodes, no self-loops, unique ids")

	counts := map[string]int{}
	for _, n := range c.Nodes() {
		if n.IsSpecial() {
			counts[n.ID]++
		}
	}
	for _, def := range specials {
		require.Equal(t, 1, counts[def.ID], "special node %s present exactly once", def.ID)
	}

	agents := 0
	for _, n := range g.Nodes {
		if !n.IsSpecial() {
			agents++
		}
	}
	require.Equal(t, agents, c.AgentCount())

	sel := c.Selection()
	switch sel.State {
	case Idle:
		require.Empty(t, sel.ID)
	case NodeSelected:
		_, ok := c.Node(sel.ID)
		require.True(t, ok, "selected node exists")
	case EdgeSelected:
		_, ok := c.Edge(sel.ID)
		require.True(t, ok, "selected edge exists")
	}

	for _, e := range c.Edges() {
		require.Len(t, e.Available, len(g.Nodes), "rewiring snapshot covers every node")
	}
}

func TestProperty_MutationsPreserveInvariants(t *testing.T) {
	specials := []flowgraph.SpecialNodeDef{
		{ID: "prompt", Type: "prompt"},
		{ID: "output", Type: "output"},
	}

	rapid.Check(t, func(rt *rapid.T) {
		c := New(WithLogger(zap.NewNop()))
		c.SetSpecialNodes(specials)

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			cmd := drawCommand(rt, c, i)
			before := c.Graph()
			_, err := c.Dispatch(cmd)
			if err != nil {
				require.Equal(rt, before, c.Graph(), "%s failed with %v but changed the graph", cmd.Name(), err)
			}
			checkInvariants(rt, c, specials)
		}
	})
}

func TestProperty_LoadIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := New(WithLogger(zap.NewNop()))
		c.SetSpecialNodes(flowgraph.DefaultSpecialNodes())

		ids := []string{"prompt", "a", "b", "c", "d", ""}
		g := &flowgraph.Graph{Nodes: []flowgraph.Node{}, Edges: []flowgraph.Edge{}}
		for i, n := 0, rapid.IntRange(0, 6).Draw(rt, "nodes"); i < n; i++ {
			g.Nodes = append(g.Nodes, flowgraph.Node{
				ID:      rapid.SampledFrom(ids).Draw(rt, fmt.Sprintf("node_%d", i)),
				Persona: rapid.SampledFrom([]string{"", "Writer"}).Draw(rt, fmt.Sprintf("persona_%d", i)),
				Role:    rapid.SampledFrom([]string{"", "Agent", "Critic"}).Draw(rt, fmt.Sprintf("role_%d", i)),
			})
		}
		for i, n := 0, rapid.IntRange(0, 8).Draw(rt, "edges"); i < n; i++ {
			g.Edges = append(g.Edges, flowgraph.Edge{
				Source: rapid.SampledFrom(ids).Draw(rt, fmt.Sprintf("src_%d", i)),
				Target: rapid.SampledFrom(ids).Draw(rt, fmt.Sprintf("dst_%d", i)),
			})
		}

		c.Load(g)
		checkInvariants(rt, c, flowgraph.DefaultSpecialNodes())
		rev := c.Revision()

		require.False(rt, c.Load(g), "second identical load must be a no-op")
		require.Equal(rt, rev, c.Revision())

		exported := c.Graph()
		require.False(rt, c.Load(&exported), "re-importing the export must be a no-op")
		require.Equal(rt, rev, c.Revision())
	})
}
