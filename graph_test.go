package flowgraph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAgentNode_DefaultsRole(t *testing.T) {
	n := NewAgentNode("node-1", "Writer", "")
	assert.Equal(t, Node{ID: "node-1", Kind: KindAgent, Persona: "Writer", Role: "Agent"}, n)

	n = NewAgentNode("node-2", "Writer", "Editor")
	assert.Equal(t, "Editor", n.Role)
}

func TestNewSpecialNode(t *testing.T) {
	n := NewSpecialNode(SpecialNodeDef{ID: "prompt", Type: "prompt", Description: "entry", Prompt: "hi", Role: "User Input"})
	assert.True(t, n.IsSpecial())
	assert.Equal(t, "prompt", n.SpecialType)
	assert.Equal(t, "entry", n.Description)
	assert.Equal(t, "hi", n.Prompt)
}

func TestSemanticEqual(t *testing.T) {
	agent := NewAgentNode("a", "Writer", "")
	special := NewSpecialNode(SpecialNodeDef{ID: "s", Type: "prompt"})

	tests := []struct {
		name string
		a, b Node
		want bool
	}{
		{"same agent", agent, agent, true},
		{"agent persona differs", agent, NewAgentNode("a", "Editor", ""), false},
		{"agent role differs", agent, NewAgentNode("a", "Writer", "Critic"), false},
		{"agent prompt ignored", agent, Node{ID: "a", Persona: "Writer", Role: "Agent", Prompt: "x"}, true},
		{"id differs", agent, NewAgentNode("b", "Writer", ""), false},
		{"kind differs", Node{ID: "s"}, special, false},
		{"same special", special, special, true},
		{"special type differs", special, NewSpecialNode(SpecialNodeDef{ID: "s", Type: "output"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.SemanticEqual(tt.b))
		})
	}
}

func TestGraph_WireShape(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			NewSpecialNode(SpecialNodeDef{ID: "special-0", Type: "prompt"}),
			NewAgentNode("node-1700000000000", "Researcher", ""),
		},
		Edges: []Edge{{Source: "special-0", Target: "node-1700000000000"}},
	}

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"nodes": [
			{"id": "special-0", "kind": "special", "special_type": "prompt"},
			{"id": "node-1700000000000", "persona": "Researcher", "role": "Agent"}
		],
		"edges": [{"source": "special-0", "target": "node-1700000000000"}]
	}`, string(data))

	back, err := ParseGraph(data)
	require.NoError(t, err)
	assert.Equal(t, g, *back)
}

func TestNodeKind_Unmarshal(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","kind":"custom"}`), &n))
	assert.Equal(t, KindAgent, n.Kind)

	assert.Error(t, json.Unmarshal([]byte(`{"id":"x","kind":"robot"}`), &n))
}

func TestGraph_WellFormed(t *testing.T) {
	var nilGraph *Graph
	assert.False(t, nilGraph.WellFormed())

	g, err := ParseGraph([]byte(`{"nodes": []}`))
	require.NoError(t, err)
	assert.False(t, g.WellFormed())

	g, err = ParseGraph([]byte(`{"nodes": [], "edges": []}`))
	require.NoError(t, err)
	assert.True(t, g.WellFormed())
}

func TestGraph_Validate(t *testing.T) {
	nodes := []Node{NewAgentNode("a", "A", ""), NewAgentNode("b", "B", "")}

	assert.NoError(t, Graph{Nodes: nodes, Edges: []Edge{{Source: "a", Target: "b"}, {Source: "a", Target: "b"}}}.Validate())

	bad := []Graph{
		{Nodes: append(nodes, NewAgentNode("a", "dup", ""))},
		{Nodes: []Node{{ID: ""}}},
		{Nodes: nodes, Edges: []Edge{{Source: "a", Target: "a"}}},
		{Nodes: nodes, Edges: []Edge{{Source: "a", Target: "z"}}},
		{Nodes: nodes, Edges: []Edge{{Source: "z", Target: "a"}}},
	}
	for _, g := range bad {
		assert.ErrorIs(t, g.Validate(), ErrInvalidGraph)
	}
}

func TestGraph_AgentNodesAndClone(t *testing.T) {
	g := Graph{
		Nodes: []Node{NewSpecialNode(DefaultSpecialNodes()[0]), NewAgentNode("a", "A", "")},
		Edges: []Edge{{Source: PromptNodeID, Target: "a"}},
	}
	assert.Equal(t, []Node{NewAgentNode("a", "A", "")}, g.AgentNodes())

	c := g.Clone()
	c.Nodes[1].Persona = "changed"
	c.Edges[0].Target = "b"
	assert.Equal(t, "A", g.Nodes[1].Persona)
	assert.Equal(t, "a", g.Edges[0].Target)
}
