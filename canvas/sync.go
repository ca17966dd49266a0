package canvas

import (
	"fmt"

	"github.com/meikuraledutech/flowgraph"
	"go.uber.org/zap"
)

// Graph projects the canvas to its canonical form: positions, variants and
// rewiring snapshots are stripped. Slices are never nil.
func (c *Canvas) Graph() flowgraph.Graph {
	g := flowgraph.Graph{
		Nodes: make([]flowgraph.Node, 0, len(c.nodes)),
		Edges: make([]flowgraph.Edge, 0, len(c.edges)),
	}
	for _, n := range c.nodes {
		g.Nodes = append(g.Nodes, n.Node)
	}
	for _, e := range c.edges {
		g.Edges = append(g.Edges, e.Edge)
	}
	return g
}

// SetSpecialNodes installs the special-node catalog. Entries are laid out in
// catalog order; entries with an empty or repeated id are skipped, so
// applying the same catalog again never duplicates a node. Agent nodes that
// collide with a catalog id and edges left dangling are removed.
func (c *Canvas) SetSpecialNodes(defs []flowgraph.SpecialNodeDef) {
	ids := make(map[string]struct{}, len(defs))
	specials := make([]Node, 0, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			c.logger.Warn("special node without id skipped", zap.String("type", def.Type))
			continue
		}
		if _, dup := ids[def.ID]; dup {
			c.logger.Warn("duplicate special node skipped", zap.String("node_id", def.ID))
			continue
		}
		ids[def.ID] = struct{}{}
		specials = append(specials, newNode(flowgraph.NewSpecialNode(def), SpecialPosition(len(specials))))
	}

	nodes := specials
	for _, n := range c.nodes {
		if n.IsSpecial() {
			continue
		}
		if _, taken := ids[n.ID]; taken {
			c.logger.Warn("agent node shadowed by special node removed", zap.String("node_id", n.ID))
			continue
		}
		nodes = append(nodes, n)
	}
	edges := keepConnected(c.edges, nodes)

	changed := !sameNodes(c.nodes, nodes) || !sameEdges(c.edges, edges)
	c.specials = ids
	c.nodes = nodes
	c.edges = edges
	if !changed {
		return
	}
	if !c.selectionValid() {
		c.sel = Selection{}
	}

	c.logger.Debug("special nodes installed", zap.Int("count", len(specials)))
	c.commit(true)
}

// Load reconciles the canvas with an externally supplied canonical graph.
//
// Only agent nodes and edges are imported: special nodes in g, and any node
// whose id belongs to the special-node catalog, are ignored. Agent roles are
// defaulted, nodes with empty or repeated ids are dropped, and edges that
// are self-loops or reference a missing node are dropped. If the result is
// semantically equal to the current agent nodes and edges, nothing happens
// and Load returns false; this is what stops an outbound echo from
// re-triggering an inbound update. A nil or malformed g is ignored.
func (c *Canvas) Load(g *flowgraph.Graph) bool {
	if !g.WellFormed() {
		c.logger.Debug("malformed graph ignored")
		return false
	}

	agents := make([]Node, 0, len(g.Nodes))
	seen := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.Kind == flowgraph.KindSpecial {
			continue
		}
		if _, special := c.specials[n.ID]; special {
			continue
		}
		if n.ID == "" {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			c.logger.Debug("duplicate node dropped", zap.String("node_id", n.ID))
			continue
		}
		seen[n.ID] = struct{}{}
		agent := flowgraph.NewAgentNode(n.ID, n.Persona, n.Role)
		agents = append(agents, newNode(agent, GridPosition(len(agents))))
	}

	nodes := make([]Node, 0, len(c.specials)+len(agents))
	for _, n := range c.nodes {
		if n.IsSpecial() {
			nodes = append(nodes, n)
		}
	}
	nodes = append(nodes, agents...)

	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, Edge{Edge: e})
	}
	edges = keepConnected(edges, nodes)

	// An identical reload is a no-op, selection included.
	if sameNodes(c.agentNodes(), agents) && sameEdges(c.edges, edges) {
		return false
	}

	for i := range edges {
		edges[i].ID = fmt.Sprintf("edge-%d", i)
	}
	c.nodes = nodes
	c.edges = edges
	c.sel = Selection{}

	c.logger.Debug("graph loaded", zap.Int("agents", len(agents)), zap.Int("edges", len(edges)))
	c.commit(true)
	return true
}

func (c *Canvas) agentNodes() []Node {
	return filter(c.nodes, func(n Node) bool { return !n.IsSpecial() })
}

// keepConnected drops self-loops and edges whose endpoints are not in nodes.
func keepConnected(edges []Edge, nodes []Node) []Edge {
	ids := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = struct{}{}
	}
	return filter(edges, func(e Edge) bool {
		if e.Source == e.Target {
			return false
		}
		_, src := ids[e.Source]
		_, dst := ids[e.Target]
		return src && dst
	})
}

func sameNodes(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].SemanticEqual(b[i].Node) {
			return false
		}
	}
	return true
}

func sameEdges(a, b []Edge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Edge.Equal(b[i].Edge) {
			return false
		}
	}
	return true
}
