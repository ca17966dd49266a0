package flowgraph

import (
	"encoding/json"
	"fmt"
)

// DefaultRole is assigned to agent nodes created without an explicit role.
const DefaultRole = "Agent"

// NodeKind is the closed set of workflow step kinds.
type NodeKind uint8

const (
	KindAgent NodeKind = iota
	KindSpecial
)

func (k NodeKind) String() string {
	switch k {
	case KindAgent:
		return "agent"
	case KindSpecial:
		return "special"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind for the wire.
func (k NodeKind) MarshalText() ([]byte, error) {
	switch k {
	case KindAgent, KindSpecial:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("flowgraph: unknown node kind %d", uint8(k))
	}
}

// UnmarshalText accepts "agent", "special" and the editor's "custom" alias.
// An empty value means agent.
func (k *NodeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "agent", "custom":
		*k = KindAgent
	case "special":
		*k = KindSpecial
	default:
		return fmt.Errorf("flowgraph: unknown node kind %q", string(b))
	}
	return nil
}

// Graph is the canonical, position-free workflow exchanged with storage and
// execution. A graph whose Nodes or Edges is nil is malformed.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a canonical workflow step.
// Kind is omitted on the wire for agent nodes, so an agent is exactly
// {"id", "persona", "role"}.
type Node struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"kind,omitempty"`
	Persona     string   `json:"persona,omitempty"`
	Role        string   `json:"role,omitempty"`
	SpecialType string   `json:"special_type,omitempty"`
	Description string   `json:"description,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// NewAgentNode builds an agent step. An empty role defaults to DefaultRole.
func NewAgentNode(id, persona, role string) Node {
	if role == "" {
		role = DefaultRole
	}
	return Node{ID: id, Kind: KindAgent, Persona: persona, Role: role}
}

// NewSpecialNode builds a protected step from a catalog entry.
func NewSpecialNode(def SpecialNodeDef) Node {
	return Node{
		ID:          def.ID,
		Kind:        KindSpecial,
		Role:        def.Role,
		SpecialType: def.Type,
		Description: def.Description,
		Prompt:      def.Prompt,
	}
}

// IsSpecial reports whether n is a protected special node.
func (n Node) IsSpecial() bool { return n.Kind == KindSpecial }

// SemanticEqual compares the fields that matter for diffing.
// Agents compare id, persona and role; special nodes compare id and the
// catalog-owned fields.
func (n Node) SemanticEqual(o Node) bool {
	if n.Kind != o.Kind || n.ID != o.ID {
		return false
	}
	switch n.Kind {
	case KindAgent:
		return n.Persona == o.Persona && n.Role == o.Role
	case KindSpecial:
		return n.SpecialType == o.SpecialType &&
			n.Description == o.Description &&
			n.Prompt == o.Prompt
	default:
		return false
	}
}

// Equal compares endpoints only.
func (e Edge) Equal(o Edge) bool {
	return e.Source == o.Source && e.Target == o.Target
}

// WellFormed reports whether g carries both node and edge arrays.
func (g *Graph) WellFormed() bool {
	return g != nil && g.Nodes != nil && g.Edges != nil
}

// AgentNodes returns the agent steps of g in order.
func (g Graph) AgentNodes() []Node {
	out := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.Kind == KindAgent {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks the structural invariants: unique node ids, edges that
// reference existing nodes, no self-loops.
func (g Graph) Validate() error {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node without id", ErrInvalidGraph)
		}
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidGraph, n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, e := range g.Edges {
		if e.Source == e.Target {
			return fmt.Errorf("%w: self-loop on %q", ErrInvalidGraph, e.Source)
		}
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("%w: edge references unknown source %q", ErrInvalidGraph, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("%w: edge references unknown target %q", ErrInvalidGraph, e.Target)
		}
	}
	return nil
}

// Clone returns a deep copy of g.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Edges, g.Edges)
	return out
}

// ParseGraph decodes a canonical graph payload.
func ParseGraph(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("flowgraph: decode graph: %w", err)
	}
	return &g, nil
}
