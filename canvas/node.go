package canvas

import (
	"fmt"

	"github.com/meikuraledutech/flowgraph"
)

// Variant selects how a node is rendered. The set is closed; every switch
// over it handles both values.
type Variant uint8

const (
	VariantCustom Variant = iota
	VariantSpecial
)

func (v Variant) String() string {
	switch v {
	case VariantCustom:
		return "custom"
	case VariantSpecial:
		return "special"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// MarshalText encodes the variant as the renderer's node type.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText accepts "custom" or "special".
func (v *Variant) UnmarshalText(b []byte) error {
	switch string(b) {
	case "custom":
		*v = VariantCustom
	case "special":
		*v = VariantSpecial
	default:
		return fmt.Errorf("canvas: unknown node type %q", string(b))
	}
	return nil
}

func variantOf(k flowgraph.NodeKind) Variant {
	switch k {
	case flowgraph.KindAgent:
		return VariantCustom
	case flowgraph.KindSpecial:
		return VariantSpecial
	}
	panic(fmt.Sprintf("canvas: unhandled node kind %v", k))
}

// Position is a point in flow coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a workflow step as placed on the canvas.
type Node struct {
	flowgraph.Node
	Position Position `json:"position"`
	Variant  Variant  `json:"type"`
}

func newNode(n flowgraph.Node, pos Position) Node {
	return Node{Node: n, Position: pos, Variant: variantOf(n.Kind)}
}

// Label is the text used to name the node in pickers and menus.
func (n Node) Label() string {
	switch {
	case n.Persona != "":
		return n.Persona
	case n.SpecialType != "":
		return n.SpecialType
	default:
		return n.ID
	}
}

// NodeRef is an entry of an edge's rewiring snapshot.
type NodeRef struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Edge is a connection as drawn on the canvas. Available is a snapshot of
// the nodes an endpoint may be moved to; it is rebuilt after every mutation
// and is never read back as topology.
type Edge struct {
	ID string `json:"id"`
	flowgraph.Edge
	Available []NodeRef `json:"available_nodes,omitempty"`
}

func (e Edge) clone() Edge {
	if e.Available != nil {
		refs := make([]NodeRef, len(e.Available))
		copy(refs, e.Available)
		e.Available = refs
	}
	return e
}

// Endpoint names one end of an edge.
type Endpoint uint8

const (
	EndpointSource Endpoint = iota
	EndpointTarget
)

func (e Endpoint) String() string {
	switch e {
	case EndpointSource:
		return "source"
	case EndpointTarget:
		return "target"
	default:
		return fmt.Sprintf("Endpoint(%d)", uint8(e))
	}
}

// UnmarshalText accepts "source" or "target".
func (e *Endpoint) UnmarshalText(b []byte) error {
	switch string(b) {
	case "source":
		*e = EndpointSource
	case "target":
		*e = EndpointTarget
	default:
		return fmt.Errorf("canvas: unknown endpoint %q", string(b))
	}
	return nil
}
