package canvas

import "fmt"

// SelectionState is the state of the interaction state machine.
type SelectionState uint8

const (
	Idle SelectionState = iota
	NodeSelected
	EdgeSelected
)

func (s SelectionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case NodeSelected:
		return "node_selected"
	case EdgeSelected:
		return "edge_selected"
	default:
		return fmt.Sprintf("SelectionState(%d)", uint8(s))
	}
}

// MarshalText encodes the state name.
func (s SelectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SelectionState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "node_selected":
		*s = NodeSelected
	case "edge_selected":
		*s = EdgeSelected
	default:
		return fmt.Errorf("canvas: unknown selection state %q", string(b))
	}
	return nil
}

// Selection is the single active entity. ID is a node id in NodeSelected,
// an edge id in EdgeSelected and empty in Idle.
type Selection struct {
	State SelectionState `json:"state"`
	ID    string         `json:"id,omitempty"`
}

// NodeID returns the selected node, if any.
func (s Selection) NodeID() (string, bool) {
	return s.ID, s.State == NodeSelected
}

// EdgeID returns the selected edge, if any.
func (s Selection) EdgeID() (string, bool) {
	return s.ID, s.State == EdgeSelected
}

// Key is a keyboard key the canvas reacts to.
type Key uint8

const (
	KeyEscape Key = iota + 1
	KeyDelete
	KeyBackspace
)

// UnmarshalText accepts DOM key names.
func (k *Key) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Escape":
		*k = KeyEscape
	case "Delete":
		*k = KeyDelete
	case "Backspace":
		*k = KeyBackspace
	default:
		return fmt.Errorf("canvas: unsupported key %q", string(b))
	}
	return nil
}

// Selection returns the current selection.
func (c *Canvas) Selection() Selection { return c.sel }

// ClickNode selects a node, clearing any edge selection.
func (c *Canvas) ClickNode(id string) error {
	if c.nodeIndex(id) < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	c.sel = Selection{State: NodeSelected, ID: id}
	return nil
}

// ClickEdge selects an edge, clearing any node selection.
func (c *Canvas) ClickEdge(id string) error {
	if c.edgeIndex(id) < 0 {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	c.sel = Selection{State: EdgeSelected, ID: id}
	return nil
}

// ClickCanvas handles a click on the empty background.
func (c *Canvas) ClickCanvas() { c.sel = Selection{} }

// PressKey handles a key press. Escape deselects; Delete and Backspace
// delete the selected entity. A failed delete keeps the selection.
func (c *Canvas) PressKey(k Key) error {
	switch k {
	case KeyEscape:
		c.sel = Selection{}
		return nil
	case KeyDelete, KeyBackspace:
		switch c.sel.State {
		case NodeSelected:
			return c.DeleteNode(c.sel.ID)
		case EdgeSelected:
			return c.DeleteEdge(c.sel.ID)
		}
		return nil
	default:
		return nil
	}
}

func (c *Canvas) selectionValid() bool {
	switch c.sel.State {
	case NodeSelected:
		return c.nodeIndex(c.sel.ID) >= 0
	case EdgeSelected:
		return c.edgeIndex(c.sel.ID) >= 0
	default:
		return true
	}
}
