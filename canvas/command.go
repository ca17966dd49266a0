package canvas

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Command is a user action addressed to a canvas. Commands carry the ids
// of their targets and are resolved against the live collections when
// dispatched, so a command never acts on a stale copy of a node.
type Command interface {
	// Name is the wire name of the command.
	Name() string
	apply(c *Canvas) (Result, error)
}

// Result reports what a dispatched command produced.
type Result struct {
	NodeID  string `json:"node_id,omitempty"`
	EdgeID  string `json:"edge_id,omitempty"`
	Cleared bool   `json:"cleared,omitempty"`
}

type (
	AddNode struct {
		Persona string `json:"persona"`
	}
	DeleteNode struct {
		ID string `json:"id"`
	}
	DeleteEdge struct {
		ID string `json:"id"`
	}
	Connect struct {
		Source string `json:"source"`
		Target string `json:"target"`
	}
	Rewire struct {
		EdgeID string   `json:"edge_id"`
		End    Endpoint `json:"end"`
		NodeID string   `json:"node_id"`
	}
	SetPersona struct {
		NodeID  string `json:"node_id"`
		Persona string `json:"persona"`
	}
	MoveNode struct {
		NodeID   string   `json:"node_id"`
		Position Position `json:"position"`
	}
	// Clear only proceeds when Confirmed is set; it is the explicit
	// confirm step in front of the irreversible clear.
	Clear struct {
		Confirmed bool `json:"confirmed"`
	}
	ClickNode struct {
		ID string `json:"id"`
	}
	ClickEdge struct {
		ID string `json:"id"`
	}
	ClickCanvas struct{}
	KeyPress    struct {
		Key Key `json:"key"`
	}
)

func (AddNode) Name() string     { return "add_node" }
func (DeleteNode) Name() string  { return "delete_node" }
func (DeleteEdge) Name() string  { return "delete_edge" }
func (Connect) Name() string     { return "connect" }
func (Rewire) Name() string      { return "rewire" }
func (SetPersona) Name() string  { return "set_persona" }
func (MoveNode) Name() string    { return "move_node" }
func (Clear) Name() string       { return "clear" }
func (ClickNode) Name() string   { return "click_node" }
func (ClickEdge) Name() string   { return "click_edge" }
func (ClickCanvas) Name() string { return "click_canvas" }
func (KeyPress) Name() string    { return "key_press" }

func (cmd AddNode) apply(c *Canvas) (Result, error) {
	id, err := c.AddAgentNode(cmd.Persona)
	return Result{NodeID: id}, err
}

func (cmd DeleteNode) apply(c *Canvas) (Result, error) {
	return Result{NodeID: cmd.ID}, c.DeleteNode(cmd.ID)
}

func (cmd DeleteEdge) apply(c *Canvas) (Result, error) {
	return Result{EdgeID: cmd.ID}, c.DeleteEdge(cmd.ID)
}

func (cmd Connect) apply(c *Canvas) (Result, error) {
	id, err := c.Connect(cmd.Source, cmd.Target)
	return Result{EdgeID: id}, err
}

func (cmd Rewire) apply(c *Canvas) (Result, error) {
	return Result{EdgeID: cmd.EdgeID}, c.RewireEdge(cmd.EdgeID, cmd.End, cmd.NodeID)
}

func (cmd SetPersona) apply(c *Canvas) (Result, error) {
	return Result{NodeID: cmd.NodeID}, c.SetPersona(cmd.NodeID, cmd.Persona)
}

func (cmd MoveNode) apply(c *Canvas) (Result, error) {
	return Result{NodeID: cmd.NodeID}, c.MoveNode(cmd.NodeID, cmd.Position)
}

func (cmd Clear) apply(c *Canvas) (Result, error) {
	ok, err := c.Clear(func(string) bool { return cmd.Confirmed })
	return Result{Cleared: ok}, err
}

func (cmd ClickNode) apply(c *Canvas) (Result, error) {
	return Result{NodeID: cmd.ID}, c.ClickNode(cmd.ID)
}

func (cmd ClickEdge) apply(c *Canvas) (Result, error) {
	return Result{EdgeID: cmd.ID}, c.ClickEdge(cmd.ID)
}

func (ClickCanvas) apply(c *Canvas) (Result, error) {
	c.ClickCanvas()
	return Result{}, nil
}

func (cmd KeyPress) apply(c *Canvas) (Result, error) {
	return Result{}, c.PressKey(cmd.Key)
}

// Dispatch executes cmd against the canvas.
func (c *Canvas) Dispatch(cmd Command) (Result, error) {
	if cmd == nil {
		return Result{}, ErrUnknownCommand
	}
	res, err := cmd.apply(c)
	if err != nil {
		c.logger.Debug("command rejected", zap.String("command", cmd.Name()), zap.Error(err))
		return res, err
	}
	return res, nil
}

// DecodeCommand parses a {"type": "<name>", ...} envelope into a Command.
// Malformed bodies wrap ErrInvalidCommand; unrecognized types wrap
// ErrUnknownCommand.
func DecodeCommand(data []byte) (Command, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	var decode func([]byte) (Command, error)
	switch head.Type {
	case "add_node":
		decode = decodeInto[AddNode]
	case "delete_node":
		decode = decodeInto[DeleteNode]
	case "delete_edge":
		decode = decodeInto[DeleteEdge]
	case "connect":
		decode = decodeInto[Connect]
	case "rewire":
		decode = decodeInto[Rewire]
	case "set_persona":
		decode = decodeInto[SetPersona]
	case "move_node":
		decode = decodeInto[MoveNode]
	case "clear":
		decode = decodeInto[Clear]
	case "click_node":
		decode = decodeInto[ClickNode]
	case "click_edge":
		decode = decodeInto[ClickEdge]
	case "click_canvas":
		decode = decodeInto[ClickCanvas]
	case "key_press":
		decode = decodeInto[KeyPress]
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, head.Type)
	}
	cmd, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCommand, head.Type, err)
	}
	return cmd, nil
}

func decodeInto[T Command](data []byte) (Command, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
