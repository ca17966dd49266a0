// Package canvas holds the interactively edited workflow graph: node and
// edge placement, the mutation operations a user can invoke, selection
// state, and the synchronization with the canonical flowgraph.Graph.
//
// A Canvas is not safe for concurrent use. All calls are expected to come
// from one event loop; callers that share a Canvas serialize access.
package canvas

import (
	"errors"
	"fmt"
	"time"

	"github.com/meikuraledutech/flowgraph"
	"go.uber.org/zap"
)

var (
	ErrNoPersona      = errors.New("canvas: please select a persona first")
	ErrProtectedNode  = errors.New("canvas: special nodes cannot be deleted")
	ErrReadOnlyNode   = errors.New("canvas: special nodes cannot be edited")
	ErrSelfLoop       = errors.New("canvas: cannot connect a node to itself")
	ErrNodeNotFound   = errors.New("canvas: node not found")
	ErrEdgeNotFound   = errors.New("canvas: edge not found")
	ErrNothingToClear = errors.New("canvas: no nodes to clear")
	ErrUnknownCommand = errors.New("canvas: unknown command")
	ErrInvalidCommand = errors.New("canvas: invalid command")
)

// IsValidation reports whether err is a rejected user action, as opposed
// to a reference to something that does not exist.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoPersona) ||
		errors.Is(err, ErrProtectedNode) ||
		errors.Is(err, ErrReadOnlyNode) ||
		errors.Is(err, ErrSelfLoop) ||
		errors.Is(err, ErrNothingToClear)
}

// ClearPrompt is the question passed to the confirm callback of Clear.
const ClearPrompt = "Are you sure you want to clear the entire graph?"

// Canvas is the live visual graph of one editing session.
type Canvas struct {
	logger   *zap.Logger
	nodes    []Node
	edges    []Edge
	specials map[string]struct{}
	sel      Selection
	viewport *Viewport
	onChange func(flowgraph.Graph)
	now      func() time.Time
	lastID   int64
	revision uint64
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Canvas) { c.logger = l }
}

// WithChangeHandler registers the outbound sync target. It receives the
// canonical projection after every committed topology change.
func WithChangeHandler(fn func(flowgraph.Graph)) Option {
	return func(c *Canvas) { c.onChange = fn }
}

// WithClock overrides the time source used for node ids.
func WithClock(now func() time.Time) Option {
	return func(c *Canvas) { c.now = now }
}

// New returns an empty canvas.
func New(opts ...Option) *Canvas {
	c := &Canvas{
		logger:   zap.NewNop(),
		nodes:    []Node{},
		edges:    []Edge{},
		specials: map[string]struct{}{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "canvas"))
	return c
}

// SetChangeHandler replaces the outbound sync target.
func (c *Canvas) SetChangeHandler(fn func(flowgraph.Graph)) { c.onChange = fn }

// SetViewport records the current pan/zoom transform. nil means unknown.
func (c *Canvas) SetViewport(v *Viewport) {
	if v == nil {
		c.viewport = nil
		return
	}
	vp := *v
	c.viewport = &vp
}

// Revision increases by one with every committed mutation.
func (c *Canvas) Revision() uint64 { return c.revision }

// Nodes returns a copy of the current nodes, specials first.
func (c *Canvas) Nodes() []Node {
	out := make([]Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Edges returns a copy of the current edges.
func (c *Canvas) Edges() []Edge {
	out := make([]Edge, len(c.edges))
	for i, e := range c.edges {
		out[i] = e.clone()
	}
	return out
}

// Node looks up a node by id.
func (c *Canvas) Node(id string) (Node, bool) {
	if i := c.nodeIndex(id); i >= 0 {
		return c.nodes[i], true
	}
	return Node{}, false
}

// Edge looks up an edge by id.
func (c *Canvas) Edge(id string) (Edge, bool) {
	if i := c.edgeIndex(id); i >= 0 {
		return c.edges[i].clone(), true
	}
	return Edge{}, false
}

// AgentCount is the number of deletable nodes.
func (c *Canvas) AgentCount() int {
	n := 0
	for _, node := range c.nodes {
		if !node.IsSpecial() {
			n++
		}
	}
	return n
}

// AddAgentNode places a new agent node bound to persona at the viewport
// center and returns its id.
func (c *Canvas) AddAgentNode(persona string) (string, error) {
	if persona == "" {
		return "", ErrNoPersona
	}
	id := c.newNodeID()
	node := newNode(flowgraph.NewAgentNode(id, persona, ""), ViewportCenter(c.viewport))
	c.nodes = append(c.nodes[:len(c.nodes):len(c.nodes)], node)

	c.logger.Debug("node added", zap.String("node_id", id), zap.String("persona", persona))
	c.commit(true)
	return id, nil
}

// DeleteNode removes an agent node together with every edge touching it.
func (c *Canvas) DeleteNode(id string) error {
	i := c.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if c.nodes[i].IsSpecial() {
		return ErrProtectedNode
	}

	c.nodes = filter(c.nodes, func(n Node) bool { return n.ID != id })

	var dropped []string
	c.edges = filter(c.edges, func(e Edge) bool {
		if e.Source == id || e.Target == id {
			dropped = append(dropped, e.ID)
			return false
		}
		return true
	})

	switch c.sel.State {
	case NodeSelected:
		if c.sel.ID == id {
			c.sel = Selection{}
		}
	case EdgeSelected:
		for _, eid := range dropped {
			if c.sel.ID == eid {
				c.sel = Selection{}
				break
			}
		}
	}

	c.logger.Debug("node deleted", zap.String("node_id", id), zap.Int("edges_removed", len(dropped)))
	c.commit(true)
	return nil
}

// DeleteEdge removes one edge by display id.
func (c *Canvas) DeleteEdge(id string) error {
	if c.edgeIndex(id) < 0 {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	c.edges = filter(c.edges, func(e Edge) bool { return e.ID != id })
	if c.sel.State == EdgeSelected && c.sel.ID == id {
		c.sel = Selection{}
	}

	c.logger.Debug("edge deleted", zap.String("edge_id", id))
	c.commit(true)
	return nil
}

// Connect appends an edge from source to target and returns its id.
// Parallel edges are allowed.
func (c *Canvas) Connect(source, target string) (string, error) {
	if source == target {
		return "", ErrSelfLoop
	}
	if c.nodeIndex(source) < 0 {
		return "", fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	if c.nodeIndex(target) < 0 {
		return "", fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}

	id := c.newEdgeID(source, target)
	edge := Edge{ID: id, Edge: flowgraph.Edge{Source: source, Target: target}}
	c.edges = append(c.edges[:len(c.edges):len(c.edges)], edge)

	c.logger.Debug("edge added", zap.String("edge_id", id),
		zap.String("source", source), zap.String("target", target))
	c.commit(true)
	return id, nil
}

// RewireEdge moves one end of an existing edge to another node.
func (c *Canvas) RewireEdge(id string, end Endpoint, nodeID string) error {
	i := c.edgeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	if c.nodeIndex(nodeID) < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	e := c.edges[i]
	switch end {
	case EndpointSource:
		if nodeID == e.Target {
			return ErrSelfLoop
		}
		e.Source = nodeID
	case EndpointTarget:
		if nodeID == e.Source {
			return ErrSelfLoop
		}
		e.Target = nodeID
	default:
		return fmt.Errorf("canvas: unknown endpoint %v", end)
	}
	if e.Edge.Equal(c.edges[i].Edge) {
		return nil
	}

	edges := make([]Edge, len(c.edges))
	copy(edges, c.edges)
	edges[i] = e
	c.edges = edges

	c.logger.Debug("edge rewired", zap.String("edge_id", id),
		zap.Stringer("end", end), zap.String("node_id", nodeID))
	c.commit(true)
	return nil
}

// SetPersona rebinds an agent node to another persona. Edges are untouched.
func (c *Canvas) SetPersona(id, persona string) error {
	if persona == "" {
		return ErrNoPersona
	}
	i := c.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if c.nodes[i].IsSpecial() {
		return ErrReadOnlyNode
	}
	if c.nodes[i].Persona == persona {
		return nil
	}

	nodes := make([]Node, len(c.nodes))
	copy(nodes, c.nodes)
	nodes[i].Persona = persona
	c.nodes = nodes

	c.logger.Debug("persona changed", zap.String("node_id", id), zap.String("persona", persona))
	c.commit(true)
	return nil
}

// Clear removes every agent node and every edge after confirm approves
// ClearPrompt. Special nodes stay. It reports whether anything was cleared.
func (c *Canvas) Clear(confirm func(prompt string) bool) (bool, error) {
	if c.AgentCount() == 0 && len(c.edges) == 0 {
		return false, ErrNothingToClear
	}
	if confirm == nil || !confirm(ClearPrompt) {
		return false, nil
	}

	c.nodes = filter(c.nodes, Node.IsSpecial)
	c.edges = []Edge{}
	c.sel = Selection{}

	c.logger.Debug("graph cleared")
	c.commit(true)
	return true, nil
}

// MoveNode updates the position of a dragged node. Topology is unchanged,
// so no change notification is sent.
func (c *Canvas) MoveNode(id string, pos Position) error {
	i := c.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	nodes := make([]Node, len(c.nodes))
	copy(nodes, c.nodes)
	nodes[i].Position = pos
	c.nodes = nodes
	c.commit(false)
	return nil
}

// commit finalizes a mutation: derived snapshots are rebuilt, the revision
// advances, and when notify is set the canonical projection is emitted.
// State must be fully updated before commit, since the handler may re-enter.
func (c *Canvas) commit(notify bool) {
	c.refreshSnapshots()
	c.revision++
	if notify && c.onChange != nil {
		c.onChange(c.Graph())
	}
}

func (c *Canvas) refreshSnapshots() {
	if len(c.edges) == 0 {
		return
	}
	refs := make([]NodeRef, len(c.nodes))
	for i, n := range c.nodes {
		refs[i] = NodeRef{ID: n.ID, Label: n.Label()}
	}
	edges := make([]Edge, len(c.edges))
	for i, e := range c.edges {
		e.Available = refs
		edges[i] = e
	}
	c.edges = edges
}

func (c *Canvas) nodeIndex(id string) int {
	for i, n := range c.nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (c *Canvas) edgeIndex(id string) int {
	for i, e := range c.edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// newNodeID returns node-<unix millis>, bumped past the last issued value
// and past any id already on the canvas.
func (c *Canvas) newNodeID() string {
	ms := c.now().UnixMilli()
	if ms <= c.lastID {
		ms = c.lastID + 1
	}
	for {
		id := fmt.Sprintf("node-%d", ms)
		if c.nodeIndex(id) < 0 {
			c.lastID = ms
			return id
		}
		ms++
	}
}

func (c *Canvas) newEdgeID(source, target string) string {
	base := fmt.Sprintf("edge-%s-%s", source, target)
	id := base
	for n := 1; c.edgeIndex(id) >= 0; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
