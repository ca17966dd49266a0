// Package session binds a canvas to a collaborator. A Session owns one
// editor's state, serializes every canvas event, and guards the remote
// operations (save, load, run) against double submits and stale replies.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/flowgraph"
	"github.com/meikuraledutech/flowgraph/canvas"
	"go.uber.org/zap"
)

var (
	ErrClosed         = errors.New("session: closed")
	ErrBusy           = errors.New("session: another request is in flight")
	ErrStale          = errors.New("session: response superseded by a newer load")
	ErrNameRequired   = errors.New("session: please enter a system name")
	ErrEmptyGraph     = errors.New("session: please add at least one node to the graph")
	ErrPromptRequired = errors.New("session: please enter a prompt")
	ErrNoAgents       = errors.New("session: please add at least one agent to the graph")
	ErrMissingPersona = errors.New("session: please select a persona for all agents")
	ErrUnknownPersona = errors.New("session: unknown persona")
)

// IsValidation reports whether err is a user-facing validation failure
// from the session or its canvas.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrEmptyGraph),
		errors.Is(err, ErrPromptRequired),
		errors.Is(err, ErrNoAgents),
		errors.Is(err, ErrMissingPersona),
		errors.Is(err, ErrUnknownPersona):
		return true
	}
	return canvas.IsValidation(err)
}

// Snapshot is a consistent view of the visual state.
type Snapshot struct {
	ID        string           `json:"id"`
	Revision  uint64           `json:"revision"`
	Persona   string           `json:"selected_persona"`
	Personas  []string         `json:"personas"`
	Nodes     []canvas.Node    `json:"nodes"`
	Edges     []canvas.Edge    `json:"edges"`
	Selection canvas.Selection `json:"selection"`
	Graph     flowgraph.Graph  `json:"graph"`
}

// Session is safe for concurrent use. Canvas events are applied one at a
// time; collaborator I/O happens outside the lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	collab   Collaborator
	logger   *zap.Logger
	now      func() time.Time
	onChange func(flowgraph.Graph)

	mu       sync.Mutex
	canvas   *canvas.Canvas
	personas []flowgraph.Persona
	selected string
	lastUsed time.Time
	closed   bool

	busy    atomic.Bool
	loadSeq atomic.Uint64
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithChangeHandler receives every outbound canonical graph. It runs with
// the session locked and must not call back into the session.
func WithChangeHandler(fn func(flowgraph.Graph)) Option {
	return func(s *Session) { s.onChange = fn }
}

// New creates a session with an empty canvas. Call Start to fetch catalogs.
func New(collab Collaborator, opts ...Option) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		collab: collab,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "session"), zap.String("session", s.ID))
	s.canvas = canvas.New(
		canvas.WithLogger(s.logger),
		canvas.WithClock(s.now),
		canvas.WithChangeHandler(s.onChange),
	)
	s.CreatedAt = s.now()
	s.lastUsed = s.CreatedAt
	return s
}

// Start fetches the special-node and persona catalogs. A failed fetch is
// logged and leaves that catalog empty; Start itself only fails when the
// session is closed.
func (s *Session) Start(ctx context.Context) error {
	defs, err := s.collab.SpecialNodes(ctx)
	if err != nil {
		s.logger.Warn("fetch special nodes failed", zap.Error(err))
		defs = nil
	}
	personas, err := s.collab.Personas(ctx)
	if err != nil {
		s.logger.Warn("fetch personas failed", zap.Error(err))
		personas = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.touch()
	s.canvas.SetSpecialNodes(defs)
	s.personas = personas
	if s.selected != "" && !s.knownPersona(s.selected) {
		s.selected = ""
	}
	s.logger.Info("session started", zap.Int("special_nodes", len(defs)), zap.Int("personas", len(personas)))
	return nil
}

// Personas returns the persona catalog fetched by Start.
func (s *Session) Personas() []flowgraph.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]flowgraph.Persona, len(s.personas))
	copy(out, s.personas)
	return out
}

// SelectPersona sets the persona used by AddNode. An empty name clears it.
func (s *Session) SelectPersona(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.touch()
	if name != "" && !s.knownPersona(name) {
		return ErrUnknownPersona
	}
	s.selected = name
	return nil
}

// AddNode adds an agent node bound to the selected persona.
func (s *Session) AddNode() (string, error) {
	res, err := s.Dispatch(canvas.AddNode{})
	return res.NodeID, err
}

// Dispatch applies one canvas command. An add_node command without a
// persona uses the selected one; an explicit persona, on add_node or
// set_persona, must be in the catalog.
func (s *Session) Dispatch(cmd canvas.Command) (canvas.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return canvas.Result{}, ErrClosed
	}
	s.touch()
	switch c := cmd.(type) {
	case canvas.AddNode:
		if c.Persona == "" {
			cmd = canvas.AddNode{Persona: s.selected}
		} else if !s.knownPersona(c.Persona) {
			return canvas.Result{}, fmt.Errorf("%w: %s", ErrUnknownPersona, c.Persona)
		}
	case canvas.SetPersona:
		if c.Persona != "" && !s.knownPersona(c.Persona) {
			return canvas.Result{}, fmt.Errorf("%w: %s", ErrUnknownPersona, c.Persona)
		}
	}
	return s.canvas.Dispatch(cmd)
}

// SetViewport records the visible region used to place new nodes.
func (s *Session) SetViewport(v *canvas.Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.canvas.SetViewport(v)
	return nil
}

// Graph returns the current canonical graph.
func (s *Session) Graph() flowgraph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Graph()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.personas))
	for i, p := range s.personas {
		names[i] = p.Name
	}
	return Snapshot{
		ID:        s.ID,
		Revision:  s.canvas.Revision(),
		Persona:   s.selected,
		Personas:  names,
		Nodes:     s.canvas.Nodes(),
		Edges:     s.canvas.Edges(),
		Selection: s.canvas.Selection(),
		Graph:     s.canvas.Graph(),
	}
}

// Apply performs inbound sync of g. Any load still in flight becomes stale.
func (s *Session) Apply(g *flowgraph.Graph) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	s.touch()
	s.loadSeq.Add(1)
	return s.canvas.Load(g), nil
}

// Save creates or updates the named system from the current graph.
func (s *Session) Save(ctx context.Context, name, description string) (*flowgraph.System, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	g, err := s.graphForRequest()
	if err != nil {
		return nil, err
	}
	if len(g.AgentNodes()) == 0 {
		return nil, ErrEmptyGraph
	}

	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	sys, err := s.collab.SaveSystem(ctx, &flowgraph.System{Name: name, Description: description, Graph: g})
	if err != nil {
		s.logger.Error("save system failed", zap.String("system", name), zap.Error(err))
		return nil, err
	}
	s.logger.Info("system saved", zap.String("system", name), zap.Int("nodes", len(g.Nodes)))
	return sys, nil
}

// Load fetches the named system and syncs its graph into the canvas. The
// reply is dropped with ErrStale if another load or Apply was issued
// meanwhile. The bool reports whether the canvas changed.
func (s *Session) Load(ctx context.Context, name string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	seq := s.loadSeq.Add(1)

	sys, err := s.collab.LoadSystem(ctx, name)
	if err != nil {
		s.logger.Warn("load system failed", zap.String("system", name), zap.Error(err))
		return false, err
	}
	if sys == nil {
		return false, fmt.Errorf("%w: %s", flowgraph.ErrSystemNotFound, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if s.loadSeq.Load() != seq {
		s.logger.Debug("discarding stale load", zap.String("system", name), zap.Uint64("seq", seq))
		return false, ErrStale
	}
	s.touch()
	return s.canvas.Load(&sys.Graph), nil
}

// Run validates the graph and hands it to the collaborator.
func (s *Session) Run(ctx context.Context, prompt string) (*flowgraph.RunResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptRequired
	}
	g, err := s.graphForRequest()
	if err != nil {
		return nil, err
	}
	agents := g.AgentNodes()
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	for _, n := range agents {
		if n.Persona == "" {
			return nil, ErrMissingPersona
		}
	}

	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := s.collab.Run(ctx, flowgraph.RunRequest{Graph: g, UserPrompt: prompt})
	if err != nil {
		s.logger.Error("run failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}

// Close tears the session down. Pending loads become stale and further
// calls return ErrClosed. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.loadSeq.Add(1)
	s.logger.Info("session closed")
}

// IdleSince reports the last time the session was used.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) graphForRequest() (flowgraph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return flowgraph.Graph{}, ErrClosed
	}
	s.touch()
	return s.canvas.Graph(), nil
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.touch()
	return nil
}

// acquire sets the in-flight flag or fails with ErrBusy.
func (s *Session) acquire() (func(), error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return func() { s.busy.Store(false) }, nil
}

func (s *Session) touch() { s.lastUsed = s.now() }

func (s *Session) knownPersona(name string) bool {
	for _, p := range s.personas {
		if p.Name == name {
			return true
		}
	}
	return false
}
