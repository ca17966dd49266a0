package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/meikuraledutech/flowgraph"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("session: not found")

// Manager owns the live sessions of a server and expires idle ones.
type Manager struct {
	collab Collaborator
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	// OnChange, when set before the first Create, is attached to every
	// session as its change handler.
	OnChange func(id string, g flowgraph.Graph)

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns a manager whose sessions expire after ttl without use.
// A ttl of zero disables expiry.
func NewManager(collab Collaborator, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		collab:   collab,
		ttl:      ttl,
		logger:   logger.With(zap.String("component", "session_manager")),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session and registers it.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	opts := []Option{WithLogger(m.logger), WithClock(m.now)}
	var s *Session
	if m.OnChange != nil {
		opts = append(opts, WithChangeHandler(func(g flowgraph.Graph) { m.OnChange(s.ID, g) }))
	}
	s = New(m.collab, opts...)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns ErrNotFound for unknown or expired sessions.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(s) {
		m.Close(id)
		return nil, ErrNotFound
	}
	return s, nil
}

// Close closes and forgets a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

// Len reports the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes every expired session and returns how many it closed.
func (m *Manager) Sweep() int {
	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		if m.expired(s) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range expired {
		if m.Close(id) == nil {
			n++
		}
	}
	if n > 0 {
		m.logger.Info("expired sessions closed", zap.Int("count", n))
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CloseAll closes every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.IdleSince()) > m.ttl
}
