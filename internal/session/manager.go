package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
)

// Kind tells whether a session studies or quizzes.
type Kind string

const (
	KindStudy Kind = "study"
	KindQuiz  Kind = "quiz"
)

// Session is one study or quiz run owned by a user. Callers hold its lock
// while reading or changing the state machine.
type Session struct {
	ID     string
	Owner  string
	Kind   Kind
	Filter Filter
	Study  *Study
	Quiz   *Quiz

	mu       sync.Mutex
	lastUsed time.Time
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Manager keeps sessions in memory and evicts idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *logger.Logger
}

func NewManager(ttl time.Duration, logger *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Create registers a new session for owner.
func (m *Manager) Create(owner string, kind Kind, filter Filter, study *Study, quiz *Quiz) (*Session, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	s := &Session{
		ID:       id,
		Owner:    owner,
		Kind:     kind,
		Filter:   filter,
		Study:    study,
		Quiz:     quiz,
		lastUsed: m.now(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Debug("Session manager: session created",
		"session_id", id,
		"username", owner,
		"kind", string(kind))

	return s, nil
}

// Get returns the session of the given kind owned by owner and marks it used.
// Sessions of other users are reported as missing.
func (m *Manager) Get(owner, id string, kind Kind) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Owner != owner || s.Kind != kind {
		return nil, model.ErrNotFound
	}
	if m.now().Sub(s.lastUsed) > m.ttl {
		delete(m.sessions, id)
		return nil, model.ErrNotFound
	}
	s.lastUsed = m.now()
	return s, nil
}

// Delete removes one session.
func (m *Manager) Delete(owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Owner != owner {
		return model.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// DeleteOwner removes every session of owner.
func (m *Manager) DeleteOwner(owner string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.Owner == owner {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Evict drops sessions idle for longer than the TTL.
func (m *Manager) Evict() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.lastUsed) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("Session manager: janitor started", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Session manager: janitor stopped")
			return nil
		case <-ticker.C:
			if removed := m.Evict(); removed > 0 {
				m.logger.Info("Session manager: evicted idle sessions", "count", removed)
			}
		}
	}
}
