package service

import (
	"sync"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

// DefaultMaxHistory is the per-session message cap when none is configured.
const DefaultMaxHistory = 10

// SessionMemory keeps a bounded, ordered message log per session id. Oldest
// messages are evicted first once a session exceeds its cap.
type SessionMemory struct {
	mu       sync.Mutex
	max      int
	sessions map[string][]domain.Message
}

// NewSessionMemory creates a store holding at most max messages per session.
// Values below 1 are treated as 1.
func NewSessionMemory(max int) *SessionMemory {
	if max < 1 {
		max = 1
	}
	return &SessionMemory{
		max:      max,
		sessions: make(map[string][]domain.Message),
	}
}

// Append adds a message, creating the session on first use.
func (m *SessionMemory) Append(sessionID string, role domain.Role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.sessions[sessionID], domain.Message{Role: role, Content: content})
	if over := len(history) - m.max; over > 0 {
		history = append([]domain.Message(nil), history[over:]...)
	}
	m.sessions[sessionID] = history
}

// History returns a copy of the session's messages, oldest first. Unknown
// sessions yield an empty slice.
func (m *SessionMemory) History(sessionID string) []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.sessions[sessionID]
	out := make([]domain.Message, len(history))
	copy(out, history)
	return out
}

// Len returns the number of stored messages for the session.
func (m *SessionMemory) Len(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions[sessionID])
}

// Clear drops the session. Clearing an unknown session is a no-op.
func (m *SessionMemory) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
