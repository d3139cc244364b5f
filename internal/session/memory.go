package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/varsilias/chatease/pkg/types"
)

// Store owns the conversation history for each active session. Histories
// live only as long as the process; there is no persistence.
type Store interface {
	Append(sessionID string, m types.Message) error
	Get(sessionID string) ([]types.Message, error)
}

type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string][]types.Message
	updated map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:    make(map[string][]types.Message),
		updated: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Append(sessionID string, m types.Message) error {
	if sessionID == "" {
		return errors.New("empty session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = append(s.data[sessionID], m)
	s.updated[sessionID] = time.Now()
	return nil
}

func (s *MemoryStore) Get(sessionID string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.data[sessionID]
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Summary is a lightweight session listing entry.
type Summary struct {
	ID      string
	Title   string
	Updated time.Time
}

func (s *MemoryStore) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.data))
	for id, msgs := range s.data {
		out = append(out, Summary{ID: id, Title: titleFrom(msgs), Updated: s.updated[id]})
	}
	return out
}

// Touch ensures a session exists in the list.
func (s *MemoryStore) Touch(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[sessionID]; !ok {
		s.data[sessionID] = nil
	}
	s.updated[sessionID] = time.Now()
}

func titleFrom(msgs []types.Message) string {
	for _, m := range msgs {
		if m.Role == types.RoleUser {
			return clip(firstWords(m.Content), 24)
		}
	}
	return ""
}

func firstWords(s string) string {
	s = strings.TrimSpace(s)
	parts := strings.Fields(s)
	if len(parts) <= 12 {
		return s
	}
	return strings.Join(parts[:12], " ")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
