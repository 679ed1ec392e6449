package store

import (
	"fmt"
	"sync"
	"time"
)

// Memory is an in-memory store for testing.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	events   map[string][]Event
	metadata map[string]string
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*Session),
		events:   make(map[string][]Event),
		metadata: make(map[string]string),
	}
}

// BeginSession creates a session header.
func (m *Memory) BeginSession(id, entry string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		return fmt.Errorf("store: session %s already exists", id)
	}
	m.sessions[id] = &Session{ID: id, Entry: entry, StartedAt: time.Now().UTC()}
	m.order = append(m.order, id)
	return nil
}

// Append adds an event to a session.
func (m *Memory) Append(sessionID string, kind EventKind, address, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("store: unknown session %s", sessionID)
	}
	evs := m.events[sessionID]
	m.events[sessionID] = append(evs, Event{
		Seq:     len(evs) + 1,
		Kind:    kind,
		Address: address,
		Detail:  detail,
		Ts:      time.Now().UTC(),
	})
	return nil
}

// EndSession records the session outcome.
func (m *Memory) EndSession(id, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("store: unknown session %s", id)
	}
	s.EndedAt = time.Now().UTC()
	s.Outcome = outcome
	return nil
}

// Session returns a copy of the session header.
func (m *Memory) Session(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

// Sessions returns session headers newest first.
func (m *Memory) Sessions(limit int) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for i := len(m.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *m.sessions[m.order[i]])
	}
	return out, nil
}

// Events returns events oldest first.
func (m *Memory) Events(sessionID string, limit int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	evs := m.events[sessionID]
	if len(evs) == 0 {
		return nil, nil
	}
	if limit > 0 && limit < len(evs) {
		evs = evs[:limit]
	}
	out := make([]Event, len(evs))
	copy(out, evs)
	return out, nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

// GetMetadata retrieves a metadata value by key.
func (m *Memory) GetMetadata(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[key], nil
}

// SetMetadata stores a metadata value by key.
func (m *Memory) SetMetadata(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
	return nil
}
