package state

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Sessions are lost on restart.
type MemoryStore[S any] struct {
	mu       sync.RWMutex
	sessions map[int64]S
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore[S any]() *MemoryStore[S] {
	return &MemoryStore[S]{sessions: make(map[int64]S)}
}

// Load returns the session of userID if present.
func (m *MemoryStore[S]) Load(_ context.Context, userID int64) (S, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok, nil
}

// Save replaces the session of userID.
func (m *MemoryStore[S]) Save(_ context.Context, userID int64, session S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = session
	return nil
}

// Delete drops the session of userID. Deleting a missing session is not an error.
func (m *MemoryStore[S]) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Len returns the number of active sessions.
func (m *MemoryStore[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
