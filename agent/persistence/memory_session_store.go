package persistence

import (
	"context"
	"maps"
	"sync"
	"time"
)

type memorySession struct {
	data      map[string]any
	expiresAt time.Time
}

// MemorySessionStore is an in-memory SessionStore.
// Suitable for development, testing, and single-process deployments.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
	closed   bool
}

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore(config StoreConfig) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*memorySession),
		ttl:      config.TTL,
		now:      time.Now,
	}
}

// Close closes the store
func (s *MemorySessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.sessions = make(map[string]*memorySession)
	return nil
}

// Ping checks if the store is healthy
func (s *MemorySessionStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// GetData returns a copy of the session payload.
func (s *MemorySessionStore) GetData(ctx context.Context, sessionID string) (map[string]any, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess) {
		return nil, nil
	}
	return maps.Clone(sess.data), nil
}

// SetData stores one key and refreshes the session TTL.
func (s *MemorySessionStore) SetData(ctx context.Context, sessionID, key string, value any) error {
	if sessionID == "" || key == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess) {
		sess = &memorySession{data: make(map[string]any)}
		s.sessions[sessionID] = sess
	}
	sess.data[key] = value
	if s.ttl > 0 {
		sess.expiresAt = s.now().Add(s.ttl)
	}
	return nil
}

// Cleanup drops expired sessions and returns how many were removed.
func (s *MemorySessionStore) Cleanup(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemorySessionStore) expired(sess *memorySession) bool {
	return !sess.expiresAt.IsZero() && s.now().After(sess.expiresAt)
}
