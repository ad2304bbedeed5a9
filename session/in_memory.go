package session

import (
	"slices"
	"sync"

	"github.com/hupe1980/tourmesh/memory"
)

// InMemoryStore is a volatile session store keeping sessions in a process
// local map. It is safe for concurrent access.
type InMemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	windowSize int
}

// NewInMemoryStore constructs an empty store whose sessions keep windowSize
// exchanges (<= 0 selects memory.DefaultWindowSize).
func NewInMemoryStore(windowSize int) *InMemoryStore {
	if windowSize <= 0 {
		windowSize = memory.DefaultWindowSize
	}

	return &InMemoryStore{sessions: make(map[string]*Session), windowSize: windowSize}
}

// Get returns the session with the given id, creating it lazily. The second
// result reports whether the session was created by this call.
func (s *InMemoryStore) Get(sessionID string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if ok {
		return sess, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok { // lost the race
		return sess, false
	}

	sess = New(sessionID, s.windowSize)
	s.sessions[sessionID] = sess

	return sess, true
}

// Lookup returns an existing session without creating one.
func (s *InMemoryStore) Lookup(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]

	return sess, ok
}

// Delete tears a session down. It reports whether the session existed.
func (s *InMemoryStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)

	return ok
}

// IDs returns the sorted ids of all live sessions.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// Len returns the number of live sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
