package session

import (
	"maps"
	"sync"
	"time"

	"github.com/hupe1980/tourmesh/core"
	"github.com/hupe1980/tourmesh/memory"
)

// Session is one conversation. Its memory window is shared by every agent
// taking part in the conversation.
type Session struct {
	ID        string
	CreatedAt time.Time

	run sync.Mutex // held for the duration of a run

	mu         sync.RWMutex
	vars       core.Vars
	lastActive time.Time
	memory     *memory.Window
}

// New creates a session with a window of k exchanges.
func New(id string, k int) *Session {
	now := time.Now()

	return &Session{
		ID:         id,
		CreatedAt:  now,
		vars:       core.Vars{},
		lastActive: now,
		memory:     memory.NewWindow(k),
	}
}

// Memory returns the shared conversation window.
func (s *Session) Memory() *memory.Window { return s.memory }

// Vars returns a copy of the session variables.
func (s *Session) Vars() core.Vars {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.vars.Clone()
}

// SetVar sets one session variable. An empty value removes it.
func (s *Session) SetVar(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" {
		delete(s.vars, key)
		return
	}

	s.vars[key] = value
}

// MergeVars overlays vars (empty values are ignored).
func (s *Session) MergeVars(vars core.Vars) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vars = s.vars.Merge(vars)
}

// LastActive returns the time the last run finished.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastActive
}

// Serialize runs fn while holding the session run lock, so two turns of the
// same conversation never overlap.
func (s *Session) Serialize(fn func() error) error {
	s.run.Lock()
	defer s.run.Unlock()

	defer func() {
		s.mu.Lock()
		s.lastActive = time.Now()
		s.mu.Unlock()
	}()

	return fn()
}

// Reset clears the conversation and the variables.
func (s *Session) Reset() {
	s.run.Lock()
	defer s.run.Unlock()

	s.memory.Clear()

	s.mu.Lock()
	clear(s.vars)
	s.mu.Unlock()
}

// Snapshot is a read-only view of a session for listings.
type Snapshot struct {
	ID         string            `json:"id"`
	Vars       map[string]string `json:"vars"`
	Turns      int               `json:"turns"`
	CreatedAt  time.Time         `json:"created_at"`
	LastActive time.Time         `json:"last_active"`
}

// Snapshot returns a point-in-time copy of the session metadata.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		ID:         s.ID,
		Vars:       maps.Clone(map[string]string(s.vars)),
		Turns:      s.memory.Len(),
		CreatedAt:  s.CreatedAt,
		LastActive: s.lastActive,
	}
}
