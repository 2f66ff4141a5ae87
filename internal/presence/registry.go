package presence

import (
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Session is one live connection. Identity is empty until the session
// registers.
type Session struct {
	ID       string
	Identity string
	Groups   map[string]struct{}
}

func (s Session) Registered() bool {
	return s.Identity != ""
}

func (s *Session) clone() Session {
	return Session{ID: s.ID, Identity: s.Identity, Groups: maps.Clone(s.Groups)}
}

// Registry owns the set of connected sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add inserts an anonymous session, replacing any entry with the same id.
func (r *Registry) Add(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = &Session{ID: sessionID, Groups: make(map[string]struct{})}
}

// SetIdentity overwrites the identity of a known session and reports whether
// the session exists.
func (r *Registry) SetIdentity(sessionID, identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	s.Identity = identity
	return true
}

func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
}

func (r *Registry) Get(sessionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

func (r *Registry) Contains(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[sessionID]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// All returns the sessions present at call time. The sequence can be ranged
// over any number of times and never reflects later mutations.
func (r *Registry) All() iter.Seq[Session] {
	r.mu.RLock()
	snapshot := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s.clone())
	}
	r.mu.RUnlock()

	return slices.Values(snapshot)
}

// LookupByIdentity returns every live session registered under identity.
func (r *Registry) LookupByIdentity(identity string) []Session {
	return lo.Filter(slices.Collect(r.All()), func(s Session, _ int) bool {
		return s.Identity == identity
	})
}

func (r *Registry) addGroup(sessionID, group string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	s.Groups[group] = struct{}{}
	return true
}
