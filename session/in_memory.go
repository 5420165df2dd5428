package session

import (
	"fmt"
	"sync"

	"github.com/MT2-0901/nexus-agent/core"
)

// InMemoryStore is a volatile SessionStore keeping sessions in a process
// local map keyed by (app, user, session id). It is safe for concurrent
// access and best suited for tests or single-process deployments. Returned
// sessions are clones so callers never mutate internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

func key(app, userID, sessionID string) string {
	return app + "\x00" + userID + "\x00" + sessionID
}

// Exists reports whether a session with the given identity is stored.
func (s *InMemoryStore) Exists(app, userID, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[key(app, userID, sessionID)]
	return ok, nil
}

// Create stores a new empty session. Creation is idempotent: if the session
// already exists, a clone of the existing one is returned so concurrent
// first turns racing on a fresh session id both succeed.
func (s *InMemoryStore) Create(app, userID, sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(app, userID, sessionID)
	if existing, ok := s.sessions[k]; ok {
		return existing.Clone(), nil
	}
	sess := core.NewSession(app, userID, sessionID)
	s.sessions[k] = sess
	return sess.Clone(), nil
}

// Get returns a clone of an existing session or an error if it is unknown.
func (s *InMemoryStore) Get(app, userID, sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key(app, userID, sessionID)]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	return sess.Clone(), nil
}

// AppendEvent adds an event to an existing session's history, creating the
// session if it is missing.
func (s *InMemoryStore) AppendEvent(app, userID, sessionID string, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(app, userID, sessionID)
	sess, ok := s.sessions[k]
	if !ok {
		sess = core.NewSession(app, userID, sessionID)
		s.sessions[k] = sess
	}
	sess.AddEvent(ev)
	return nil
}
