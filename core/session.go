package core

import (
	"sync"
	"time"
)

// Session represents a conversational container tracking mutable key/value
// state plus an ordered event history. It is safe for concurrent access.
//
// Contract:
//   - State mutations update the Updated timestamp
//   - Events returns a defensive copy to avoid external mutation
//   - ConversationHistory filters events to user/assistant roles and excludes
//     partial streaming fragments
//   - Clone performs deep copies of maps/slices for safe divergence
type Session struct {
	App     string    `json:"app"`
	UserID  string    `json:"user_id"`
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`

	mu     sync.RWMutex
	state  map[string]any
	events []Event
}

// NewSession creates an empty session for the given (app, user, id) triple.
func NewSession(app, userID, id string) *Session {
	now := time.Now().UTC()
	return &Session{
		App:     app,
		UserID:  userID,
		ID:      id,
		Created: now,
		Updated: now,
		state:   map[string]any{},
	}
}

// State returns the value and existence flag for a state key.
func (s *Session) State(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[key]
	return v, ok
}

// SetState sets a key/value pair in session state.
func (s *Session) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
	s.Updated = time.Now().UTC()
}

// AddEvent appends an event to the history.
func (s *Session) AddEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	s.Updated = time.Now().UTC()
}

// Events returns a defensive copy of the full event slice.
func (s *Session) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	return events
}

// ConversationHistory returns filtered events suitable for providing
// conversational context to models (excludes partials and non-conversational
// roles).
func (s *Session) ConversationHistory() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.Content == nil {
			continue
		}
		if ev.Content.Role != "user" && ev.Content.Role != "assistant" {
			continue
		}
		if ev.Partial {
			continue
		}
		res = append(res, ev)
	}
	return res
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		App:     s.App,
		UserID:  s.UserID,
		ID:      s.ID,
		Created: s.Created,
		Updated: s.Updated,
		state:   make(map[string]any, len(s.state)),
		events:  make([]Event, len(s.events)),
	}
	for k, v := range s.state {
		clone.state[k] = v
	}
	copy(clone.events, s.events)
	return clone
}

// SessionStore persists sessions and their evolving event history. Sessions
// are identified by the (app, user, session id) triple.
//
// Create must be idempotent: creating a session that already exists returns
// the existing session rather than an error. Two concurrent first turns for a
// brand-new session id may both call Create; the store has to tolerate that.
type SessionStore interface {
	Exists(app, userID, sessionID string) (bool, error)
	Create(app, userID, sessionID string) (*Session, error)
	Get(app, userID, sessionID string) (*Session, error)
	AppendEvent(app, userID, sessionID string, event Event) error
}
