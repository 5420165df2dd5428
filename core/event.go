package core

import (
	"time"

	"github.com/google/uuid"
)

// Event is the unit of communication between topology nodes and the protocol
// layer. After emission it should be treated as immutable. It captures:
//   - Correlation (RunID, ID, Author)
//   - Conversational content (optional role-based parts)
//   - Streaming metadata (Partial, TurnComplete)
//   - Error metadata
//   - High precision UTC timestamp
//
// Content may be nil for control or error-only events. For streaming model
// nodes the text carried by partial events is cumulative: each partial event
// holds everything observed so far for the message, not an increment. The
// protocol layer derives client-facing deltas from successive snapshots.
type Event struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Author       string    `json:"author"`
	Branch       string    `json:"branch,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Content      *Content  `json:"content,omitempty"`
	Partial      bool      `json:"partial,omitempty"`
	TurnComplete bool      `json:"turn_complete,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// NewEvent creates a bare event authored by 'author' bound to a run.
func NewEvent(runID, author string) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Author:    author,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserEvent creates a user-authored event carrying arbitrary content.
func NewUserEvent(runID string, content Content) Event {
	e := NewEvent(runID, "user")
	content.Role = "user"
	e.Content = &content
	return e
}

// NewAssistantEvent creates an assistant message event with a single text part.
func NewAssistantEvent(runID, author, text string) Event {
	e := NewEvent(runID, author)
	e.Content = &Content{Role: "assistant", Parts: []Part{TextPart{Text: text}}}
	return e
}

// Text returns the concatenated text of the event content, or "" if none.
func (e Event) Text() string {
	if e.Content == nil {
		return ""
	}
	return e.Content.Text()
}

// IsFinalResponse reports whether this event closes an assistant turn: it is
// not a streaming fragment and carries no error.
func (e Event) IsFinalResponse() bool {
	return !e.Partial && e.ErrorMessage == ""
}

// NewID generates a new unique identifier for events, runs and sessions.
func NewID() string { return uuid.NewString() }
