// Package history persists the terminal summary of completed runs. Protocol
// events themselves are never stored; only one record per conversational
// turn, textual on both sides.
package history

import (
	"context"
	"time"
)

// Record is the persisted summary of one completed run.
type Record struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	Mode            string    `json:"mode"`
	RequestMessage  string    `json:"request_message"`
	ResponseMessage string    `json:"response_message"`
	ActivatedSkills []string  `json:"activated_skills"`
	EventCount      int       `json:"event_count"`
	Timestamp       time.Time `json:"timestamp"`
}

// Store persists run summaries. Save failures must not fail an otherwise
// successful run; callers log and continue.
type Store interface {
	Save(ctx context.Context, rec Record) error
	// ListBySession returns up to limit records for a session, most recent
	// first.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Record, error)
	Close() error
}

// NoopStore discards every record. Used when persistence is disabled.
type NoopStore struct{}

// Save implements Store.
func (NoopStore) Save(ctx context.Context, rec Record) error { return nil }

// ListBySession implements Store.
func (NoopStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	return nil, nil
}

// Close implements Store.
func (NoopStore) Close() error { return nil }
