package core

import (
	"context"

	"github.com/MT2-0901/nexus-agent/logging"
)

// RunContext carries execution state and helpers for one topology run. It
// encapsulates the per-run scope passed to a node's Run method:
//   - The ambient cancellation Context
//   - Identifiers (App, UserID, SessionID, RunID)
//   - Input user Content
//   - The emission channel feeding the protocol layer
//   - A session snapshot for conversational history
//   - Branch label for parallel fan-out isolation
//
// The context is owned by exactly one run. Parallel branches receive clones
// with their own branch label; the emit channel and session snapshot are
// shared across clones.
type RunContext struct {
	Context   context.Context
	App       string
	UserID    string
	SessionID string
	RunID     string

	UserContent Content
	Emit        chan<- Event
	Session     *Session
	Branch      string
	Logger      logging.Logger
}

// NewRunContext constructs a RunContext for one run.
func NewRunContext(
	ctx context.Context,
	app, userID, sessionID, runID string,
	userContent Content,
	emit chan<- Event,
	sess *Session,
	logger logging.Logger,
) *RunContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &RunContext{
		Context:     ctx,
		App:         app,
		UserID:      userID,
		SessionID:   sessionID,
		RunID:       runID,
		UserContent: userContent,
		Emit:        emit,
		Session:     sess,
		Logger:      logger,
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// Clone produces a copy sharing the emit channel and session but carrying an
// independent branch label. Used by parallel nodes for fan-out isolation.
func (rc *RunContext) Clone() *RunContext {
	clone := *rc
	return &clone
}

// EmitEvent forwards an event to the protocol layer, honoring cancellation.
func (rc *RunContext) EmitEvent(ev Event) error {
	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
		return nil
	}
}
