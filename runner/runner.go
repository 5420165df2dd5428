package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/MT2-0901/nexus-agent/core"
	"github.com/MT2-0901/nexus-agent/logging"
	"github.com/MT2-0901/nexus-agent/session"
)

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// App names the owning application for session identity.
	App string
	// EventBufferSize sets channel buffering for emitted events.
	EventBufferSize int
	SessionStore    core.SessionStore
	Logger          logging.Logger
}

// Runner coordinates one turn at a time per call: it resolves the session,
// persists the user turn, executes the given agent tree and streams events.
// Public methods are safe for concurrent use.
type Runner struct {
	app             string
	eventBufferSize int
	store           core.SessionStore
	logger          logging.Logger

	mu         sync.Mutex
	activeRuns map[string]context.CancelFunc
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		App:             "nexus-agent",
		EventBufferSize: 100,
		SessionStore:    session.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{
		app:             opts.App,
		eventBufferSize: opts.EventBufferSize,
		store:           opts.SessionStore,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// SessionStore exposes the backing store for callers that need direct access
// (session precondition checks, history assembly).
func (r *Runner) SessionStore() core.SessionStore { return r.store }

// App returns the application name used for session identity.
func (r *Runner) App() string { return r.app }

// Run starts an asynchronous invocation of root for one user turn. The
// returned event channel is closed when the run completes; the error channel
// carries at most one execution error. The caller owns root and must not
// reuse it for another run.
func (r *Runner) Run(
	ctx context.Context,
	root core.Agent,
	userID, sessionID, runID string,
	userContent core.Content,
) (<-chan core.Event, <-chan error, error) {
	sess, err := r.store.Get(r.app, userID, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	userEvent := core.NewUserEvent(runID, userContent)
	if err := r.store.AppendEvent(r.app, userID, sessionID, userEvent); err != nil {
		return nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}
	// The snapshot must include the latest user turn so LLM nodes see it in
	// their replayed history.
	sess.AddEvent(userEvent)

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)

	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	rc := core.NewRunContext(runCtx, r.app, userID, sessionID, runID, userContent, agentEmit, sess, r.logger)

	go func() {
		defer close(agentEmit)
		if err := root.Run(rc); err != nil {
			select {
			case <-runCtx.Done():
			case errorsCh <- fmt.Errorf("agent execution failed: %w", err):
			}
		}
	}()

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			cancel()
			close(eventsCh)
			close(errorsCh)
		}()
		r.forwardEvents(runCtx, userID, sessionID, agentEmit, eventsCh, errorsCh)
		cancel()
		// Wait for the agent goroutine to finish before the deferred channel
		// close; it may still have an error in flight.
		for range agentEmit {
		}
	}()

	return eventsCh, errorsCh, nil
}

// Cancel stops a running invocation by run id.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}
	cancel()
	return nil
}

// forwardEvents relays agent output in emission order, persisting every
// non-partial event before delivery so the stored history never runs ahead of
// what the client has seen.
func (r *Runner) forwardEvents(
	ctx context.Context,
	userID, sessionID string,
	agentEmit <-chan core.Event,
	eventsCh chan<- core.Event,
	errorsCh chan<- error,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-agentEmit:
			if !ok {
				return
			}
			if !ev.Partial {
				if err := r.store.AppendEvent(r.app, userID, sessionID, ev); err != nil {
					select {
					case <-ctx.Done():
					case errorsCh <- fmt.Errorf("failed to append event to session: %w", err):
					}
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case eventsCh <- ev:
				r.logger.Debug("runner delivered event", "event_id", ev.ID, "session_id", sessionID, "partial", ev.Partial)
			}
		}
	}
}
