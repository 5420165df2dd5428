package protocol

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MT2-0901/nexus-agent/content"
	"github.com/MT2-0901/nexus-agent/core"
	"github.com/MT2-0901/nexus-agent/history"
	"github.com/MT2-0901/nexus-agent/logging"
	"github.com/MT2-0901/nexus-agent/mode"
	"github.com/MT2-0901/nexus-agent/model"
	"github.com/MT2-0901/nexus-agent/runner"
	"github.com/MT2-0901/nexus-agent/skill"
	"github.com/MT2-0901/nexus-agent/topology"
)

// fallbackErrorMessage is surfaced when an engine error carries no message.
const fallbackErrorMessage = "run failed"

// noResponseText is the diagnostic substituted when a run produced no
// textual output at all.
const noResponseText = "No response was generated."

// Message aliases the inbound message shape for transport convenience.
type Message = content.Message

// RunRequest is the streaming entrypoint payload. ThreadID and RunID are
// generated when absent. ForwardedProps carries free-form client options:
// mode, model, userId, sessionId, llmBaseUrl, llmApiKey and skillNames.
type RunRequest struct {
	ThreadID       string            `json:"threadId"`
	RunID          string            `json:"runId"`
	Messages       []content.Message `json:"messages"`
	ForwardedProps map[string]any    `json:"forwardedProps"`
}

// Sink receives protocol events in emission order. Returning an error aborts
// the run (transport disconnect).
type Sink func(ev RunEvent) error

// ServiceOptions configure a Service.
type ServiceOptions struct {
	// DefaultUserID identifies turns whose request carries no userId.
	DefaultUserID string
	// SessionPrefix prefixes generated session ids.
	SessionPrefix string
	History       history.Store
	Logger        logging.Logger
}

// Service is the run protocol engine. It drives one conversational turn:
// normalizes input, resolves skills, builds the topology, executes it and
// emits the ordered event sequence, persisting a summary at the end.
type Service struct {
	builder       *topology.Builder
	skills        *skill.Registry
	runner        *runner.Runner
	history       history.Store
	logger        logging.Logger
	defaultUserID string
	sessionPrefix string
}

// NewService wires a Service over its collaborators.
func NewService(builder *topology.Builder, skills *skill.Registry, run *runner.Runner, optFns ...func(o *ServiceOptions)) *Service {
	opts := ServiceOptions{
		DefaultUserID: "local-user",
		SessionPrefix: "sess",
		History:       history.NoopStore{},
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Service{
		builder:       builder,
		skills:        skills,
		runner:        run,
		history:       opts.History,
		logger:        opts.Logger,
		defaultUserID: opts.DefaultUserID,
		sessionPrefix: opts.SessionPrefix,
	}
}

// Run executes one streaming turn, delivering events to sink in order.
// RUN_STARTED and TEXT_MESSAGE_START are emitted immediately, before any
// per-run work, then zero or more TEXT_MESSAGE_CONTENT deltas, then either
// TEXT_MESSAGE_END + RUN_FINISHED or a single RUN_ERROR. A run never emits
// both RUN_ERROR and RUN_FINISHED. Failures after RUN_STARTED are reported
// through RUN_ERROR, not the return value; the return value reports sink
// failures only.
func (s *Service) Run(ctx context.Context, req RunRequest, sink Sink) error {
	threadID := req.ThreadID
	if threadID == "" {
		threadID = "thread-" + uuid.NewString()
	}
	runID := req.RunID
	if runID == "" {
		runID = "run-" + uuid.NewString()
	}

	if err := sink(RunEvent{Type: EventRunStarted, ThreadID: threadID, RunID: runID, Timestamp: nowMillis()}); err != nil {
		return err
	}
	messageID := "msg-" + uuid.NewString()
	if err := sink(RunEvent{
		Type: EventTextMessageStart, ThreadID: threadID, RunID: runID,
		MessageID: messageID, Role: "assistant", Timestamp: nowMillis(),
	}); err != nil {
		return err
	}

	logger := s.logger
	emitError := func(cause error) error {
		msg := strings.TrimSpace(cause.Error())
		if msg == "" {
			msg = fallbackErrorMessage
		}
		logger.Error("run failed", "run_id", runID, "error", cause)
		return sink(RunEvent{Type: EventRunError, ThreadID: threadID, RunID: runID, Message: msg, Timestamp: nowMillis()})
	}

	t, err := s.prepareTurn(req)
	if err != nil {
		return emitError(err)
	}
	logger = logging.WithRunContext(s.logger, t.sessionID, runID)

	if _, err := s.runner.SessionStore().Create(s.runner.App(), t.userID, t.sessionID); err != nil {
		return emitError(fmt.Errorf("session setup failed: %w", err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	eventsCh, errorsCh, err := s.runner.Run(runCtx, t.root, t.userID, t.sessionID, runID, t.input.Content)
	if err != nil {
		return emitError(err)
	}

	var tracker deltaTracker
	var finals []string
	var all []string
	eventCount := 0
	deltaCount := 0

	for ev := range eventsCh {
		eventCount++
		text := ev.Text()
		if text == "" {
			continue
		}
		all = append(all, text)
		if ev.IsFinalResponse() {
			finals = append(finals, text)
		}
		delta := tracker.next(text)
		if delta == "" {
			continue
		}
		deltaCount++
		if err := sink(RunEvent{
			Type: EventTextMessageContent, ThreadID: threadID, RunID: runID,
			MessageID: messageID, Delta: delta, Timestamp: nowMillis(),
		}); err != nil {
			cancel()
			return err
		}
	}

	if runErr := <-errorsCh; runErr != nil {
		return emitError(runErr)
	}
	if ctx.Err() != nil {
		// Transport is gone; a cancelled run must not emit RUN_FINISHED.
		return ctx.Err()
	}

	response := finalResponse(finals, all)
	if deltaCount == 0 && response != "" {
		// Equalize the client transcript for engines that never streamed.
		deltaCount++
		if err := sink(RunEvent{
			Type: EventTextMessageContent, ThreadID: threadID, RunID: runID,
			MessageID: messageID, Delta: response, Timestamp: nowMillis(),
		}); err != nil {
			return err
		}
	}
	if response == "" {
		response = noResponseText
	}

	if err := sink(RunEvent{
		Type: EventTextMessageEnd, ThreadID: threadID, RunID: runID,
		MessageID: messageID, Timestamp: nowMillis(),
	}); err != nil {
		return err
	}

	result := Result{
		SessionID:       t.sessionID,
		Mode:            string(t.mode),
		Response:        response,
		ActivatedSkills: skill.Names(t.skills),
		EventCount:      eventCount,
		Timestamp:       nowMillis(),
	}
	s.saveHistory(ctx, t, result)
	logger.Debug("run finished", "event_count", eventCount, "delta_count", deltaCount)

	return sink(RunEvent{
		Type: EventRunFinished, ThreadID: threadID, RunID: runID,
		Timestamp: nowMillis(), Result: &result,
	})
}

// turn bundles everything resolved up front for one run.
type turn struct {
	userID    string
	sessionID string
	mode      mode.Mode
	skills    []skill.Definition
	input     content.ParsedInput
	root      core.Agent
}

// prepareTurn resolves identities, normalizes input, resolves skills and
// builds the topology. All failures here are validation errors.
func (s *Service) prepareTurn(req RunRequest) (*turn, error) {
	props := req.ForwardedProps

	requestedMode, err := mode.Parse(propString(props, "mode"))
	if err != nil {
		return nil, err
	}

	input, err := content.ParseLatestUserMessage(req.Messages)
	if err != nil {
		return nil, err
	}

	userID := propString(props, "userId")
	if userID == "" {
		userID = s.defaultUserID
	}
	// Session identity follows the thread when the client names one, so
	// repeated runs on the same thread share history.
	sessionID := propString(props, "sessionId")
	if sessionID == "" {
		sessionID = strings.TrimSpace(req.ThreadID)
	}
	if sessionID == "" {
		sessionID = s.sessionPrefix + "-" + uuid.NewString()
	}

	activeSkills := s.skills.Resolve(requestedMode, skill.NormalizeNames(propStrings(props, "skillNames")))

	runtime := model.RuntimeOptions{
		BaseURL: strings.TrimRight(propString(props, "llmBaseUrl"), "/"),
		APIKey:  propString(props, "llmApiKey"),
	}
	root, err := s.builder.Build(requestedMode, activeSkills, propString(props, "model"), runtime)
	if err != nil {
		return nil, err
	}

	return &turn{
		userID:    userID,
		sessionID: sessionID,
		mode:      requestedMode,
		skills:    activeSkills,
		input:     input,
		root:      root,
	}, nil
}

func (s *Service) saveHistory(ctx context.Context, t *turn, result Result) {
	rec := history.Record{
		SessionID:       t.sessionID,
		UserID:          t.userID,
		Mode:            string(t.mode),
		RequestMessage:  t.input.PersistenceText,
		ResponseMessage: result.Response,
		ActivatedSkills: result.ActivatedSkills,
		EventCount:      result.EventCount,
	}
	if err := s.history.Save(ctx, rec); err != nil {
		// A failed save never fails an otherwise successful run.
		s.logger.Warn("history save failed", "session_id", t.sessionID, "error", err)
	}
}

// finalResponse applies the response text policy: final-flagged fragments
// first, then every fragment, then empty (caller substitutes the diagnostic).
func finalResponse(finals, all []string) string {
	if joined := strings.TrimSpace(strings.Join(finals, "\n")); joined != "" {
		return joined
	}
	return strings.TrimSpace(strings.Join(all, "\n"))
}

func propString(props map[string]any, key string) string {
	if props == nil {
		return ""
	}
	if s, ok := props[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// propStrings accepts either an array of strings or a comma-separated string.
func propStrings(props map[string]any, key string) []string {
	if props == nil {
		return nil
	}
	switch v := props[key].(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	default:
		return nil
	}
}
