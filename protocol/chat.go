package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/MT2-0901/nexus-agent/history"
)

// ChatRequest is the non-streaming entrypoint payload.
type ChatRequest struct {
	Message    string   `json:"message"`
	Mode       string   `json:"mode"`
	Model      string   `json:"model,omitempty"`
	UserID     string   `json:"userId,omitempty"`
	SessionID  string   `json:"sessionId,omitempty"`
	SkillNames []string `json:"skillNames,omitempty"`
}

// Chat executes one turn synchronously, driving the identical state machine
// without surfacing intermediate events, and returns the terminal summary.
// An errored run is returned as an error rather than a result.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*Result, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}

	props := map[string]any{
		"mode":       req.Mode,
		"model":      req.Model,
		"userId":     req.UserID,
		"sessionId":  req.SessionID,
		"skillNames": req.SkillNames,
	}
	runReq := RunRequest{
		Messages:       []Message{{Role: "user", Content: req.Message}},
		ForwardedProps: props,
	}

	var result *Result
	var runErr error
	err := s.Run(ctx, runReq, func(ev RunEvent) error {
		switch ev.Type {
		case EventRunFinished:
			result = ev.Result
		case EventRunError:
			runErr = errors.New(ev.Message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}
	if result == nil {
		return nil, fmt.Errorf("run produced no result")
	}
	return result, nil
}

// History lists prior run summaries for a session, most recent first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]history.Record, error) {
	return s.history.ListBySession(ctx, sessionID, limit)
}
