// Package protocol implements the client-facing run event protocol: one
// conversational turn is surfaced as a strictly ordered sequence of framing,
// delta and terminal events. The engine consumes cumulative text snapshots
// from the topology run and derives the incremental deltas clients render.
package protocol

import "time"

// EventType discriminates the protocol event variants.
type EventType string

const (
	EventRunStarted         EventType = "RUN_STARTED"
	EventTextMessageStart   EventType = "TEXT_MESSAGE_START"
	EventTextMessageContent EventType = "TEXT_MESSAGE_CONTENT"
	EventTextMessageEnd     EventType = "TEXT_MESSAGE_END"
	EventRunFinished        EventType = "RUN_FINISHED"
	EventRunError           EventType = "RUN_ERROR"
)

// RunEvent is one protocol event. Only the fields relevant to the variant are
// populated; Timestamp is captured at emission time in epoch milliseconds and
// is monotonically non-decreasing within one run.
type RunEvent struct {
	Type      EventType `json:"type"`
	ThreadID  string    `json:"threadId,omitempty"`
	RunID     string    `json:"runId,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Role      string    `json:"role,omitempty"`
	Delta     string    `json:"delta,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp int64     `json:"timestamp"`
	Result    *Result   `json:"result,omitempty"`
}

// Result is the terminal summary carried by RUN_FINISHED and persisted to
// chat history. EventCount counts the engine fragments consumed by the run,
// not the deltas delivered to the client.
type Result struct {
	SessionID       string   `json:"sessionId"`
	Mode            string   `json:"mode"`
	Response        string   `json:"response"`
	ActivatedSkills []string `json:"activatedSkills"`
	EventCount      int      `json:"eventCount"`
	Timestamp       int64    `json:"timestamp"`
}

func nowMillis() int64 { return time.Now().UnixMilli() }
