package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MT2-0901/nexus-agent/core"
	"github.com/MT2-0901/nexus-agent/logging"
	"github.com/MT2-0901/nexus-agent/model"
	"github.com/MT2-0901/nexus-agent/tool"
)

func TestLLMAgent_StreamingEmitsCumulativeSnapshots(t *testing.T) {
	mock := model.NewMockModel("mock-model")
	mock.AddResponse("hello", "Hi!")

	a := NewLLMAgent("assistant", mock)
	emit := make(chan core.Event, 32)

	err := a.Run(newTestRunContext(emit))

	require.NoError(t, err)
	events := drainEvents(emit)
	require.NotEmpty(t, events)

	var partials []string
	for _, ev := range events[:len(events)-1] {
		assert.True(t, ev.Partial)
		partials = append(partials, ev.Text())
	}
	assert.Equal(t, []string{"H", "Hi", "Hi!"}, partials)

	final := events[len(events)-1]
	assert.False(t, final.Partial)
	assert.True(t, final.TurnComplete)
	assert.Equal(t, "Hi!", final.Text())
	assert.Equal(t, "assistant", final.Author)
}

func TestLLMAgent_NonStreamingEmitsSingleFinal(t *testing.T) {
	mock := model.NewMockModel("mock-model")
	mock.AddResponse("hello", "Hi!")

	a := NewLLMAgent("assistant", mock, func(o *LLMAgentOptions) {
		o.Streaming = false
	})
	emit := make(chan core.Event, 8)

	err := a.Run(newTestRunContext(emit))

	require.NoError(t, err)
	events := drainEvents(emit)
	require.Len(t, events, 1)
	assert.True(t, events[0].TurnComplete)
	assert.Equal(t, "Hi!", events[0].Text())
}

func TestLLMAgent_UsesSessionHistory(t *testing.T) {
	mock := model.NewMockModel("mock-model")
	mock.AddResponse("follow-up", "remembered")

	a := NewLLMAgent("assistant", mock, func(o *LLMAgentOptions) {
		o.Streaming = false
	})

	emit := make(chan core.Event, 8)
	rc := newTestRunContext(emit)
	rc.Session.AddEvent(core.NewUserEvent("run-0", core.NewTextContent("user", "earlier question")))
	rc.Session.AddEvent(core.NewAssistantEvent("run-0", "assistant", "earlier answer"))
	rc.Session.AddEvent(core.NewUserEvent("run-1", core.NewTextContent("user", "follow-up")))

	err := a.Run(rc)

	require.NoError(t, err)
	events := drainEvents(emit)
	require.Len(t, events, 1)
	assert.Equal(t, "remembered", events[0].Text())
}

func TestLLMAgent_RecordsModelCalls(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelDebug,
		Format: "json",
		Output: &buf,
	})

	mock := model.NewMockModel("mock-model")
	mock.AddResponse("hello", "Hi!")
	a := NewLLMAgent("assistant", mock, func(o *LLMAgentOptions) {
		o.Streaming = false
	})

	emit := make(chan core.Event, 8)
	rc := newTestRunContext(emit)
	rc.Logger = logger

	require.NoError(t, a.Run(rc))
	assert.Contains(t, buf.String(), "Model call completed")
	assert.Contains(t, buf.String(), `"model":"mock-model"`)
}

func TestLLMAgent_GenerationErrorPropagates(t *testing.T) {
	mock := model.NewMockModel("mock-model")
	mock.FailWith(errors.New("quota exceeded"))

	a := NewLLMAgent("assistant", mock)
	emit := make(chan core.Event, 8)

	err := a.Run(newTestRunContext(emit))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model generation failed for agent assistant")
	assert.Contains(t, err.Error(), "quota exceeded")
}

// callThenAnswerModel requests a tool call on the first round and answers
// with plain text on the second.
type callThenAnswerModel struct {
	calls  int
	lastIn []core.Content
}

func (m *callThenAnswerModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	m.calls++
	m.lastIn = req.Contents

	if m.calls == 1 {
		respCh <- model.Response{
			Content: core.NewTextContent("assistant", ""),
			Calls: []model.ToolCall{
				{ID: "call-1", Name: "echo", Arguments: `{"input": "ping"}`},
			},
		}
	} else {
		respCh <- model.Response{
			Content:      core.NewTextContent("assistant", "tool said ping"),
			FinishReason: "stop",
		}
	}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (m *callThenAnswerModel) Info() model.Info {
	return model.Info{Name: "call-then-answer", Provider: "mock", SupportsTools: true}
}

func TestLLMAgent_ExecutesToolsThenAnswers(t *testing.T) {
	catalog := tool.NewCatalog()
	echo, ok := catalog.Get("echo")
	require.True(t, ok)

	llm := &callThenAnswerModel{}
	a := NewLLMAgent("assistant", llm, func(o *LLMAgentOptions) {
		o.Tools = []tool.Tool{echo}
	})
	emit := make(chan core.Event, 8)

	err := a.Run(newTestRunContext(emit))

	require.NoError(t, err)
	assert.Equal(t, 2, llm.calls)

	// the second round sees the folded tool result
	var sawResult bool
	for _, c := range llm.lastIn {
		if strings.Contains(c.Text(), "ping") {
			sawResult = true
		}
	}
	assert.True(t, sawResult)

	events := drainEvents(emit)
	require.Len(t, events, 1)
	assert.Equal(t, "tool said ping", events[0].Text())
}

func TestLLMAgent_ToolRoundsAreBounded(t *testing.T) {
	catalog := tool.NewCatalog()
	echo, ok := catalog.Get("echo")
	require.True(t, ok)

	llm := &alwaysCallModel{}
	a := NewLLMAgent("assistant", llm, func(o *LLMAgentOptions) {
		o.Tools = []tool.Tool{echo}
		o.MaxToolRounds = 2
	})
	emit := make(chan core.Event, 8)

	err := a.Run(newTestRunContext(emit))

	require.NoError(t, err)
	assert.Equal(t, 3, llm.calls)
}

// alwaysCallModel never stops requesting tool calls.
type alwaysCallModel struct {
	calls int
}

func (m *alwaysCallModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	m.calls++
	respCh <- model.Response{
		Content: core.NewTextContent("assistant", ""),
		Calls:   []model.ToolCall{{ID: "c", Name: "echo", Arguments: `{"input": "x"}`}},
	}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (m *alwaysCallModel) Info() model.Info {
	return model.Info{Name: "always-call", Provider: "mock", SupportsTools: true}
}
