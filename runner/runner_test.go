package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MT2-0901/nexus-agent/agent"
	"github.com/MT2-0901/nexus-agent/core"
	"github.com/MT2-0901/nexus-agent/model"
	"github.com/MT2-0901/nexus-agent/session"
)

func newRunnerWithSession(t *testing.T) (*Runner, core.SessionStore) {
	t.Helper()
	store := session.NewInMemoryStore()
	_, err := store.Create("nexus-agent", "user-1", "sess-1")
	require.NoError(t, err)

	r := New(func(o *Options) {
		o.SessionStore = store
	})
	return r, store
}

func collect(t *testing.T, eventsCh <-chan core.Event, errorsCh <-chan error) ([]core.Event, error) {
	t.Helper()
	var events []core.Event
	for ev := range eventsCh {
		events = append(events, ev)
	}
	select {
	case err := <-errorsCh:
		return events, err
	case <-time.After(2 * time.Second):
		t.Fatal("error channel never closed")
		return nil, nil
	}
}

func TestRunner_StreamsAndPersists(t *testing.T) {
	r, store := newRunnerWithSession(t)

	mock := model.NewMockModel("mock")
	mock.AddResponse("ping", "pong")
	root := agent.NewLLMAgent("assistant", mock, func(o *agent.LLMAgentOptions) {
		o.Streaming = false
	})

	eventsCh, errorsCh, err := r.Run(context.Background(), root, "user-1", "sess-1", "run-1", core.NewTextContent("user", "ping"))
	require.NoError(t, err)

	events, runErr := collect(t, eventsCh, errorsCh)
	require.NoError(t, runErr)
	require.Len(t, events, 1)
	assert.Equal(t, "pong", events[0].Text())
	assert.True(t, events[0].TurnComplete)

	sess, err := store.Get("nexus-agent", "user-1", "sess-1")
	require.NoError(t, err)
	history := sess.ConversationHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "ping", history[0].Text())
	assert.Equal(t, "pong", history[1].Text())
}

func TestRunner_PartialsForwardedNotPersisted(t *testing.T) {
	r, store := newRunnerWithSession(t)

	mock := model.NewMockModel("mock")
	mock.AddResponse("hi", "ok!")
	root := agent.NewLLMAgent("assistant", mock)

	eventsCh, errorsCh, err := r.Run(context.Background(), root, "user-1", "sess-1", "run-1", core.NewTextContent("user", "hi"))
	require.NoError(t, err)

	events, runErr := collect(t, eventsCh, errorsCh)
	require.NoError(t, runErr)
	require.Greater(t, len(events), 1)

	sess, err := store.Get("nexus-agent", "user-1", "sess-1")
	require.NoError(t, err)
	for _, ev := range sess.Events() {
		assert.False(t, ev.Partial)
	}
}

func TestRunner_UnknownSessionFails(t *testing.T) {
	r := New()

	_, _, err := r.Run(context.Background(), nil, "user-1", "missing", "run-1", core.NewTextContent("user", "hi"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get session")
}

func TestRunner_AgentErrorSurfaces(t *testing.T) {
	r, _ := newRunnerWithSession(t)

	mock := model.NewMockModel("mock")
	mock.FailWith(errors.New("backend down"))
	root := agent.NewLLMAgent("assistant", mock)

	eventsCh, errorsCh, err := r.Run(context.Background(), root, "user-1", "sess-1", "run-1", core.NewTextContent("user", "hi"))
	require.NoError(t, err)

	_, runErr := collect(t, eventsCh, errorsCh)
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "agent execution failed")
	assert.Contains(t, runErr.Error(), "backend down")
}

func TestRunner_CancelStopsRun(t *testing.T) {
	r, _ := newRunnerWithSession(t)

	blocked := make(chan struct{})
	root := blockingAgent{unblocked: blocked}

	eventsCh, errorsCh, err := r.Run(context.Background(), root, "user-1", "sess-1", "run-42", core.NewTextContent("user", "hi"))
	require.NoError(t, err)

	require.NoError(t, r.Cancel("run-42"))
	close(blocked)

	events, _ := collect(t, eventsCh, errorsCh)
	assert.Empty(t, events)

	assert.Error(t, r.Cancel("run-42"))
}

// blockingAgent waits for cancellation before returning.
type blockingAgent struct {
	unblocked chan struct{}
}

func (b blockingAgent) Name() string            { return "blocking" }
func (b blockingAgent) Description() string     { return "blocks until cancelled" }
func (b blockingAgent) SubAgents() []core.Agent { return nil }

func (b blockingAgent) Run(rc *core.RunContext) error {
	select {
	case <-rc.Done():
		return rc.Err()
	case <-b.unblocked:
		return nil
	}
}
