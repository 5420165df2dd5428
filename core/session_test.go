package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_StateRoundTrip(t *testing.T) {
	sess := NewSession("nexus-agent", "u1", "s1")

	_, ok := sess.State("missing")
	assert.False(t, ok)

	sess.SetState("key", "value")
	v, ok := sess.State("key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestSession_ConversationHistory_FiltersPartialsAndRoles(t *testing.T) {
	sess := NewSession("nexus-agent", "u1", "s1")

	sess.AddEvent(NewUserEvent("run-1", NewTextContent("", "hi")))

	partial := NewAssistantEvent("run-1", "agent", "he")
	partial.Partial = true
	sess.AddEvent(partial)

	sess.AddEvent(NewAssistantEvent("run-1", "agent", "hello"))

	control := NewEvent("run-1", "agent")
	sess.AddEvent(control)

	history := sess.ConversationHistory()
	assert.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Text())
	assert.Equal(t, "hello", history[1].Text())
}

func TestSession_EventsReturnsCopy(t *testing.T) {
	sess := NewSession("nexus-agent", "u1", "s1")
	sess.AddEvent(NewAssistantEvent("run-1", "agent", "one"))

	events := sess.Events()
	events[0].Author = "mutated"

	assert.Equal(t, "agent", sess.Events()[0].Author)
}

func TestSession_CloneDiverges(t *testing.T) {
	sess := NewSession("nexus-agent", "u1", "s1")
	sess.SetState("shared", 1)

	clone := sess.Clone()
	clone.SetState("shared", 2)
	clone.AddEvent(NewAssistantEvent("run-1", "agent", "cloned"))

	v, _ := sess.State("shared")
	assert.Equal(t, 1, v)
	assert.Empty(t, sess.Events())
	assert.Len(t, clone.Events(), 1)
}
