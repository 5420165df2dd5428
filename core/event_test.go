package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	ev := NewEvent("run-1", "agent")

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, "agent", ev.Author)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Nil(t, ev.Content)
}

func TestNewUserEvent(t *testing.T) {
	ev := NewUserEvent("run-1", NewTextContent("", "hello"))

	assert.Equal(t, "user", ev.Author)
	assert.Equal(t, "user", ev.Content.Role)
	assert.Equal(t, "hello", ev.Text())
}

func TestEvent_Text_MixedParts(t *testing.T) {
	ev := NewEvent("run-1", "agent")
	ev.Content = &Content{
		Role: "assistant",
		Parts: []Part{
			TextPart{Text: "see "},
			ImagePart{Data: []byte{1}, MIMEType: "image/png", Name: "chart"},
			TextPart{Text: "attached"},
		},
	}

	assert.Equal(t, "see attached", ev.Text())
}

func TestEvent_IsFinalResponse(t *testing.T) {
	final := NewAssistantEvent("run-1", "agent", "done")
	assert.True(t, final.IsFinalResponse())

	partial := NewAssistantEvent("run-1", "agent", "do")
	partial.Partial = true
	assert.False(t, partial.IsFinalResponse())

	failed := NewEvent("run-1", "agent")
	failed.ErrorMessage = "boom"
	assert.False(t, failed.IsFinalResponse())
}
