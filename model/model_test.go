package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MT2-0901/nexus-agent/core"
)

func drain(t *testing.T, respCh <-chan Response, errCh <-chan error) ([]Response, error) {
	t.Helper()
	var responses []Response
	for resp := range respCh {
		responses = append(responses, resp)
	}
	return responses, <-errCh
}

func TestMockModel_NonStreaming(t *testing.T) {
	m := NewMockModel("mock-model")
	m.AddResponse("ping", "pong")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent("user", "ping")},
	})

	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.False(t, responses[0].Partial)
	assert.Equal(t, "pong", responses[0].Content.Text())
	assert.Equal(t, "stop", responses[0].FinishReason)
}

func TestMockModel_StreamingEmitsPartialsThenFinal(t *testing.T) {
	m := NewMockModel("mock-model")
	m.AddResponse("hi", "ok!")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent("user", "hi")},
		Stream:   true,
	})

	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 4)
	for _, resp := range responses[:3] {
		assert.True(t, resp.Partial)
	}
	assert.False(t, responses[3].Partial)
	assert.Equal(t, "ok!", responses[3].Content.Text())
}

func TestMockModel_FailWith(t *testing.T) {
	m := NewMockModel("mock-model")
	boom := errors.New("engine exploded")
	m.FailWith(boom)

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent("user", "ping")},
	})

	responses, err := drain(t, respCh, errCh)
	assert.Empty(t, responses)
	assert.ErrorIs(t, err, boom)
}

func TestMockModel_EmptyContents(t *testing.T) {
	m := NewMockModel("mock-model")

	respCh, errCh := m.Generate(context.Background(), Request{})

	_, err := drain(t, respCh, errCh)
	assert.Error(t, err)
}
