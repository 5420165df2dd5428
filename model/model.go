// Package model defines the generation-engine boundary: the normalized
// request/response shapes and the minimal Model interface LLM nodes drive.
// Provider adapters live in the openai and anthropic subpackages.
package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/MT2-0901/nexus-agent/core"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider
// branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // JSON string of arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by LLM nodes.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// Response is a (partial or final) chunk emitted by a streaming model. Text
// on partial responses is incremental; the final response carries the full
// accumulated text.
type Response struct {
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	Calls        []ToolCall   `json:"calls,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by LLM nodes to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// RuntimeOptions carry per-request LLM endpoint overrides forwarded by the
// client (base URL and API key). Zero value means use the configured client.
type RuntimeOptions struct {
	BaseURL string
	APIKey  string
}

// HasOverrides reports whether any runtime override is set.
func (o RuntimeOptions) HasOverrides() bool { return o.BaseURL != "" || o.APIKey != "" }

// Factory constructs a Model for a resolved model identifier, applying any
// runtime endpoint overrides. The topology builder calls this once per LLM
// node.
type Factory interface {
	NewModel(name string, runtime RuntimeOptions) (Model, error)
}

// FactoryFunc adapts an ordinary function to the Factory interface.
type FactoryFunc func(name string, runtime RuntimeOptions) (Model, error)

// NewModel implements Factory.
func (f FactoryFunc) NewModel(name string, runtime RuntimeOptions) (Model, error) {
	return f(name, runtime)
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
type MockModel struct {
	info      Info
	responses map[string]string
	err       error
}

// NewMockModel constructs a MockModel named after the given model id.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock", SupportsTools: false},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// FailWith makes every Generate call surface err instead of responses.
func (m *MockModel) FailWith(err error) { m.err = err }

// Generate implements Model; emits optional streaming rune chunks then the
// final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if m.err != nil {
			errCh <- m.err
			return
		}
		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}

		last := req.Contents[len(req.Contents)-1]
		var input strings.Builder
		for _, p := range last.Parts {
			if tp, ok := p.(core.TextPart); ok {
				input.WriteString(tp.Text)
			}
		}

		full := m.responses[input.String()]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", input.String())
		}

		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.NewTextContent("assistant", string(r)),
				}:
				}
			}
		}
		respCh <- Response{
			Partial:      false,
			Content:      core.NewTextContent("assistant", full),
			FinishReason: "stop",
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
