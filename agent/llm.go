package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MT2-0901/nexus-agent/core"
	"github.com/MT2-0901/nexus-agent/logging"
	"github.com/MT2-0901/nexus-agent/model"
	"github.com/MT2-0901/nexus-agent/tool"
)

// LLMAgentOptions configure an LLMAgent instance.
type LLMAgentOptions struct {
	Description string
	Instruction string
	Tools       []tool.Tool
	Children    []core.Agent
	// MaxToolRounds bounds the generate -> execute tools -> regenerate loop.
	MaxToolRounds int
	// MaxHistoryMessages limits how much conversation history is replayed.
	MaxHistoryMessages int
	Streaming          bool
}

// LLMAgent is a generation-capable topology node. It drives its model with
// the composed instruction, the session's conversation history and the
// resolved tool set, forwarding the model's output as events.
//
// Streaming contract: partial events carry the cumulative text observed so
// far for the assistant message (each snapshot contains everything previous
// snapshots did); the closing event carries the complete text with
// TurnComplete set. The protocol layer derives client deltas from these
// snapshots.
type LLMAgent struct {
	BaseAgent
	llm                model.Model
	instruction        string
	tools              map[string]tool.Tool
	toolDefs           []model.ToolDefinition
	maxToolRounds      int
	maxHistoryMessages int
	streaming          bool
}

// NewLLMAgent creates a model-backed node with sensible defaults: streaming
// enabled, four tool rounds, twenty history messages.
func NewLLMAgent(name string, llm model.Model, optFns ...func(o *LLMAgentOptions)) *LLMAgent {
	opts := LLMAgentOptions{
		Instruction:        fmt.Sprintf("You are %s, a helpful AI assistant.", name),
		MaxToolRounds:      4,
		MaxHistoryMessages: 20,
		Streaming:          true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	tools := make(map[string]tool.Tool, len(opts.Tools))
	toolDefs := make([]model.ToolDefinition, 0, len(opts.Tools))
	for _, t := range opts.Tools {
		tools[t.Name()] = t
		toolDefs = append(toolDefs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	a := &LLMAgent{
		BaseAgent:          NewBaseAgent(name, opts.Children...),
		llm:                llm,
		instruction:        opts.Instruction,
		tools:              tools,
		toolDefs:           toolDefs,
		maxToolRounds:      opts.MaxToolRounds,
		maxHistoryMessages: opts.MaxHistoryMessages,
		streaming:          opts.Streaming,
	}
	a.SetDescription(opts.Description)
	return a
}

// Instruction returns the composed system prompt for this node.
func (a *LLMAgent) Instruction() string { return a.instruction }

// Model returns the backing generation model.
func (a *LLMAgent) Model() model.Model { return a.llm }

// Run implements core.Agent. It replays conversation history, drives the
// model (executing requested tools in a bounded loop) and emits cumulative
// partial events followed by one turn-complete event.
func (a *LLMAgent) Run(rc *core.RunContext) error {
	contents := a.historyContents(rc)

	var cumulative strings.Builder
	for round := 0; ; round++ {
		final, err := a.generateOnce(rc, contents, &cumulative)
		if err != nil {
			return err
		}

		if len(final.Calls) == 0 || len(a.tools) == 0 || round >= a.maxToolRounds {
			return a.emitFinal(rc, &cumulative, final)
		}

		rc.Logger.Debug("executing tool calls", "agent", a.Name(), "count", len(final.Calls))
		contents = append(contents, final.Content)
		contents = append(contents, a.executeCalls(rc, final.Calls))
	}
}

// historyContents assembles model input from the session's conversation
// history, bounded by the configured window, falling back to the raw user
// content when no history is available.
func (a *LLMAgent) historyContents(rc *core.RunContext) []core.Content {
	var contents []core.Content
	if rc.Session != nil {
		history := rc.Session.ConversationHistory()
		if a.maxHistoryMessages > 0 && len(history) > a.maxHistoryMessages {
			history = history[len(history)-a.maxHistoryMessages:]
		}
		for _, ev := range history {
			contents = append(contents, *ev.Content)
		}
	}
	if len(contents) == 0 {
		contents = append(contents, rc.UserContent)
	}
	return contents
}

// generateOnce performs one model invocation, forwarding partial output as
// cumulative events and returning the final response.
func (a *LLMAgent) generateOnce(
	rc *core.RunContext,
	contents []core.Content,
	cumulative *strings.Builder,
) (model.Response, error) {
	start := time.Now()
	respCh, errCh := a.llm.Generate(rc.Context, model.Request{
		Instructions: a.instruction,
		Contents:     contents,
		Tools:        a.toolDefs,
		Stream:       a.streaming,
	})

	var final model.Response
	for resp := range respCh {
		if !resp.Partial {
			final = resp
			continue
		}
		delta := resp.Content.Text()
		if delta == "" {
			continue
		}
		cumulative.WriteString(delta)
		ev := core.NewAssistantEvent(rc.RunID, a.Name(), cumulative.String())
		ev.Partial = true
		ev.Branch = rc.Branch
		if err := rc.EmitEvent(ev); err != nil {
			return model.Response{}, err
		}
	}
	if err := <-errCh; err != nil {
		a.logModelCall(rc, time.Since(start), err)
		return model.Response{}, fmt.Errorf("model generation failed for agent %s: %w", a.Name(), err)
	}
	a.logModelCall(rc, time.Since(start), nil)
	return final, nil
}

func (a *LLMAgent) logModelCall(rc *core.RunContext, dur time.Duration, err error) {
	if nl, ok := rc.Logger.(*logging.NexusLogger); ok {
		nl.LogModelCall(a.llm.Info().Name, dur, err == nil, err)
	}
}

// emitFinal closes the assistant turn with the complete accumulated text.
func (a *LLMAgent) emitFinal(rc *core.RunContext, cumulative *strings.Builder, final model.Response) error {
	finalText := final.Content.Text()
	// Non-streaming models deliver all text on the final response; make sure
	// the closing event carries it even when no partials were seen.
	text := cumulative.String()
	if finalText != "" && !strings.HasSuffix(text, finalText) {
		cumulative.WriteString(finalText)
		text = cumulative.String()
	}

	ev := core.NewAssistantEvent(rc.RunID, a.Name(), text)
	ev.TurnComplete = true
	ev.Branch = rc.Branch
	return rc.EmitEvent(ev)
}

// executeCalls runs every requested tool and folds the results into one
// content block the next generation round can consume. Tool failures are
// reported back to the model rather than aborting the run.
func (a *LLMAgent) executeCalls(rc *core.RunContext, calls []model.ToolCall) core.Content {
	var b strings.Builder
	for _, call := range calls {
		result := a.executeCall(rc, call)
		fmt.Fprintf(&b, "Tool %s returned: %s\n", call.Name, result)
	}
	return core.NewTextContent("user", b.String())
}

func (a *LLMAgent) executeCall(rc *core.RunContext, call model.ToolCall) string {
	t, ok := a.tools[call.Name]
	if !ok {
		return fmt.Sprintf(`{"error": "tool %s not found"}`, call.Name)
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return fmt.Sprintf(`{"error": "invalid arguments: %s"}`, err)
		}
	}

	result, err := t.Call(rc.Context, args)
	if err != nil {
		rc.Logger.Warn("tool call failed", "tool", call.Name, "error", err)
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(payload)
}
