// Package topology turns a declared mode graph into an executable agent tree.
// The builder walks the definition recursively, validating references and
// rejecting path cycles, and falls back to an alternate mode when the
// preferred mode cannot be built. Built trees are owned by one run and never
// cached.
package topology

import (
	"fmt"
	"strings"
	"time"

	"github.com/MT2-0901/nexus-agent/agent"
	"github.com/MT2-0901/nexus-agent/core"
	"github.com/MT2-0901/nexus-agent/logging"
	"github.com/MT2-0901/nexus-agent/mode"
	"github.com/MT2-0901/nexus-agent/model"
	"github.com/MT2-0901/nexus-agent/skill"
	"github.com/MT2-0901/nexus-agent/tool"
)

// BuilderOptions configure a Builder.
type BuilderOptions struct {
	// DefaultModel is used when a request carries no model override.
	DefaultModel string
	// AllowedModels, when non-empty, restricts overrides to this allow-list
	// (case-insensitive).
	AllowedModels []string
	Logger        logging.Logger
}

// Builder materializes executable agent trees from mode definitions.
type Builder struct {
	modes         *mode.Registry
	catalog       *tool.Catalog
	factory       model.Factory
	defaultModel  string
	allowedModels []string
	logger        logging.Logger
}

// NewBuilder creates a Builder over the given mode registry, tool catalog and
// model factory.
func NewBuilder(modes *mode.Registry, catalog *tool.Catalog, factory model.Factory, optFns ...func(o *BuilderOptions)) *Builder {
	opts := BuilderOptions{
		DefaultModel: "gpt-4o-mini",
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Builder{
		modes:         modes,
		catalog:       catalog,
		factory:       factory,
		defaultModel:  opts.DefaultModel,
		allowedModels: opts.AllowedModels,
		logger:        opts.Logger,
	}
}

// buildContext carries per-attempt state shared by every node of one build.
type buildContext struct {
	def         *mode.Definition
	modelName   string
	skillPrompt string
	tools       []tool.Tool
	runtime     model.RuntimeOptions
}

// Build expands the requested mode into an executable agent tree. When a
// build attempt fails and the failed mode's definition names a fallback mode,
// the fallback is attempted next; a visited set guarantees termination even
// if fallback declarations form a cycle. The returned tree is exclusively
// owned by the caller's run.
func (b *Builder) Build(
	requested mode.Mode,
	activeSkills []skill.Definition,
	modelOverride string,
	runtime model.RuntimeOptions,
) (core.Agent, error) {
	start := time.Now()

	modelName, err := b.resolveModel(modelOverride)
	if err != nil {
		return nil, err
	}

	tools, err := b.catalog.Resolve(activeSkills)
	if err != nil {
		return nil, fmt.Errorf("tool resolution failed: %w", err)
	}

	bc := buildContext{
		modelName:   modelName,
		skillPrompt: skill.ComposePrompt(activeSkills),
		tools:       tools,
		runtime:     runtime,
	}

	visited := make(map[mode.Mode]bool)
	current := requested
	var lastErr error

	for !visited[current] {
		visited[current] = true

		def, ok := b.modes.Find(current)
		if !ok {
			lastErr = fmt.Errorf("no definition registered for mode %s", current)
			break
		}

		bc.def = def
		root, err := b.buildNode(bc, def.Root, nil)
		if err == nil {
			b.logBuild(string(current), len(def.Nodes), time.Since(start), nil)
			return root, nil
		}

		lastErr = err
		if def.FallbackMode == "" {
			break
		}
		b.logger.Warn("topology build failed, trying fallback",
			"mode", string(current),
			"fallback", string(def.FallbackMode),
			"error", err,
		)
		current = def.FallbackMode
	}

	err = fmt.Errorf("failed to build topology for mode %s: %w", requested, lastErr)
	b.logBuild(string(requested), 0, time.Since(start), err)
	return nil, err
}

// logBuild records one build outcome, using the domain helper when the logger
// provides it.
func (b *Builder) logBuild(m string, nodes int, dur time.Duration, err error) {
	if nl, ok := b.logger.(*logging.NexusLogger); ok {
		nl.LogTopologyBuild(m, nodes, dur, err == nil, err)
		return
	}
	if err != nil {
		b.logger.Warn("topology build failed", "mode", m, "error", err)
		return
	}
	b.logger.Debug("topology built", "mode", m, "node_count", nodes, "duration", dur)
}

// buildNode expands one node reference. The ancestor path covers only the
// current root-to-node chain, so a reference shared by sibling branches is
// expanded twice into independent subtrees while a true path cycle fails.
func (b *Builder) buildNode(bc buildContext, ref string, path []string) (core.Agent, error) {
	node, ok := bc.def.Nodes[ref]
	if !ok {
		return nil, fmt.Errorf("unknown node reference %s in mode %s", ref, bc.def.Mode)
	}

	for _, ancestor := range path {
		if ancestor == ref {
			return nil, fmt.Errorf("cycle detected in mode %s: %s",
				bc.def.Mode, strings.Join(append(path, ref), " -> "))
		}
	}
	childPath := append(path[:len(path):len(path)], ref)

	children := make([]core.Agent, 0, len(node.SubAgents))
	for _, childRef := range node.SubAgents {
		child, err := b.buildNode(bc, childRef, childPath)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	switch node.Kind {
	case mode.KindLLM:
		return b.buildLLMNode(bc, node, children)
	case mode.KindParallel:
		a := agent.NewParallelAgent(node.Name, children...)
		a.SetDescription(node.Description)
		return a, nil
	case mode.KindSequential:
		a := agent.NewSequentialAgent(node.Name, children...)
		a.SetDescription(node.Description)
		return a, nil
	default:
		return nil, fmt.Errorf("unsupported node kind %s for node %s", node.Kind, ref)
	}
}

func (b *Builder) buildLLMNode(bc buildContext, node mode.NodeDefinition, children []core.Agent) (core.Agent, error) {
	llm, err := b.factory.NewModel(bc.modelName, bc.runtime)
	if err != nil {
		return nil, fmt.Errorf("model construction failed for node %s: %w", node.Name, err)
	}

	instruction := strings.TrimSpace(node.Instruction)
	if instruction == "" {
		instruction = fmt.Sprintf("You are %s, a helpful AI assistant.", node.Name)
	}
	instruction += bc.skillPrompt

	return agent.NewLLMAgent(node.Name, llm, func(o *agent.LLMAgentOptions) {
		o.Description = node.Description
		o.Instruction = instruction
		o.Tools = bc.tools
		o.Children = children
	}), nil
}

// resolveModel applies the override policy: a trimmed explicit override must
// match the allow-list when one is configured; otherwise the configured
// default is used unconditionally.
func (b *Builder) resolveModel(override string) (string, error) {
	trimmed := strings.TrimSpace(override)
	if trimmed == "" {
		return b.defaultModel, nil
	}
	if len(b.allowedModels) == 0 {
		return trimmed, nil
	}
	for _, allowed := range b.allowedModels {
		if strings.EqualFold(trimmed, allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("invalid model override %q: not in the configured model list", trimmed)
}
