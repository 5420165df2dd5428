// Package agent provides the executable node implementations a topology is
// materialized into: LLM nodes backed by a generation model, parallel fan-out
// coordinators and sequential chains. Nodes are built per run, owned by that
// run and discarded afterwards; nothing here is shared across runs.
package agent

import (
	"fmt"

	"github.com/MT2-0901/nexus-agent/core"
)

// BaseAgent bundles identity and hierarchy shared by all node kinds. Embed it
// in concrete agents and supply a Run method to satisfy core.Agent. A built
// tree is immutable, so no synchronization is needed.
type BaseAgent struct {
	name        string
	description string
	children    []core.Agent
}

// NewBaseAgent constructs a BaseAgent with a generated description.
func NewBaseAgent(name string, children ...core.Agent) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
		children:    children,
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) {
	if desc != "" {
		b.description = desc
	}
}

// SubAgents returns a shallow copy of the child agents for safe iteration.
func (b *BaseAgent) SubAgents() []core.Agent {
	result := make([]core.Agent, len(b.children))
	copy(result, b.children)
	return result
}

// FindAgent performs a depth-first search over the subtree rooted at this
// agent's children returning the first agent whose Name matches.
func (b *BaseAgent) FindAgent(name string) core.Agent {
	for _, child := range b.children {
		if child.Name() == name {
			return child
		}
		if base, ok := child.(interface{ FindAgent(string) core.Agent }); ok {
			if found := base.FindAgent(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// buildBranchPath joins a parent branch path with a new suffix.
func buildBranchPath(parent, suffix string) string {
	if parent == "" {
		return suffix
	}
	return parent + "." + suffix
}
