package agent

import (
	"fmt"

	"github.com/MT2-0901/nexus-agent/core"
)

// SequentialAgent coordinates the execution of its children in declaration
// order. The same run context is passed to every child so each builds on the
// session state accumulated by its predecessors; the first error stops the
// chain immediately.
type SequentialAgent struct {
	BaseAgent
}

// NewSequentialAgent creates a sequential execution coordinator.
func NewSequentialAgent(name string, children ...core.Agent) *SequentialAgent {
	return &SequentialAgent{BaseAgent: NewBaseAgent(name, children...)}
}

// Run implements core.Agent. It executes each child in order; errors stop
// further processing immediately.
func (s *SequentialAgent) Run(rc *core.RunContext) error {
	for _, child := range s.children {
		if err := child.Run(rc); err != nil {
			return fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}
	}
	return nil
}
