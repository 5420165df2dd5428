package agent

import (
	"fmt"
	"sync"

	"github.com/MT2-0901/nexus-agent/core"
)

// ParallelAgent coordinates the concurrent execution of its children. Each
// child receives a cloned run context with its own branch label so emitted
// events identify their originating branch; the emit channel and session
// snapshot are shared.
type ParallelAgent struct {
	BaseAgent
}

// NewParallelAgent creates a parallel execution coordinator.
func NewParallelAgent(name string, children ...core.Agent) *ParallelAgent {
	return &ParallelAgent{BaseAgent: NewBaseAgent(name, children...)}
}

// branchContextFor clones the parent context and assigns a hierarchical
// branch path ("Parent.Child") for the given child.
func (p *ParallelAgent) branchContextFor(rc *core.RunContext, child core.Agent) *core.RunContext {
	branchCtx := rc.Clone()
	branchCtx.Branch = buildBranchPath(rc.Branch, fmt.Sprintf("%s.%s", p.Name(), child.Name()))
	return branchCtx
}

// Run implements core.Agent launching all children concurrently. The first
// error encountered (after all complete) is returned; successful children
// continue even if siblings fail.
func (p *ParallelAgent) Run(rc *core.RunContext) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(p.children))

	for _, child := range p.children {
		wg.Add(1)
		go func(c core.Agent) {
			defer wg.Done()
			if err := c.Run(p.branchContextFor(rc, c)); err != nil {
				errCh <- fmt.Errorf("parallel execution failed for agent %s: %w", c.Name(), err)
			}
		}(child)
	}

	wg.Wait()
	close(errCh)

	if len(errCh) > 0 {
		return <-errCh
	}
	return nil
}
