package core

// Agent is one executable node of a built topology. Topologies are trees of
// agents materialized per run from a mode definition: LLM nodes generate,
// parallel nodes fan out concurrently, sequential nodes chain their children.
//
// Implementations must:
//   - Respect context cancellation via the RunContext
//   - Emit events through RunContext.EmitEvent
//   - Treat the tree as owned by a single run (no cross-run sharing)
type Agent interface {
	Name() string
	Description() string
	SubAgents() []Agent
	Run(rc *RunContext) error
}
