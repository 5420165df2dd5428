// Package runner drives one conversational turn through a built topology.
//
// The Runner bridges the executable agent tree and the protocol layer: it
// wires up the per-run context, appends the user turn to the session,
// executes the root agent on its own goroutine and forwards emitted events in
// order. Non-partial events are persisted to the session store as they pass
// through; partial streaming fragments are forwarded only.
//
// Topologies are owned by the run that built them, so the tree is an argument
// to Run rather than a Runner field.
package runner
