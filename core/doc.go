// Package core provides the foundational domain types and execution contexts
// used across nexus-agent. It defines the core abstractions for:
//
//   - Content and its closed set of parts (text, image)
//   - Events (immutable per-run communication records)
//   - Sessions keyed by (app, user, session id) plus the pluggable store
//   - RunContext (scoped execution state handed to topology nodes)
//
// The package intentionally keeps implementation concerns (persistence,
// protocol framing, concrete agents) out of scope, exposing small interfaces
// so backends can be swapped.
package core
