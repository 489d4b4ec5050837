// Package pipevine provides an embeddable pipeline state engine for Go.
//
// Pipevine persists multi-step workflow state for local, single-user
// tools: each pipeline is a keyed, schema-less state document, and the
// engine computes revert and finalize transitions over an ordered step
// sequence. It runs fully in Go, supports multiple persistence backends,
// and integrates cleanly into existing codebases.
//
// # Core Concepts
//
// The pipevine programming model is intentionally small and idiomatic:
//
//  1. StateManager
//  2. Sequence and Step
//  3. MessageQueue
//  4. Key
//
// # StateManager
//
// The StateManager persists pipeline state documents and provides APIs to:
//   - initialize a pipeline exactly once per key
//   - read and write schema-less state documents
//   - record step completion values
//   - revert to an earlier step, clearing downstream progress
//   - finalize and unfinalize a pipeline
//   - resolve a human-readable status message
//
// Managers can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres
//   - Redis
//   - MongoDB
//
// Managers are safe for use from concurrent callers, with one caveat:
// read-modify-write sequences against the same pipeline key are not
// coordinated, and the later write wins. Callers that need stronger
// per-key ordering must serialize those operations themselves.
//
// # Sequence and Step
//
// A Sequence is the ordered list of Step descriptors a pipeline moves
// through. Each step names the record field that holds its completed
// value, may be flagged Refill to survive reverts, and may carry a
// Suggester that prefills it from the previous step's value. By
// convention the last element is the terminal "finalize" pseudo-step.
//
// Example:
//
//	seq := pipevine.NewSequence(
//	    pipevine.Step{ID: "url", Done: "url", Show: "Enter URL"},
//	    pipevine.Step{ID: "analysis", Done: "result", Show: "Analysis", Refill: true},
//	    pipevine.Step{ID: "finalize", Done: "finalized", Show: "Finalize"},
//	)
//
// # MessageQueue
//
// A MessageQueue guarantees that status messages reach a single sink in
// exactly the order they were queued, no matter how many concurrent
// producers add them. Delivery can be paced word by word for chat-style
// output; a delivery in progress always runs to completion before the
// next message starts.
//
// # Key
//
// Pipeline keys are composite identifiers of the form
// profile-plugin-user. GenerateKey auto-increments a zero-padded numeric
// suffix over the keys already in the store; ParseKey splits a key back
// into its parts and tolerates missing segments.
//
// # Summary
//
// Pipevine's goal is to give Go developers a pipeline state engine that
// feels like Go: easy to embed, easy to test, deterministic, and without
// operational overhead. StateManagers own persistence and transitions,
// Sequences describe the steps, and the MessageQueue keeps status
// delivery in order.
package pipevine
