// Package testctx implements the execution-context tree that browser
// test suites run inside: global → suite → test. Each Context owns a
// session collection, zero or more child contexts, and a configuration
// snapshot inherited from its parent.
//
// # Architecture
//
// The package is built around three core concepts:
//
//  1. Context: a tree node with a monotonic lifecycle (Created → Active
//     → Disposed) that orchestrates build and dispose cascades
//  2. Collection: the per-context registry of session builders, owned
//     sessions, and session pools, implementing borrow and pool-take
//  3. Ambient current context: a context.Context carrier (plus an
//     explicit process-wide root) that test and component code read
//     implicitly
//
// # Session acquisition
//
// A context gets a session one of three ways:
//
//   - Build: invoke a registered builder and own the result exclusively;
//     the session is disposed when the context is
//   - Borrow: temporarily take exclusive use of a shareable session
//     owned by the nearest ancestor that has one; releasing returns it
//     to the lender, still active
//   - TakeFromPool: check a session out of the nearest ancestor pool
//     with a matching key; releasing returns it to the pool's idle set
//
// Disposal of a context cascades depth-first to children in add order,
// then releases or disposes its sessions according to how each was
// acquired. Teardown is best-effort: every step runs even if an earlier
// one fails, and the errors are combined.
//
// # Concurrency
//
// Many logical test executions run concurrently, each driving its own
// context subtree. A collection's lists are guarded by a single
// reader-writer lock; borrowing never holds two collections' locks at
// once. Candidate discovery takes a snapshot read, and the ownership
// handoff happens on the session's own core.
package testctx
