// Package session defines the reusable external resources managed by the
// execution-context tree, along with the builders that produce them and
// the bounded pools that cache them.
//
// The package is built around four core concepts:
//
//  1. Session: a long-lived external resource (for example a browser
//     driver connection) with an explicit activation lifecycle
//  2. Core: the state shared by every session kind (identity, lifecycle
//     state, shareability, ownership)
//  3. Builder: a factory registered on a context that produces sessions
//     of one (type, name) kind and carries their wait and pool settings
//  4. Pool: a bounded, keyed cache of idle sessions checked out and
//     returned by contexts
//
// # Lifecycle
//
// Sessions move through Created → Starting → Active → Disposed. The
// transitions are driven by the package-level Start, Release and Dispose
// functions rather than by implementations themselves; an implementation
// only supplies the Open and Close resource hooks and embeds *Core:
//
//	type PageSession struct {
//	    *session.Core
//	    // driver handles ...
//	}
//
//	func (s *PageSession) Open(ctx context.Context) error  { ... }
//	func (s *PageSession) Close(ctx context.Context) error { ... }
//
// Embedding *Core is what satisfies the Session interface; the interface
// is sealed so that lifecycle state can never be managed by hand.
//
// # Ownership
//
// At any instant a session has at most one owning context. Shareable
// sessions may additionally be lent to one borrower at a time via
// TryBorrowTo; releasing a borrowed session returns it to the lender and
// never disposes it. Sessions checked out of a Pool return to the pool's
// idle set on release, or are disposed if the pool has been torn down.
package session
