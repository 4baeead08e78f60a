package session

import (
	"context"
	"fmt"
)

// Session is a reusable external resource bound to at most one context
// at a time. Implementations embed *Core and supply the Open and Close
// resource hooks; lifecycle state is driven exclusively by the
// package-level Start, Release, and Dispose functions.
//
// The interface is sealed: only types embedding *Core satisfy it.
type Session interface {
	// Open acquires the underlying resource. Called exactly once, by
	// Start. A failed Open leaves the session permanently disposed.
	Open(ctx context.Context) error

	// Close releases the underlying resource. Called at most once, by
	// Dispose, and only after a successful or in-flight Open.
	Close(ctx context.Context) error

	core() *Core
}

// CoreOf returns the shared core of a session. It exists so that
// packages outside session (the context tree, tests) can reach the
// ownership and state API without widening the Session interface.
func CoreOf(s Session) *Core { return s.core() }

// Start activates a session: Created → Starting → Open hook → Active.
// Concurrent starts of the same instance are not supported; a second
// call fails. If the Open hook fails the session transitions directly to
// Disposed and the error is propagated.
func Start(ctx context.Context, s Session) error {
	c := s.core()
	if err := c.transition(StateCreated, StateStarting); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := s.Open(ctx); err != nil {
		c.setState(StateDisposed)
		return fmt.Errorf("start session %s: %w", c.key, err)
	}
	c.setState(StateActive)
	return nil
}

// Release ends the current context's use of a session. What happens
// depends on how the session is held:
//
//   - borrowed: the borrow ends and the session returns to its lender,
//     still active
//   - pooled: the session returns to its pool's idle set, or is disposed
//     if the pool has been torn down
//   - owned: the owner reference is cleared; disposal remains the owning
//     context's responsibility
func Release(ctx context.Context, s Session) error {
	c := s.core()
	c.mu.Lock()
	if c.borrower != nil {
		c.borrower = nil
		c.mu.Unlock()
		return nil
	}
	if c.pool != nil {
		p := c.pool
		c.owner = nil
		c.mu.Unlock()
		return p.Give(ctx, s)
	}
	c.owner = nil
	c.mu.Unlock()
	return nil
}

// Dispose terminally deactivates a session. It is idempotent: disposing
// an already-disposed session is a no-op. A session that never started
// is marked disposed without invoking the Close hook.
func Dispose(ctx context.Context, s Session) error {
	c := s.core()
	c.mu.Lock()
	prev := c.state
	if prev == StateDisposed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateDisposed
	c.owner = nil
	c.borrower = nil
	c.mu.Unlock()

	if prev == StateCreated {
		return nil
	}
	if err := s.Close(ctx); err != nil {
		return fmt.Errorf("dispose session %s: %w", c.key, err)
	}
	return nil
}
