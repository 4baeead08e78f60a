package session

import (
	"fmt"
	"sync"
	"time"
)

// State is a session's lifecycle state. States are monotonic: a session
// never regresses to an earlier state, and Disposed is terminal.
type State int32

const (
	// StateCreated means the session object exists but holds no resources.
	StateCreated State = iota

	// StateStarting means resource acquisition is in progress.
	StateStarting

	// StateActive means the session started successfully and is usable.
	StateActive

	// StateDisposed means the session has been torn down (or failed to
	// start) and can never be used again.
	StateDisposed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Origin describes how a context came to hold a session, which
// determines what releasing it does.
type Origin int

const (
	// OriginOwned means the context built the session itself and will
	// dispose it on teardown.
	OriginOwned Origin = iota

	// OriginBorrowed means the session was lent by an ancestor context;
	// release returns it to the lender, never disposes it.
	OriginBorrowed

	// OriginPooledCheckout means the session was checked out of a pool;
	// release returns it to the pool's idle set (or disposes it if the
	// pool has been torn down).
	OriginPooledCheckout
)

// String returns the lowercase origin name.
func (o Origin) String() string {
	switch o {
	case OriginOwned:
		return "owned"
	case OriginBorrowed:
		return "borrowed"
	case OriginPooledCheckout:
		return "pooled"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// Owner is the minimal view of a context that sessions track for
// ownership. It is satisfied by *testctx.Context; sessions never need
// the full context API.
type Owner interface {
	// ID returns the opaque, stable identifier of the owning context.
	ID() string
}

// Core holds the state shared by every session kind: identity, lifecycle
// state, shareability, borrow wait settings, and ownership. Session
// implementations embed *Core; the embedded pointer is what satisfies
// the Session interface.
//
// The ownership fields are guarded by the Core's own mutex so that a
// borrow attempt never needs any context's collection lock.
type Core struct {
	key          Key
	shareable    bool
	waitTimeout  time.Duration
	waitInterval time.Duration

	mu       sync.Mutex
	state    State
	owner    Owner // context holding exclusive use; lender while borrowed
	borrower Owner // context currently borrowing, if any
	pool     *Pool // pool this session belongs to, if any
}

// NewCore returns a Core configured from the builder's key and options.
// Builders call this when constructing a session instance.
func NewCore(b Builder) *Core {
	opts := b.Options().withDefaults()
	return &Core{
		key:          b.Key(),
		shareable:    opts.Shareable,
		waitTimeout:  opts.WaitTimeout,
		waitInterval: opts.WaitInterval,
	}
}

// core seals the Session interface to types embedding *Core.
func (c *Core) core() *Core { return c }

// Key returns the session's (type, name) identity.
func (c *Core) Key() Key { return c.key }

// Name returns the session's name, empty if unnamed.
func (c *Core) Name() string { return c.key.Name }

// Shareable reports whether ancestor contexts may lend this session to
// descendants via borrowing.
func (c *Core) Shareable() bool { return c.shareable }

// WaitTimeout returns the wait window used when retrying a borrow of
// this session.
func (c *Core) WaitTimeout() time.Duration { return c.waitTimeout }

// WaitInterval returns the polling interval used when retrying a borrow
// of this session.
func (c *Core) WaitInterval() time.Duration { return c.waitInterval }

// State returns the current lifecycle state.
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether the session started successfully and has not
// been disposed.
func (c *Core) Active() bool { return c.State() == StateActive }

// Owner returns the context currently holding exclusive use of the
// session: the borrower while borrowed, otherwise the owning context.
// Nil means the session is idle or pooled.
func (c *Core) Owner() Owner {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.borrower != nil {
		return c.borrower
	}
	return c.owner
}

// Borrower returns the context currently borrowing the session, or nil.
func (c *Core) Borrower() Owner {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.borrower
}

// GiveTo atomically makes o the session's owning context. It fails if a
// different context already owns the session and the session is not
// shareable.
func (c *Core) GiveTo(o Owner) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisposed {
		return fmt.Errorf("give session %s: %w", c.key, ErrDisposed)
	}
	if c.owner != nil && c.owner.ID() != o.ID() && !c.shareable {
		return fmt.Errorf("session %s is already owned by context %s", c.key, c.owner.ID())
	}
	c.owner = o
	return nil
}

// TryBorrowTo attempts to lend the session to o. It returns false,
// without error, if the session is not shareable, not active, or
// currently borrowed by another context, so callers can poll it.
func (c *Core) TryBorrowTo(o Owner) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.shareable || c.state != StateActive {
		return false
	}
	if c.borrower != nil {
		return false
	}
	c.borrower = o
	return true
}

// transition moves the state from want to next, returning an error
// describing the actual state otherwise.
func (c *Core) transition(want, next State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != want {
		if c.state == StateDisposed {
			return fmt.Errorf("session %s: %w", c.key, ErrDisposed)
		}
		return fmt.Errorf("session %s is %s, expected %s", c.key, c.state, want)
	}
	c.state = next
	return nil
}

func (c *Core) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
