package session

import (
	"context"
	"fmt"
	"time"
)

// Default wait settings applied to builders that do not set their own.
// They govern how long a borrower retries a busy shareable session and
// how long a pool checkout waits for a slot.
const (
	DefaultWaitTimeout  = 5 * time.Second
	DefaultWaitInterval = 200 * time.Millisecond
)

// PoolOptions configures pooling for a builder's session kind.
// The zero value means the builder is not poolable.
type PoolOptions struct {
	// InitialCapacity is the number of sessions created eagerly when the
	// pool starts. Must be between 0 and MaxCapacity.
	InitialCapacity int

	// MaxCapacity bounds the number of concurrently existing sessions
	// for this key, fixed at pool creation.
	MaxCapacity int

	// FillInParallel creates the initial sessions concurrently, to
	// pre-warm expensive resources faster.
	FillInParallel bool
}

// Validate rejects invalid capacity configuration. Violations are a
// programming error surfaced at pool-start time, never at checkout.
func (o PoolOptions) Validate() error {
	if o.MaxCapacity < 1 {
		return &ValidationError{Reason: fmt.Sprintf("pool max capacity must be at least 1, got %d", o.MaxCapacity)}
	}
	if o.InitialCapacity < 0 || o.InitialCapacity > o.MaxCapacity {
		return &ValidationError{Reason: fmt.Sprintf(
			"pool initial capacity must be between 0 and %d, got %d", o.MaxCapacity, o.InitialCapacity)}
	}
	return nil
}

// Options carries the per-kind settings a builder hands to the core:
// naming, shareability, borrow wait tuning, and pooling.
type Options struct {
	// Name distinguishes sessions of the same type. Empty means unnamed.
	Name string

	// Shareable allows descendant contexts to borrow the session.
	Shareable bool

	// WaitTimeout bounds borrow retries and pool checkout waits.
	// Zero means DefaultWaitTimeout.
	WaitTimeout time.Duration

	// WaitInterval is the polling interval for borrow retries.
	// Zero means DefaultWaitInterval.
	WaitInterval time.Duration

	// Pool configures pooling; the zero value disables it.
	Pool PoolOptions
}

// withDefaults fills zero wait settings with the package defaults.
func (o Options) withDefaults() Options {
	if o.WaitTimeout == 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	if o.WaitInterval == 0 {
		o.WaitInterval = DefaultWaitInterval
	}
	return o
}

// Builder is a registered factory for one (type, name) session kind.
// Builders are registered on a context without building anything; the
// context invokes Build when a session is first needed, directly or
// through a pool.
type Builder interface {
	// Key returns the (type, name) identity of the sessions produced.
	Key() Key

	// Options returns the builder's session settings.
	Options() Options

	// Build constructs a new, not-yet-started session instance.
	Build(ctx context.Context) (Session, error)
}
