package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrDisposed is returned when an operation targets a session, pool, or
// context that has already been torn down.
var ErrDisposed = errors.New("already disposed")

// NotFoundError indicates that no builder, owned session, or shareable
// candidate matches a requested key. It is raised immediately, without
// waiting: "never existed" and "exists but busy" are distinct failures.
type NotFoundError struct {
	Key Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no session found for %s", e.Key)
}

// PoolNotFoundError indicates that no pool with the requested key is
// registered on the context or any of its ancestors.
type PoolNotFoundError struct {
	Key Key
}

func (e *PoolNotFoundError) Error() string {
	return fmt.Sprintf("no session pool found for %s", e.Key)
}

// ValidationError indicates invalid builder or pool configuration.
// It is raised eagerly at pool-start time, never deferred to a checkout.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid session configuration: %s", e.Reason)
}

// TimeoutError indicates that a borrow or pool checkout exceeded its
// wait window. It carries the unmet key and the elapsed wait so callers
// can tell "too few pool slots" from "no shareable session published".
type TimeoutError struct {
	Key     Key
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for session %s after %s", e.Key, e.Elapsed.Round(time.Millisecond))
}
