// Package retrywait provides a poll-until-condition-or-timeout primitive.
//
// It underlies session borrowing and pool checkout waits: callers poll a
// condition against freshly-read state at a fixed interval until the
// condition holds, the timeout elapses, or the context is cancelled. The
// primitive itself never returns an error; callers that need a hard
// failure turn a false result into a typed timeout error themselves.
package retrywait

import (
	"context"
	"time"
)

// Waiter polls a condition at a fixed interval until it succeeds or the
// timeout elapses. The zero value evaluates the condition exactly once.
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
}

// Wait returns a Waiter with the given timeout and interval.
// A zero timeout evaluates the condition exactly once. The interval
// lower-bounds the delay between evaluations.
func Wait(timeout, interval time.Duration) Waiter {
	return Waiter{timeout: timeout, interval: interval}
}

// Timeout returns the configured timeout.
func (w Waiter) Timeout() time.Duration { return w.timeout }

// Interval returns the configured interval.
func (w Waiter) Interval() time.Duration { return w.interval }

// Until repeatedly evaluates cond until it returns true or the timeout
// elapses. It returns true on the first successful evaluation and false
// once the elapsed time exceeds the timeout or ctx is cancelled. The
// condition is always evaluated at least once, even with a zero timeout.
func (w Waiter) Until(ctx context.Context, cond func() bool) bool {
	deadline := time.Now().Add(w.timeout)

	for {
		if ctx.Err() != nil {
			return false
		}
		if cond() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}

		timer := time.NewTimer(w.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
