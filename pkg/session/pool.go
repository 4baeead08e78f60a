package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// Pool is a bounded, keyed cache of idle sessions of one (type, name)
// kind. It bounds the number of concurrently live expensive resources
// (for example browser processes) while avoiding head-of-line blocking
// when idle capacity exists.
//
// The invariant outstanding + len(idle) <= capacity holds after every
// Fill, Take, and Give: a checkout either reuses an idle session or,
// only under capacity, creates a new one; otherwise the caller waits on
// the pool's condition variable until a session is returned or the wait
// window elapses.
type Pool struct {
	key          Key
	capacity     int
	builder      Builder
	waitTimeout  time.Duration
	waitInterval time.Duration

	mu          sync.Mutex
	cond        *sync.Cond
	idle        []Session
	outstanding int
	cleared     bool
}

// NewPool creates an empty pool for the builder's session kind.
// Capacity configuration is validated eagerly; an invalid configuration
// is rejected here, never surfaced as a runtime race at checkout.
func NewPool(b Builder) (*Pool, error) {
	opts := b.Options().withDefaults()
	if err := opts.Pool.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		key:          b.Key(),
		capacity:     opts.Pool.MaxCapacity,
		builder:      b,
		waitTimeout:  opts.WaitTimeout,
		waitInterval: opts.WaitInterval,
	}
	p.cond = sync.NewCond(&p.mu)
	return p, nil
}

// Key returns the pool's (type, name) key.
func (p *Pool) Key() Key { return p.key }

// Capacity returns the maximum number of concurrently existing sessions.
func (p *Pool) Capacity() int { return p.capacity }

// Idle returns the number of sessions currently available for checkout.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Outstanding returns the number of sessions currently checked out.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// Fill eagerly creates idle sessions, optionally in parallel, to
// pre-warm expensive resources at pool-start time. It fails fast if n
// exceeds the pool's capacity; otherwise n is capped to the free slots,
// so checkouts that raced ahead of the fill are counted and the pool
// never exceeds capacity. Build failures do not abort the other
// creations; all errors are combined.
func (p *Pool) Fill(ctx context.Context, n int, parallel bool) error {
	if n > p.capacity {
		return &ValidationError{Reason: fmt.Sprintf(
			"cannot fill pool %s with %d sessions, capacity is %d", p.key, n, p.capacity)}
	}
	if n <= 0 {
		return nil
	}

	p.mu.Lock()
	if free := p.capacity - p.outstanding - len(p.idle); n > free {
		n = free
	}
	if n <= 0 {
		p.mu.Unlock()
		return nil
	}
	// Reserve the slots so concurrent checkouts cannot push the pool
	// past capacity while the builds run unlocked.
	p.outstanding += n
	p.mu.Unlock()

	built := make([]Session, n)
	errs := make([]error, n)
	if parallel {
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				built[i], errs[i] = p.newSession(ctx)
			}(i)
		}
		wg.Wait()
	} else {
		for i := 0; i < n; i++ {
			built[i], errs[i] = p.newSession(ctx)
		}
	}

	p.mu.Lock()
	p.outstanding -= n
	for _, s := range built {
		if s != nil {
			p.idle = append(p.idle, s)
		}
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	return multierr.Combine(errs...)
}

// Take checks a session out of the pool. An idle session is reused when
// one exists; otherwise a new session is built if the pool is under
// capacity; otherwise the caller waits until a session is released back
// or the pool's wait window elapses, in which case a TimeoutError is
// returned. Cancelling ctx stops the wait immediately.
func (p *Pool) Take(ctx context.Context) (Session, error) {
	start := time.Now()
	deadline := start.Add(p.waitTimeout)

	timer := time.NewTimer(p.waitTimeout)
	defer timer.Stop()

	// Wake blocked waiters on cancellation or deadline so they can
	// re-evaluate instead of sleeping on the condition variable forever.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.cond.Broadcast()
		case <-timer.C:
			p.cond.Broadcast()
		case <-done:
		}
	}()

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("take from pool %s: %w", p.key, err)
		}
		if p.cleared {
			return nil, fmt.Errorf("take from pool %s: %w", p.key, ErrDisposed)
		}

		if n := len(p.idle); n > 0 {
			s := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.outstanding++
			return s, nil
		}

		if p.outstanding+len(p.idle) < p.capacity {
			// Reserve the slot before building so concurrent takers
			// cannot exceed capacity while the build runs unlocked.
			p.outstanding++
			p.mu.Unlock()
			s, err := p.newSession(ctx)
			p.mu.Lock()
			if err != nil {
				p.outstanding--
				p.cond.Signal()
				return nil, fmt.Errorf("take from pool %s: %w", p.key, err)
			}
			return s, nil
		}

		if !time.Now().Before(deadline) {
			return nil, &TimeoutError{Key: p.key, Elapsed: time.Since(start)}
		}
		p.cond.Wait()
	}
}

// Give returns a previously taken session to the idle set. If the pool
// has been cleared in the meantime the session is disposed instead of
// requeued.
func (p *Pool) Give(ctx context.Context, s Session) error {
	p.mu.Lock()
	if p.cleared {
		p.mu.Unlock()
		return Dispose(ctx, s)
	}
	p.outstanding--
	p.idle = append(p.idle, s)
	p.cond.Signal()
	p.mu.Unlock()
	return nil
}

// Clear tears the pool down: idle sessions are disposed and waiters are
// woken with an error. In-flight checkouts are left to their holders,
// whose release will dispose instead of requeue. Disposal is
// best-effort; every idle session is attempted and errors are combined.
func (p *Pool) Clear(ctx context.Context) error {
	p.mu.Lock()
	if p.cleared {
		p.mu.Unlock()
		return nil
	}
	p.cleared = true
	idle := p.idle
	p.idle = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	var errs error
	for _, s := range idle {
		errs = multierr.Append(errs, Dispose(ctx, s))
	}
	return errs
}

// newSession builds and starts a fresh pool-bound session.
func (p *Pool) newSession(ctx context.Context) (Session, error) {
	s, err := p.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	s.core().pool = p
	if err := Start(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
