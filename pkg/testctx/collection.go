package testctx

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/entrhq/attest/pkg/retrywait"
	"github.com/entrhq/attest/pkg/session"
)

// entry records a directly-held session along with how the context came
// to hold it, which determines what teardown does with it.
type entry struct {
	sess   session.Session
	origin session.Origin
}

// Collection is a context's registry of session builders, directly-held
// sessions, and session pools.
//
// Sessions are tracked in two orders over the same set: add order, for
// stable indexed access, and recency order, where the most recently
// made-current session comes first and backs type-based default lookup.
// Recency changes only through MarkCurrent (and the implicit
// mark-current on acquisition), never through lookup.
type Collection struct {
	owner *Context

	mu         sync.RWMutex
	builders   []session.Builder
	byAddition []entry
	byRecency  []session.Session
	pools      map[session.Key]*session.Pool
	disposed   bool
}

func newCollection(owner *Context) *Collection {
	return &Collection{
		owner: owner,
		pools: map[session.Key]*session.Pool{},
	}
}

// AddBuilder registers a session factory without building anything. It
// may be called any time before the owning context is disposed.
func (sc *Collection) AddBuilder(b session.Builder) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.disposed {
		return fmt.Errorf("add builder to context %s: %w", sc.owner.id, session.ErrDisposed)
	}
	sc.builders = append(sc.builders, b)
	return nil
}

// Len returns the number of directly-held sessions.
func (sc *Collection) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.byAddition)
}

// At returns the i-th directly-held session in add order.
func (sc *Collection) At(i int) session.Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.byAddition[i].sess
}

// Add registers an externally built session as directly owned by this
// context. (type, name) uniqueness is enforced among the context's
// direct non-pooled sessions.
func (sc *Collection) Add(s session.Session) error {
	if err := session.CoreOf(s).GiveTo(sc.owner); err != nil {
		return err
	}
	return sc.add(s, session.OriginOwned)
}

// Remove detaches a session from both orderings without disposing it.
func (sc *Collection) Remove(s session.Session) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for i, e := range sc.byAddition {
		if e.sess == s {
			sc.byAddition = append(sc.byAddition[:i], sc.byAddition[i+1:]...)
			break
		}
	}
	for i, r := range sc.byRecency {
		if r == s {
			sc.byRecency = append(sc.byRecency[:i], sc.byRecency[i+1:]...)
			break
		}
	}
}

// MarkCurrent moves a held session to the front of the recency order so
// type-based default lookup returns it.
func (sc *Collection) MarkCurrent(s session.Session) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for i, r := range sc.byRecency {
		if r == s {
			copy(sc.byRecency[1:i+1], sc.byRecency[:i])
			sc.byRecency[0] = s
			return nil
		}
	}
	return fmt.Errorf("session %s is not held by context %s", session.KeyOf(s), sc.owner.id)
}

// add appends a session to both orderings, newest-first in recency.
func (sc *Collection) add(s session.Session, origin session.Origin) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.disposed {
		return fmt.Errorf("add session to context %s: %w", sc.owner.id, session.ErrDisposed)
	}
	key := session.KeyOf(s)
	if origin != session.OriginPooledCheckout {
		for _, e := range sc.byAddition {
			if e.origin != session.OriginPooledCheckout && session.KeyOf(e.sess) == key {
				return fmt.Errorf("session %s already exists in context %s", key, sc.owner.id)
			}
		}
	}
	sc.byAddition = append(sc.byAddition, entry{sess: s, origin: origin})
	sc.byRecency = append([]session.Session{s}, sc.byRecency...)
	return nil
}

// findBuilder returns the first registered builder matching the lookup.
func (sc *Collection) findBuilder(typ reflect.Type, name string, exact bool) session.Builder {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	for _, b := range sc.builders {
		if b.Key().Matches(typ, name, exact) {
			return b
		}
	}
	return nil
}

// build locates a matching builder, invokes it, starts the result, and
// takes ownership of it.
func (sc *Collection) build(ctx context.Context, typ reflect.Type, name string, exact bool) (session.Session, error) {
	b := sc.findBuilder(typ, name, exact)
	if b == nil {
		return nil, &session.NotFoundError{Key: session.Key{Type: typ, Name: name}}
	}

	s, err := b.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build session %s: %w", b.Key(), err)
	}
	if err := session.Start(ctx, s); err != nil {
		return nil, err
	}
	core := session.CoreOf(s)
	if err := core.GiveTo(sc.owner); err != nil {
		errs := multierr.Append(err, session.Dispose(ctx, s))
		return nil, errs
	}
	if err := sc.add(s, session.OriginOwned); err != nil {
		return nil, multierr.Append(err, session.Dispose(ctx, s))
	}
	sc.owner.log.Infof("context %s built session %s", sc.owner.id, core.Key())
	return s, nil
}

// StartPool validates the builder's pool configuration, creates a pool
// keyed by the builder's (type, name), and eagerly fills it to the
// configured initial capacity. Invalid capacities fail here, eagerly.
func (sc *Collection) StartPool(ctx context.Context, b session.Builder) error {
	pool, err := session.NewPool(b)
	if err != nil {
		return err
	}

	sc.mu.Lock()
	if sc.disposed {
		sc.mu.Unlock()
		return fmt.Errorf("start pool on context %s: %w", sc.owner.id, session.ErrDisposed)
	}
	key := pool.Key()
	if _, exists := sc.pools[key]; exists {
		sc.mu.Unlock()
		return fmt.Errorf("pool %s already started on context %s", key, sc.owner.id)
	}
	sc.pools[key] = pool
	sc.mu.Unlock()

	opts := b.Options()
	if err := pool.Fill(ctx, opts.Pool.InitialCapacity, opts.Pool.FillInParallel); err != nil {
		return fmt.Errorf("fill pool %s: %w", key, err)
	}
	sc.owner.log.Infof("context %s started pool %s (capacity=%d, warmed=%d)",
		sc.owner.id, key, pool.Capacity(), opts.Pool.InitialCapacity)
	return nil
}

// findPool returns a pool on this collection matching the lookup.
func (sc *Collection) findPool(typ reflect.Type, name string, exact bool) *session.Pool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if exact {
		return sc.pools[session.Key{Type: typ, Name: name}]
	}
	for key, p := range sc.pools {
		if key.Matches(typ, name, exact) {
			return p
		}
	}
	return nil
}

// findShareable returns the first shareable, directly-owned session
// matching the lookup, in add order. It takes only a snapshot read of
// this collection; availability is not checked here, the caller
// attempts the borrow on the session's own core.
func (sc *Collection) findShareable(typ reflect.Type, name string, exact bool) session.Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	for _, e := range sc.byAddition {
		if e.origin != session.OriginOwned {
			continue
		}
		core := session.CoreOf(e.sess)
		if core.Shareable() && core.Key().Matches(typ, name, exact) {
			return e.sess
		}
	}
	return nil
}

// borrow walks the ancestor chain nearest-first for a shareable session
// matching the lookup. The first candidate found is the only one tried:
// if it is busy, the same candidate is retried at the session's wait
// interval until its wait timeout elapses. A session released elsewhere
// in the chain mid-wait is deliberately not picked up.
func (sc *Collection) borrow(ctx context.Context, typ reflect.Type, name string, exact bool) (session.Session, error) {
	var candidate session.Session
	for a := sc.owner.parent; a != nil; a = a.parent {
		if s := a.sessions.findShareable(typ, name, exact); s != nil {
			candidate = s
			break
		}
	}
	if candidate == nil {
		return nil, &session.NotFoundError{Key: session.Key{Type: typ, Name: name}}
	}

	core := session.CoreOf(candidate)
	start := time.Now()
	if !core.TryBorrowTo(sc.owner) {
		sc.owner.log.Debugf("context %s waiting to borrow session %s", sc.owner.id, core.Key())
		ok := retrywait.Wait(core.WaitTimeout(), core.WaitInterval()).
			Until(ctx, func() bool { return core.TryBorrowTo(sc.owner) })
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("borrow session %s: %w", core.Key(), err)
			}
			return nil, &session.TimeoutError{Key: core.Key(), Elapsed: time.Since(start)}
		}
	}

	if err := sc.add(candidate, session.OriginBorrowed); err != nil {
		return nil, multierr.Append(err, session.Release(ctx, candidate))
	}
	sc.owner.log.Infof("context %s borrowed session %s", sc.owner.id, core.Key())
	return candidate, nil
}

// takeFromPool finds the nearest pool with a matching key (this context
// first, then its ancestors) and checks a session out of it. The
// checkout is tracked by this context for teardown; the pool itself
// stays with its defining context.
func (sc *Collection) takeFromPool(ctx context.Context, typ reflect.Type, name string, exact bool) (session.Session, error) {
	var pool *session.Pool
	for c := sc.owner; c != nil; c = c.parent {
		if p := c.sessions.findPool(typ, name, exact); p != nil {
			pool = p
			break
		}
	}
	if pool == nil {
		return nil, &session.PoolNotFoundError{Key: session.Key{Type: typ, Name: name}}
	}

	s, err := pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	core := session.CoreOf(s)
	if err := core.GiveTo(sc.owner); err != nil {
		return nil, multierr.Append(err, session.Release(ctx, s))
	}
	if err := sc.add(s, session.OriginPooledCheckout); err != nil {
		return nil, multierr.Append(err, session.Release(ctx, s))
	}
	sc.owner.log.Infof("context %s took session %s from pool", sc.owner.id, core.Key())
	return s, nil
}

// find returns the most recently made-current held session matching the
// lookup, nil if none.
func (sc *Collection) find(typ reflect.Type, name string, exact bool) session.Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	for _, s := range sc.byRecency {
		if session.KeyOf(s).Matches(typ, name, exact) {
			return s
		}
	}
	return nil
}

// DisposeAll tears down the collection. Directly-held sessions are
// processed in add order: owned sessions disposed, borrowed sessions
// released back to their lenders, pooled checkouts returned to their
// pools. This collection's pools are then cleared. Every step runs;
// errors are combined.
func (sc *Collection) DisposeAll(ctx context.Context) error {
	sc.mu.Lock()
	if sc.disposed {
		sc.mu.Unlock()
		return nil
	}
	sc.disposed = true
	entries := make([]entry, len(sc.byAddition))
	copy(entries, sc.byAddition)
	pools := make([]*session.Pool, 0, len(sc.pools))
	for _, p := range sc.pools {
		pools = append(pools, p)
	}
	sc.byAddition = nil
	sc.byRecency = nil
	sc.mu.Unlock()

	var errs error
	for _, e := range entries {
		switch e.origin {
		case session.OriginOwned:
			errs = multierr.Append(errs, session.Dispose(ctx, e.sess))
		case session.OriginBorrowed, session.OriginPooledCheckout:
			errs = multierr.Append(errs, session.Release(ctx, e.sess))
		}
	}
	for _, p := range pools {
		errs = multierr.Append(errs, p.Clear(ctx))
	}
	return errs
}
