package testctx

import (
	"context"
	"fmt"
	"reflect"

	"github.com/entrhq/attest/pkg/session"
)

// lookupArgs interprets an optional trailing name argument: absent means
// any name of the type matches.
func lookupArgs(name []string) (string, bool) {
	if len(name) == 0 {
		return "", false
	}
	return name[0], true
}

// as converts a stored session.Session back to its concrete type.
func as[S session.Session](s session.Session) (S, error) {
	out, ok := any(s).(S)
	if !ok {
		var zero S
		return zero, fmt.Errorf("session %s is not a %s", session.KeyOf(s), reflect.TypeOf((*S)(nil)).Elem())
	}
	return out, nil
}

// BuildSession invokes the registered builder for session type S (and
// name, if given) on the context, starts the result, and adds it to the
// context's owned sessions. It fails with a NotFoundError if no matching
// builder is registered.
func BuildSession[S session.Session](ctx context.Context, c *Context, name ...string) (S, error) {
	n, exact := lookupArgs(name)
	s, err := c.sessions.build(ctx, reflect.TypeOf((*S)(nil)).Elem(), n, exact)
	if err != nil {
		var zero S
		return zero, err
	}
	return as[S](s)
}

// Borrow takes temporary exclusive use of a shareable session of type S
// (and name, if given) from the nearest ancestor that owns one. The
// first candidate found is retried until available or its wait window
// elapses; if no shareable candidate exists anywhere in the chain a
// NotFoundError is returned immediately.
func Borrow[S session.Session](ctx context.Context, c *Context, name ...string) (S, error) {
	n, exact := lookupArgs(name)
	s, err := c.sessions.borrow(ctx, reflect.TypeOf((*S)(nil)).Elem(), n, exact)
	if err != nil {
		var zero S
		return zero, err
	}
	return as[S](s)
}

// TakeFromPool checks a session of type S (and name, if given) out of
// the nearest pool with a matching key, starting at the context itself
// and walking ancestors. The checkout counts against the pool's capacity
// until the context releases or is disposed.
func TakeFromPool[S session.Session](ctx context.Context, c *Context, name ...string) (S, error) {
	n, exact := lookupArgs(name)
	s, err := c.sessions.takeFromPool(ctx, reflect.TypeOf((*S)(nil)).Elem(), n, exact)
	if err != nil {
		var zero S
		return zero, err
	}
	return as[S](s)
}

// Get returns the most recently made-current direct session of type S
// (and name, if given) held by the context. It fails with a
// NotFoundError if the context holds none.
func Get[S session.Session](c *Context, name ...string) (S, error) {
	n, exact := lookupArgs(name)
	typ := reflect.TypeOf((*S)(nil)).Elem()
	if s := c.sessions.find(typ, n, exact); s != nil {
		return as[S](s)
	}
	var zero S
	return zero, &session.NotFoundError{Key: session.Key{Type: typ, Name: n}}
}

// GetRecursive is Get extended to the ancestor chain: the context's own
// sessions are consulted first, then each ancestor's, nearest first.
func GetRecursive[S session.Session](c *Context, name ...string) (S, error) {
	n, exact := lookupArgs(name)
	typ := reflect.TypeOf((*S)(nil)).Elem()
	for cc := c; cc != nil; cc = cc.parent {
		if s := cc.sessions.find(typ, n, exact); s != nil {
			return as[S](s)
		}
	}
	var zero S
	return zero, &session.NotFoundError{Key: session.Key{Type: typ, Name: n}}
}
