package testctx

import (
	"context"
	"sync"
)

// The ambient current context is deliberately not a single process-wide
// mutable variable: each logical execution flow carries its own via
// context.Context, so parallel tests never observe each other's. The
// process-wide slot below holds only the root, set when the first
// parentless context is built and cleared on its disposal.

type currentKey struct{}

var (
	globalMu  sync.Mutex
	globalCtx *Context
)

// With returns a derived context.Context carrying c as the current
// execution context for the flow.
func With(parent context.Context, c *Context) context.Context {
	return context.WithValue(parent, currentKey{}, c)
}

// From returns the execution context carried by ctx, if any.
func From(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(currentKey{}).(*Context)
	return c, ok
}

// Current resolves the current execution context for a flow: the one
// carried by ctx, falling back to the process root. Nil if neither is
// set.
func Current(ctx context.Context) *Context {
	if c, ok := From(ctx); ok {
		return c
	}
	return Global()
}

// Global returns the process root context, nil if none is active.
func Global() *Context {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalCtx
}

// SetGlobal installs the process root context explicitly.
func SetGlobal(c *Context) {
	globalMu.Lock()
	globalCtx = c
	globalMu.Unlock()
}

// setGlobalIfUnset installs c as the root when no root is active yet.
func setGlobalIfUnset(c *Context) {
	globalMu.Lock()
	if globalCtx == nil {
		globalCtx = c
	}
	globalMu.Unlock()
}

// clearGlobal removes c from the root slot if it is the root.
func clearGlobal(c *Context) {
	globalMu.Lock()
	if globalCtx == c {
		globalCtx = nil
	}
	globalMu.Unlock()
}
