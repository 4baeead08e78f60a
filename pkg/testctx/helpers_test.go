package testctx

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/entrhq/attest/pkg/logging"
	"github.com/entrhq/attest/pkg/session"
)

// fakeSession is an in-memory session for exercising the context tree
// without external resources.
type fakeSession struct {
	*session.Core
	openErr  error
	closeErr error
	closes   atomic.Int32
}

func (s *fakeSession) Open(context.Context) error { return s.openErr }

func (s *fakeSession) Close(context.Context) error {
	s.closes.Add(1)
	return s.closeErr
}

// fakeBuilder produces fakeSessions.
type fakeBuilder struct {
	opts    session.Options
	openErr error
	built   atomic.Int32
}

func (b *fakeBuilder) Key() session.Key         { return session.KeyFor[*fakeSession](b.opts.Name) }
func (b *fakeBuilder) Options() session.Options { return b.opts }

func (b *fakeBuilder) Build(context.Context) (session.Session, error) {
	b.built.Add(1)
	return &fakeSession{Core: session.NewCore(b), openErr: b.openErr}, nil
}

// poolFakeBuilder returns a poolable fakeBuilder with the given
// capacities.
func poolFakeBuilder(capacity, initial int) *fakeBuilder {
	return &fakeBuilder{opts: session.Options{
		Pool: session.PoolOptions{MaxCapacity: capacity, InitialCapacity: initial},
	}}
}

// altSession is a second session type for type-keyed lookups.
type altSession struct {
	*session.Core
}

func (s *altSession) Open(context.Context) error  { return nil }
func (s *altSession) Close(context.Context) error { return nil }

type altBuilder struct {
	opts session.Options
}

func (b *altBuilder) Key() session.Key         { return session.KeyFor[*altSession](b.opts.Name) }
func (b *altBuilder) Options() session.Options { return b.opts }

func (b *altBuilder) Build(context.Context) (session.Session, error) {
	return &altSession{Core: session.NewCore(b)}, nil
}

// buildRoot builds a quiet root context and disposes it on test cleanup.
func buildRoot(t *testing.T, opts ...Option) *Context {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Nop())}, opts...)
	c, err := Build(context.Background(), nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Dispose(context.Background()) })
	return c
}

// buildChild builds a quiet child of parent and disposes it on cleanup.
func buildChild(t *testing.T, parent *Context, opts ...Option) *Context {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Nop())}, opts...)
	c, err := Build(context.Background(), parent, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Dispose(context.Background()) })
	return c
}
