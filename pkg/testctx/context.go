package testctx

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/entrhq/attest/pkg/config"
	"github.com/entrhq/attest/pkg/logging"
	"github.com/entrhq/attest/pkg/session"
)

// State is a context's lifecycle state. States are monotonic: a context
// is never reused after disposal and never becomes a new context's
// parent.
type State int32

const (
	// StateCreated means the context is being assembled by Build.
	StateCreated State = iota

	// StateActive means the context is live and may own sessions and
	// children.
	StateActive

	// StateDisposed means the context and everything it owned have been
	// torn down.
	StateDisposed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Kind values for TestInfo.
const (
	KindGlobal = "global"
	KindSuite  = "suite"
	KindTest   = "test"
)

// TestInfo describes the test or suite a context represents.
type TestInfo struct {
	// Name is the short test or suite name.
	Name string

	// FullName is the fully qualified name, e.g. "Checkout/PlaceOrder".
	// Config overrides are matched against it.
	FullName string

	// Kind is one of KindGlobal, KindSuite, KindTest.
	Kind string
}

// Context is a node in the test-execution hierarchy. It owns exactly one
// session Collection, zero or more child contexts, and a back-reference
// to its parent (nil for the root).
type Context struct {
	id     string
	test   TestInfo
	parent *Context
	cfg    config.Config
	log    *logging.Logger

	sessions *Collection

	mu        sync.Mutex
	state     State
	disposing bool
	children  []*Context
}

// ID returns the context's opaque identifier. It also satisfies
// session.Owner.
func (c *Context) ID() string { return c.id }

// Test returns the test/suite descriptor, zero-valued for plain
// contexts.
func (c *Context) Test() TestInfo { return c.test }

// Parent returns the owning context, nil for the root.
func (c *Context) Parent() *Context { return c.parent }

// Sessions returns the context's session collection.
func (c *Context) Sessions() *Collection { return c.sessions }

// Config returns the context's configuration snapshot.
func (c *Context) Config() config.Config { return c.cfg }

// Log returns the context's logger.
func (c *Context) Log() *logging.Logger { return c.log }

// State returns the context's lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Children returns a snapshot of the child contexts in add order.
func (c *Context) Children() []*Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Context, len(c.children))
	copy(out, c.children)
	return out
}

// ArtifactsPath computes the directory collaborators should store this
// context's artifacts under, by expanding the configured template with
// the run id, context id, and test names.
func (c *Context) ArtifactsPath() string {
	return c.cfg.ArtifactsPath(map[string]string{
		"run-id":         logging.GetRunID(),
		"context-id":     c.id,
		"test-name":      c.test.Name,
		"test-full-name": c.test.FullName,
	})
}

// options collects Build settings.
type options struct {
	test      TestInfo
	cfg       config.Config
	logger    *logging.Logger
	configure []func(*Context) error
}

// Option configures a context under construction.
type Option func(*options)

// WithTest attaches a test/suite descriptor. Config overrides matching
// the full name are applied to the context's configuration.
func WithTest(info TestInfo) Option {
	return func(o *options) { o.test = info }
}

// WithConfig overlays explicit configuration on top of the inherited
// one. Zero-valued fields keep the parent's values.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger installs a specific logger instead of the default
// component logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConfigure runs fn against the context after configuration is
// resolved but before it becomes active. This is the place to register
// session builders.
func WithConfigure(fn func(*Context) error) Option {
	return func(o *options) { o.configure = append(o.configure, fn) }
}

// Build allocates a context, applies inherited configuration, runs the
// configure options, activates it, and registers it as a child of
// parent (pass nil for the root). Building under a disposed parent
// fails.
func Build(ctx context.Context, parent *Context, opts ...Option) (*Context, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	base := config.Default()
	if parent != nil {
		if parent.State() == StateDisposed {
			return nil, fmt.Errorf("build context under %s: %w", parent.id, session.ErrDisposed)
		}
		base = parent.cfg
	}
	cfg := config.Inherit(base, o.cfg)
	if o.test.FullName != "" {
		var err error
		cfg, err = cfg.ForTest(o.test.FullName)
		if err != nil {
			return nil, err
		}
	}

	log := o.logger
	if log == nil {
		// NewLogger degrades to a stderr logger on failure, which is
		// still usable, so the error does not abort the build.
		log, _ = logging.NewLogger("testctx")
	}

	c := &Context{
		id:     uuid.NewString(),
		test:   o.test,
		parent: parent,
		cfg:    cfg,
		log:    log,
		state:  StateCreated,
	}
	c.sessions = newCollection(c)

	for _, fn := range o.configure {
		if err := fn(c); err != nil {
			err = fmt.Errorf("configure context: %w", err)
			return nil, multierr.Append(err, c.discard(ctx))
		}
	}

	c.mu.Lock()
	c.state = StateActive
	c.mu.Unlock()

	if parent != nil {
		if err := parent.addChild(c); err != nil {
			// The parent began disposing after the state check above;
			// tear the unregistered context down so sessions built by
			// configure hooks are not leaked.
			return nil, multierr.Append(err, c.discard(ctx))
		}
	} else {
		setGlobalIfUnset(c)
	}

	c.log.Infof("context %s built (kind=%s, test=%q)", c.id, c.test.Kind, c.test.FullName)
	return c, nil
}

// discard tears down a context that failed to finish building: its
// sessions are released or disposed and it is marked disposed without
// touching any parent, since it was never registered as a child.
func (c *Context) discard(ctx context.Context) error {
	err := c.sessions.DisposeAll(ctx)
	c.mu.Lock()
	c.state = StateDisposed
	c.mu.Unlock()
	return err
}

// addChild appends child to the children list, rejecting new children
// once disposal has begun.
func (c *Context) addChild(child *Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisposed || c.disposing {
		return fmt.Errorf("add child to context %s: %w", c.id, session.ErrDisposed)
	}
	c.children = append(c.children, child)
	return nil
}

// removeChild detaches a disposed child.
func (c *Context) removeChild(child *Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cc := range c.children {
		if cc == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

// Dispose tears the context down: children depth-first in add order,
// then the session collection, then detachment from the parent. Every
// step runs even if an earlier one fails; the errors are combined with
// the first failure as the primary. Disposing twice is a no-op.
func (c *Context) Dispose(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateDisposed || c.disposing {
		c.mu.Unlock()
		return nil
	}
	c.disposing = true
	children := make([]*Context, len(c.children))
	copy(children, c.children)
	c.mu.Unlock()

	var errs error
	for _, child := range children {
		errs = multierr.Append(errs, child.Dispose(ctx))
	}
	errs = multierr.Append(errs, c.sessions.DisposeAll(ctx))

	if c.parent != nil {
		c.parent.removeChild(c)
	}

	c.mu.Lock()
	c.state = StateDisposed
	c.mu.Unlock()

	clearGlobal(c)

	if errs != nil {
		c.log.Errorf("context %s disposed with errors: %v", c.id, errs)
	} else {
		c.log.Infof("context %s disposed", c.id)
	}
	return errs
}
