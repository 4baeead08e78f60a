package driver

import (
	"context"

	"github.com/entrhq/attest/pkg/session"
)

// Builder produces PageSessions for the context tree. Register one on a
// context (or start a pool from it) and acquire sessions through the
// context API:
//
//	b := &driver.Builder{
//	    Session: session.Options{Name: "main", Shareable: true},
//	    Browser: driver.Options{Headless: true},
//	}
//	c.Sessions().AddBuilder(b)
//	s, err := testctx.BuildSession[*driver.PageSession](ctx, c, "main")
type Builder struct {
	// Session carries naming, shareability, borrow wait tuning, and
	// pool capacities.
	Session session.Options

	// Browser carries the launch settings for produced sessions.
	Browser Options
}

// Key returns the (PageSession, name) identity of produced sessions.
func (b *Builder) Key() session.Key {
	return session.KeyFor[*PageSession](b.Session.Name)
}

// Options returns the builder's session settings.
func (b *Builder) Options() session.Options {
	return b.Session
}

// Build constructs a new, not-yet-started PageSession.
func (b *Builder) Build(_ context.Context) (session.Session, error) {
	return &PageSession{
		Core: session.NewCore(b),
		opts: b.Browser.withDefaults(),
	}, nil
}
