// Package config defines the configuration surface inherited along the
// execution-context tree: retry defaults, session wait tuning, the
// artifacts path template, the variable map, and culture. Values set on
// a parent context flow to children unless overridden; per-test
// overrides are selected by glob patterns matched against the test's
// full name.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// Default values applied when a setting is left unset at the root.
const (
	DefaultRetryTimeout        = 5 * time.Second
	DefaultRetryInterval       = 500 * time.Millisecond
	DefaultSessionWaitTimeout  = 5 * time.Second
	DefaultSessionWaitInterval = 200 * time.Millisecond
	DefaultArtifactsTemplate   = "{artifacts-root}/{run-id}"
	DefaultCulture             = "en-US"
)

// Retry holds a timeout/interval pair for polling waits.
type Retry struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Artifacts configures where collaborators store files produced during a
// context's lifetime. The core only computes paths; it never writes.
type Artifacts struct {
	// RootTemplate is expanded with the context's variables, e.g.
	// "{artifacts-root}/{run-id}/{test-name}".
	RootTemplate string
}

// Override applies alternate settings to contexts whose test full name
// matches a glob pattern, e.g. "Checkout/*" or "*Smoke*".
type Override struct {
	// Match is the glob pattern tested against TestInfo.FullName.
	Match string

	// Non-nil fields replace the inherited values for matching contexts.
	Retry       *Retry
	SessionWait *Retry
	Variables   map[string]string
	Culture     string

	// compiled is the matcher precompiled by Parse. When nil the pattern
	// is compiled per lookup instead of cached: overrides built in code
	// are shared across inheriting contexts, so ForTest must never write
	// to them.
	compiled glob.Glob
}

// matcher returns the override's glob matcher, compiling the pattern
// when no precompiled one is present.
func (o *Override) matcher() (glob.Glob, error) {
	if o.compiled != nil {
		return o.compiled, nil
	}
	g, err := glob.Compile(o.Match, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid override pattern %q: %w", o.Match, err)
	}
	return g, nil
}

// Config is the snapshot of settings a context operates under. Each
// context holds its own immutable copy, derived from its parent's at
// build time.
type Config struct {
	// Retry governs general condition waits (element/state polling by
	// collaborators).
	Retry Retry

	// SessionWait governs borrow retries and pool checkout waits.
	SessionWait Retry

	// Artifacts configures the artifacts path template.
	Artifacts Artifacts

	// Variables is a free-form map available for template expansion and
	// collaborator use.
	Variables map[string]string

	// Culture is the BCP 47 tag collaborators use for formatting.
	Culture string

	// Overrides are per-test setting replacements, applied in order.
	Overrides []Override
}

// Default returns the root configuration with all defaults applied.
func Default() Config {
	return Config{
		Retry:       Retry{Timeout: DefaultRetryTimeout, Interval: DefaultRetryInterval},
		SessionWait: Retry{Timeout: DefaultSessionWaitTimeout, Interval: DefaultSessionWaitInterval},
		Artifacts:   Artifacts{RootTemplate: DefaultArtifactsTemplate},
		Variables:   map[string]string{},
		Culture:     DefaultCulture,
	}
}

// Inherit derives a child configuration from a parent: zero-valued child
// settings take the parent's value, variables are merged with the child
// winning on conflicts, and the parent's overrides carry over when the
// child declares none.
func Inherit(parent, child Config) Config {
	out := child
	if out.Retry.Timeout == 0 {
		out.Retry.Timeout = parent.Retry.Timeout
	}
	if out.Retry.Interval == 0 {
		out.Retry.Interval = parent.Retry.Interval
	}
	if out.SessionWait.Timeout == 0 {
		out.SessionWait.Timeout = parent.SessionWait.Timeout
	}
	if out.SessionWait.Interval == 0 {
		out.SessionWait.Interval = parent.SessionWait.Interval
	}
	if out.Artifacts.RootTemplate == "" {
		out.Artifacts.RootTemplate = parent.Artifacts.RootTemplate
	}
	if out.Culture == "" {
		out.Culture = parent.Culture
	}

	vars := make(map[string]string, len(parent.Variables)+len(child.Variables))
	for k, v := range parent.Variables {
		vars[k] = v
	}
	for k, v := range child.Variables {
		vars[k] = v
	}
	out.Variables = vars

	if len(out.Overrides) == 0 {
		out.Overrides = parent.Overrides
	}
	return out
}

// ForTest returns the configuration with every override whose pattern
// matches the test full name applied, in declaration order.
func (c Config) ForTest(fullName string) (Config, error) {
	out := c
	for i := range c.Overrides {
		o := &c.Overrides[i]
		m, err := o.matcher()
		if err != nil {
			return Config{}, err
		}
		if !m.Match(fullName) {
			continue
		}
		if o.Retry != nil {
			out.Retry = *o.Retry
		}
		if o.SessionWait != nil {
			out.SessionWait = *o.SessionWait
		}
		if o.Culture != "" {
			out.Culture = o.Culture
		}
		if len(o.Variables) > 0 {
			vars := make(map[string]string, len(out.Variables)+len(o.Variables))
			for k, v := range out.Variables {
				vars[k] = v
			}
			for k, v := range o.Variables {
				vars[k] = v
			}
			out.Variables = vars
		}
	}
	return out, nil
}

// ArtifactsPath expands the artifacts template with the configuration's
// variables plus the given extras (extras win on conflicts). Unknown
// {placeholders} are left as-is so misconfiguration shows up in the
// resulting path rather than being silently dropped.
func (c Config) ArtifactsPath(extras map[string]string) string {
	pairs := make([]string, 0, 2*(len(c.Variables)+len(extras)))
	for k, v := range c.Variables {
		if _, shadowed := extras[k]; shadowed {
			continue
		}
		pairs = append(pairs, "{"+k+"}", v)
	}
	for k, v := range extras {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(c.Artifacts.RootTemplate)
}
