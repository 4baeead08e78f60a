package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/multierr"

	"github.com/entrhq/attest/pkg/session"
)

// Default values for browser sessions.
const (
	DefaultTimeout        = 30000.0 // milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Options configures the browser behind a PageSession.
type Options struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// Viewport sets the initial viewport size.
	Viewport *Viewport

	// Timeout sets the default timeout for page operations, in
	// milliseconds. Zero means DefaultTimeout.
	Timeout float64
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.Viewport == nil {
		o.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// PageSession is a browser session managed by the context tree: one
// browser process with an isolated browser context and a single page.
// Lifecycle, ownership, borrowing, and pooling are handled by the
// embedded session core; this type only acquires and releases the
// Playwright resources.
type PageSession struct {
	*session.Core

	opts       Options
	browser    playwright.Browser
	browserCtx playwright.BrowserContext
	page       playwright.Page

	createdAt  time.Time
	lastUsedAt time.Time
	currentURL string
}

// Open launches the browser and creates the browser context and page.
func (s *PageSession) Open(_ context.Context) error {
	rt, err := runtime()
	if err != nil {
		return err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &s.opts.Headless,
	}
	browser, err := rt.Chromium.Launch(launchOpts)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  s.opts.Viewport.Width,
			Height: s.opts.Viewport.Height,
		},
	}
	browserCtx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(s.opts.Timeout)

	now := time.Now()
	s.browser = browser
	s.browserCtx = browserCtx
	s.page = page
	s.createdAt = now
	s.lastUsedAt = now
	s.currentURL = "about:blank"
	return nil
}

// Close tears the page, browser context, and browser down. Every close
// is attempted; errors are combined.
func (s *PageSession) Close(_ context.Context) error {
	var errs error
	if s.page != nil {
		errs = multierr.Append(errs, s.page.Close())
	}
	if s.browserCtx != nil {
		errs = multierr.Append(errs, s.browserCtx.Close())
	}
	if s.browser != nil {
		errs = multierr.Append(errs, s.browser.Close())
	}
	return errs
}

// Page returns the session's page for page-object collaborators.
func (s *PageSession) Page() playwright.Page {
	s.touch()
	return s.page
}

// Navigate navigates the session's page to the specified URL.
func (s *PageSession) Navigate(url string) error {
	s.touch()
	if _, err := s.page.Goto(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	s.currentURL = s.page.URL()
	return nil
}

// CurrentURL returns the URL of the current page.
func (s *PageSession) CurrentURL() string { return s.currentURL }

// CreatedAt returns when the underlying browser was launched.
func (s *PageSession) CreatedAt() time.Time { return s.createdAt }

// LastUsedAt returns the timestamp of the last page operation.
func (s *PageSession) LastUsedAt() time.Time { return s.lastUsedAt }

// touch updates the last-used timestamp.
func (s *PageSession) touch() { s.lastUsedAt = time.Now() }
