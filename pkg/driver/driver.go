// Package driver provides a Playwright-backed browser session for the
// context tree: a PageSession owns one browser process with an isolated
// browser context and page, and a Builder produces them with the wait
// and pool settings the core consumes.
//
// The Playwright runtime itself is shared by all sessions in the
// process. It is started lazily by the first builder and torn down
// explicitly with Stop, typically after the root context is disposed.
package driver

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

var (
	runtimeMu sync.Mutex
	pw        *playwright.Playwright
)

// Start installs (if needed) and launches the shared Playwright runtime.
// Calling it again after a successful start is a no-op. Driver output is
// discarded so it cannot interleave with test output.
func Start() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if pw != nil {
		return nil
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	p, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	pw = p
	return nil
}

// Stop tears down the shared Playwright runtime. Sessions must be
// disposed first; stopping with live sessions kills their browsers.
func Stop() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if pw == nil {
		return nil
	}
	if err := pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	pw = nil
	return nil
}

// runtime returns the shared Playwright instance, starting it if needed.
func runtime() (*playwright.Playwright, error) {
	if err := Start(); err != nil {
		return nil, err
	}
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	return pw, nil
}
