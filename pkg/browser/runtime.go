// Package browser wraps Playwright with the session model the farm needs:
// one persistent browser profile per account, opened with the account's
// proxy, and page helpers whose waits unwind promptly when the page goes
// away under them.
package browser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/junefarm/farmer/pkg/accounts"
)

// Runtime owns the shared Playwright instance and the directory holding
// per-account profile state.
type Runtime struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	profileDir  string
	initialized bool
}

// NewRuntime creates a runtime storing profiles under baseDir.
func NewRuntime(baseDir string) *Runtime {
	return &Runtime{profileDir: baseDir}
}

// Initialize installs (if needed) and starts Playwright. Must be called
// before opening profiles; safe to call more than once.
func (r *Runtime) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
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

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	r.pw = pw
	r.initialized = true
	return nil
}

// ProfileOptions configures a persistent profile launch.
type ProfileOptions struct {
	// Email identifies the account; it names the profile directory.
	Email string

	// Proxy routes the browser through the account's proxy when set.
	Proxy *accounts.Proxy

	// Headless runs the browser without a window.
	Headless bool

	// Timeout is the default per-operation timeout in milliseconds.
	Timeout float64
}

// DefaultTimeout is the default Playwright operation timeout (ms).
const DefaultTimeout = 30000

var unsafeProfileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// ProfilePath returns the durable profile directory for an email.
func (r *Runtime) ProfilePath(email string) string {
	return filepath.Join(r.profileDir, unsafeProfileChars.ReplaceAllString(email, "_"))
}

// HasProfile reports whether durable session state exists for an email.
func (r *Runtime) HasProfile(email string) bool {
	info, err := os.Stat(r.ProfilePath(email))
	return err == nil && info.IsDir()
}

// OpenProfile launches a persistent browser context for the account and
// returns a session bound to its first page.
func (r *Runtime) OpenProfile(opts ProfileOptions) (*Session, error) {
	r.mu.Lock()
	pw := r.pw
	initialized := r.initialized
	r.mu.Unlock()

	if !initialized {
		return nil, fmt.Errorf("browser runtime not initialized")
	}

	userDataDir := r.ProfilePath(opts.Email)
	if err := os.MkdirAll(userDataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create profile dir: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Locale:   playwright.String("en-US"),
		Args: []string{
			"--start-maximized",
			"--no-sandbox",
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
		},
	}

	if opts.Proxy != nil {
		proxy := &playwright.Proxy{Server: opts.Proxy.Server()}
		if opts.Proxy.HasCredentials() {
			proxy.Username = playwright.String(opts.Proxy.Username)
			proxy.Password = playwright.String(opts.Proxy.Password)
		}
		launchOpts.Proxy = proxy
	}

	context, err := pw.Chromium.LaunchPersistentContext(userDataDir, launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch profile for %s: %w", opts.Email, err)
	}

	var page playwright.Page
	if pages := context.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = context.NewPage()
		if err != nil {
			_ = context.Close()
			return nil, fmt.Errorf("failed to open page for %s: %w", opts.Email, err)
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	page.SetDefaultTimeout(timeout)

	return &Session{
		Email:   opts.Email,
		context: context,
		page:    page,
	}, nil
}

// Close stops Playwright. Open sessions should be closed first.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized || r.pw == nil {
		return nil
	}
	r.initialized = false
	if err := r.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
