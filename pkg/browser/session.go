package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ErrPageClosed reports that the page went away mid-operation, e.g. because
// the user closed the window. Callers treat it as a clean unwind signal for
// the owning session, never as a retryable failure.
var ErrPageClosed = errors.New("page closed")

// Session is one account's live browser: a persistent context and its page.
type Session struct {
	Email   string
	context playwright.BrowserContext
	page    playwright.Page
}

// Page exposes the underlying Playwright page for collaborators that need
// direct access, such as the points watcher.
func (s *Session) Page() playwright.Page {
	return s.page
}

// IsClosed reports whether the page is gone.
func (s *Session) IsClosed() bool {
	return s.page.IsClosed()
}

// Close tears down the browser context.
func (s *Session) Close() error {
	if err := s.context.Close(); err != nil {
		return fmt.Errorf("failed to close context for %s: %w", s.Email, err)
	}
	return nil
}

// guard returns ErrPageClosed when the page is gone, so every operation
// observes closure before touching the driver.
func (s *Session) guard() error {
	if s.page.IsClosed() {
		return ErrPageClosed
	}
	return nil
}

// Navigate loads the given URL.
func (s *Session) Navigate(url string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if _, err := s.page.Goto(url); err != nil {
		if s.page.IsClosed() {
			return ErrPageClosed
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// WaitForSelector waits until the selector is visible.
func (s *Session) WaitForSelector(selector string, timeout time.Duration) error {
	if err := s.guard(); err != nil {
		return err
	}
	state := playwright.WaitForSelectorState("visible")
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   &state,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		if s.page.IsClosed() {
			return ErrPageClosed
		}
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

// HasSelector reports whether an element currently matches the selector.
func (s *Session) HasSelector(selector string) bool {
	if s.page.IsClosed() {
		return false
	}
	el, err := s.page.QuerySelector(selector)
	return err == nil && el != nil
}

// InnerText returns the rendered text of the first match.
func (s *Session) InnerText(selector string) (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}
	text, err := s.page.InnerText(selector)
	if err != nil {
		if s.page.IsClosed() {
			return "", ErrPageClosed
		}
		return "", fmt.Errorf("inner text of %q failed: %w", selector, err)
	}
	return text, nil
}

// CursorStyle returns the computed cursor style of the first match, used to
// detect disabled inputs rendered as cursor: not-allowed.
func (s *Session) CursorStyle(selector string) (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}
	result, err := s.page.EvalOnSelector(selector, "el => window.getComputedStyle(el).cursor", nil)
	if err != nil {
		if s.page.IsClosed() {
			return "", ErrPageClosed
		}
		return "", fmt.Errorf("cursor style of %q failed: %w", selector, err)
	}
	style, _ := result.(string)
	return style, nil
}

// Evaluate runs a script in the page.
func (s *Session) Evaluate(expression string, args ...any) (any, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	result, err := s.page.Evaluate(expression, args...)
	if err != nil {
		if s.page.IsClosed() {
			return nil, ErrPageClosed
		}
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}

// ExposeFunction registers a page-callable Go function.
func (s *Session) ExposeFunction(name string, fn func(args ...any) any) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.page.ExposeFunction(name, fn); err != nil {
		return fmt.Errorf("expose %s failed: %w", name, err)
	}
	return nil
}

// OnResponse registers a network response listener.
func (s *Session) OnResponse(fn func(playwright.Response)) {
	s.page.OnResponse(fn)
}

// OnClose registers a page close listener.
func (s *Session) OnClose(fn func()) {
	s.page.OnClose(func(playwright.Page) { fn() })
}

// KeyPress presses and releases a key.
func (s *Session) KeyPress(key string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.page.Keyboard().Down(key); err != nil {
		return fmt.Errorf("key down %s failed: %w", key, err)
	}
	if err := s.page.Keyboard().Up(key); err != nil {
		return fmt.Errorf("key up %s failed: %w", key, err)
	}
	return nil
}

// SetTitle labels the window with the account email so parallel sessions can
// be told apart.
func (s *Session) SetTitle(title string) error {
	_, err := s.Evaluate("(title) => { document.title = title; }", title)
	return err
}

// RaceWinner identifies which selector resolved first in RaceSelectors.
type RaceWinner int

const (
	// RaceNeither means no selector appeared within the bound.
	RaceNeither RaceWinner = iota
	// RaceFirst means the first selector appeared first.
	RaceFirst
	// RaceSecond means the second selector appeared first.
	RaceSecond
)

// RaceSelectors waits for whichever of two selectors becomes visible first.
// The losing wait is abandoned; its eventual result is discarded.
func (s *Session) RaceSelectors(selA, selB string, timeout time.Duration) (RaceWinner, error) {
	if err := s.guard(); err != nil {
		return RaceNeither, err
	}

	type result struct {
		winner RaceWinner
		err    error
	}
	results := make(chan result, 2)

	wait := func(selector string, winner RaceWinner) {
		err := s.WaitForSelector(selector, timeout)
		results <- result{winner: winner, err: err}
	}
	go wait(selA, RaceFirst)
	go wait(selB, RaceSecond)

	var firstErr error
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err == nil {
			return r.winner, nil
		}
		if errors.Is(r.err, ErrPageClosed) {
			return RaceNeither, ErrPageClosed
		}
		if firstErr == nil {
			firstErr = r.err
		}
	}
	return RaceNeither, fmt.Errorf("neither selector appeared: %w", firstErr)
}
