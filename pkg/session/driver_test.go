package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junefarm/farmer/pkg/accounts"
	"github.com/junefarm/farmer/pkg/browser"
	"github.com/junefarm/farmer/pkg/config"
	"github.com/junefarm/farmer/pkg/mailbox"
	"github.com/junefarm/farmer/pkg/points"
)

// fakePage scripts the browser surface so lifecycle decisions run without
// Playwright.
type fakePage struct {
	navErr     error
	raceWinner browser.RaceWinner
	raceErr    error
	selectors  map[string]bool
	cursors    map[string]string
	innerTexts map[string]string

	typed   []string
	clicked []string
	keys    []string
	closed  bool
}

func (f *fakePage) Navigate(string) error { return f.navErr }

func (f *fakePage) WaitForSelector(sel string, _ time.Duration) error {
	if f.selectors[sel] {
		return nil
	}
	return fmt.Errorf("selector %q never appeared", sel)
}

func (f *fakePage) RaceSelectors(_, _ string, _ time.Duration) (browser.RaceWinner, error) {
	return f.raceWinner, f.raceErr
}

func (f *fakePage) HasSelector(sel string) bool { return f.selectors[sel] }

func (f *fakePage) InnerText(sel string) (string, error) {
	if text, ok := f.innerTexts[sel]; ok {
		return text, nil
	}
	return "", fmt.Errorf("no element %q", sel)
}

func (f *fakePage) CursorStyle(sel string) (string, error) {
	if c, ok := f.cursors[sel]; ok {
		return c, nil
	}
	return "auto", nil
}

func (f *fakePage) HumanClick(sel string) error {
	f.clicked = append(f.clicked, sel)
	return nil
}

func (f *fakePage) HumanClickIfExists(sel string) (bool, error) {
	if !f.selectors[sel] {
		return false, nil
	}
	f.clicked = append(f.clicked, sel)
	return true, nil
}

func (f *fakePage) HumanType(text string) error {
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakePage) TypeInto(sel, text string, _ time.Duration) error {
	f.clicked = append(f.clicked, sel)
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakePage) KeyPress(key string) error {
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakePage) SetTitle(string) error { return nil }
func (f *fakePage) IsClosed() bool        { return f.closed }
func (f *fakePage) Close() error          { f.closed = true; return nil }

type fakeMail struct {
	code string
	err  error
}

func (m fakeMail) FetchCode(string, string) (string, error) { return m.code, m.err }

type testLogger struct{ lines []string }

func (l *testLogger) logf(format string, v ...any) { l.lines = append(l.lines, fmt.Sprintf(format, v...)) }
func (l *testLogger) Infof(format string, v ...any) { l.logf(format, v...) }
func (l *testLogger) Warnf(format string, v ...any)  { l.logf(format, v...) }
func (l *testLogger) Errorf(format string, v ...any) { l.logf(format, v...) }
func (l *testLogger) Debugf(format string, v ...any) { l.logf(format, v...) }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Retries = 2
	return cfg
}

func testDriver(t *testing.T, acc accounts.Account, cfg *config.Config, open func() (page, error)) (*Driver, *accounts.Store) {
	t.Helper()
	store := accounts.NewStore(filepath.Join(t.TempDir(), "profiles.json"))
	d := &Driver{
		Email:     acc.Email,
		Account:   acc,
		cfg:       cfg,
		store:     store,
		ledger:    accounts.NewLedger(store, nil),
		mail:      fakeMail{},
		log:       &testLogger{},
		open:      open,
		jitter:    func(min, max time.Duration) {},
		grindWait: 10 * time.Millisecond,
	}
	d.watch = func(p page, baseline *int) (*points.Cell, func(), error) {
		cell := &points.Cell{}
		if baseline != nil {
			cell.Seed(*baseline)
		}
		return cell, func() {}, nil
	}
	return d, store
}

func TestNextTransitions(t *testing.T) {
	tests := []struct {
		state State
		event Event
		want  State
	}{
		{StateInit, EventNavigated, StateAuthCheck},
		{StateInit, EventNavigateFailed, StateFailed},
		{StateAuthCheck, EventPointsVisible, StateAuthenticated},
		{StateAuthCheck, EventSignInVisible, StateNeedsLogin},
		{StateAuthCheck, EventNeitherVisible, StateFailed},
		{StateAuthenticated, EventReady, StateRunning},
		{StateNeedsLogin, EventReady, StateRunning},
		{StateNeedsLogin, EventLoginFailed, StateFailed},
		{StateRunning, EventGrindDone, StateDone},
		{StateRunning, EventGrindLimited, StateLimited},
		{StateRunning, EventGrindTimedOut, StateFailed},
		{StateRunning, EventGrindFailed, StateFailed},
		{StateRunning, EventPageClosed, StateFailed},
		{StateInit, EventPageClosed, StateFailed},
		{StateDone, EventGrindFailed, StateDone},
	}

	for _, tt := range tests {
		got := Next(tt.state, tt.event)
		assert.Equal(t, tt.want, got, "%s + event %d", tt.state, tt.event)
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateLimited.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateRunning.Terminal())

	assert.True(t, StateDone.Success())
	assert.True(t, StateLimited.Success())
	assert.False(t, StateFailed.Success())
}

func TestRunAuthenticatedSession(t *testing.T) {
	fp := &fakePage{
		raceWinner: browser.RaceFirst,
		selectors:  map[string]bool{},
		innerTexts: map[string]string{selPoints: "1,234"},
	}
	acc := accounts.Account{Email: "a@x.com", Points: 100}
	d, store := testDriver(t, acc, testConfig(t), func() (page, error) { return fp, nil })

	require.NoError(t, d.Run(context.Background()))

	got, ok := store.Find("a@x.com")
	require.True(t, ok)
	assert.True(t, got.Login, "points indicator visible marks login=true")
	require.NotNil(t, d.baseline)
	assert.Equal(t, 1234, *d.baseline)
}

func TestRunBaselineParseFailureReusesLastKnown(t *testing.T) {
	fp := &fakePage{
		raceWinner: browser.RaceFirst,
		selectors:  map[string]bool{},
		innerTexts: map[string]string{selPoints: "n/a"},
	}
	acc := accounts.Account{Email: "a@x.com", Points: 77}
	d, _ := testDriver(t, acc, testConfig(t), func() (page, error) { return fp, nil })

	require.NoError(t, d.Run(context.Background()))
	require.NotNil(t, d.baseline)
	assert.Equal(t, 77, *d.baseline)
}

func TestRunLoginWithoutCredentialDegrades(t *testing.T) {
	fp := &fakePage{
		raceWinner: browser.RaceSecond,
		selectors:  map[string]bool{},
	}
	acc := accounts.Account{Email: "a@x.com"}
	d, store := testDriver(t, acc, testConfig(t), func() (page, error) { return fp, nil })
	d.mail = fakeMail{err: mailbox.ErrNoCredential}

	require.NoError(t, d.Run(context.Background()))

	got, ok := store.Find("a@x.com")
	require.True(t, ok)
	assert.False(t, got.Login, "sign-in control visible marks login=false")
	assert.Contains(t, fp.clicked, selSignIn)
	assert.Contains(t, fp.typed, "a@x.com")
}

func TestRunLoginTypesResolvedCode(t *testing.T) {
	fp := &fakePage{
		raceWinner: browser.RaceSecond,
		selectors:  map[string]bool{},
	}
	acc := accounts.Account{Email: "a@x.com", IMAPPassword: "secret"}
	d, _ := testDriver(t, acc, testConfig(t), func() (page, error) { return fp, nil })
	d.mail = fakeMail{code: "482913"}

	require.NoError(t, d.Run(context.Background()))
	assert.Contains(t, fp.typed, "482913")
	assert.Contains(t, fp.keys, "Enter")
}

func TestRunLoginHardFailureConsumesRetries(t *testing.T) {
	opens := 0
	acc := accounts.Account{Email: "a@x.com", IMAPPassword: "secret"}
	d, _ := testDriver(t, acc, testConfig(t), nil)
	d.open = func() (page, error) {
		opens++
		return &fakePage{raceWinner: browser.RaceSecond, selectors: map[string]bool{}}, nil
	}
	d.mail = fakeMail{err: mailbox.ErrCodeNotFound}

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, opens, "every attempt opens a fresh session")
}

func TestRunOpenFailureExhaustsBudget(t *testing.T) {
	opens := 0
	acc := accounts.Account{Email: "a@x.com"}
	d, _ := testDriver(t, acc, testConfig(t), nil)
	d.open = func() (page, error) {
		opens++
		return nil, fmt.Errorf("browser crashed")
	}

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempt budget")
	assert.Equal(t, 2, opens)
}

func TestRunPageClosedUnwindsCleanly(t *testing.T) {
	opens := 0
	acc := accounts.Account{Email: "a@x.com"}
	d, _ := testDriver(t, acc, testConfig(t), nil)
	d.open = func() (page, error) {
		opens++
		return &fakePage{navErr: browser.ErrPageClosed, closed: true}, nil
	}

	assert.NoError(t, d.Run(context.Background()), "external close is a clean unwind, not a failure")
	assert.Equal(t, 1, opens, "no retry after an external close")
}

func TestRunPromptConfigErrorIsNotRetried(t *testing.T) {
	opens := 0
	cfg := testConfig(t)
	cfg.Prompts = map[string]string{"text": filepath.Join(t.TempDir(), "missing.txt")}
	fp := &fakePage{
		raceWinner: browser.RaceFirst,
		selectors: map[string]bool{
			modeTextareas[ModeText]: true,
		},
		innerTexts: map[string]string{selPoints: "10"},
	}
	acc := accounts.Account{Email: "a@x.com"}
	d, _ := testDriver(t, acc, cfg, nil)
	d.open = func() (page, error) {
		opens++
		return fp, nil
	}

	err := d.Run(context.Background())
	require.ErrorIs(t, err, ErrPromptSource)
	assert.Equal(t, 1, opens, "configuration errors are surfaced immediately")
}

func TestRunTimedOutGrindConsumesRetry(t *testing.T) {
	promptFile := filepath.Join(t.TempDir(), "text.txt")
	require.NoError(t, os.WriteFile(promptFile, []byte("what is the weather\n"), 0600))

	cfg := testConfig(t)
	cfg.Prompts = map[string]string{"text": promptFile}

	opens := 0
	acc := accounts.Account{Email: "a@x.com"}
	d, _ := testDriver(t, acc, cfg, nil)
	d.open = func() (page, error) {
		opens++
		return &fakePage{
			raceWinner: browser.RaceFirst,
			selectors:  map[string]bool{modeTextareas[ModeText]: true},
			innerTexts: map[string]string{selPoints: "10"},
		}, nil
	}

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, opens, "timed-out grind is a transient failure that retries")
}

func TestAwaitReactionAdoptsFirstObservation(t *testing.T) {
	fp := &fakePage{selectors: map[string]bool{}}
	d := &Driver{jitter: func(min, max time.Duration) {}, grindWait: 50 * time.Millisecond}

	cell := &points.Cell{}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cell.Observe(10, points.SourcePoll)
	}()

	outcome, err := d.awaitReaction(fp, cell)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, outcome, "first sight of the pre-submit value is a baseline, not a change")
}

func TestAwaitReactionChangeAfterAdoptedBaseline(t *testing.T) {
	fp := &fakePage{selectors: map[string]bool{}}
	d := &Driver{jitter: func(min, max time.Duration) {}, grindWait: 500 * time.Millisecond}

	cell := &points.Cell{}
	go func() {
		time.Sleep(5 * time.Millisecond)
		cell.Observe(10, points.SourcePoll)
		time.Sleep(5 * time.Millisecond)
		cell.Observe(12, points.SourcePush)
	}()

	outcome, err := d.awaitReaction(fp, cell)
	require.NoError(t, err)
	assert.Equal(t, OutcomeChanged, outcome)
}

func TestRunningSeedsBaselineFromPage(t *testing.T) {
	fp := &fakePage{
		raceWinner: browser.RaceSecond,
		selectors:  map[string]bool{},
		innerTexts: map[string]string{selPoints: "55"},
	}
	acc := accounts.Account{Email: "a@x.com"}
	d, _ := testDriver(t, acc, testConfig(t), func() (page, error) { return fp, nil })
	d.mail = fakeMail{err: mailbox.ErrNoCredential}

	var seeded *int
	d.watch = func(p page, baseline *int) (*points.Cell, func(), error) {
		seeded = baseline
		cell := &points.Cell{}
		if baseline != nil {
			cell.Seed(*baseline)
		}
		return cell, func() {}, nil
	}

	require.NoError(t, d.Run(context.Background()))
	require.NotNil(t, seeded, "the login path reads the counter before watching")
	assert.Equal(t, 55, *seeded)
}

func TestRunUsageLimitIsSuccess(t *testing.T) {
	promptFile := filepath.Join(t.TempDir(), "text.txt")
	require.NoError(t, os.WriteFile(promptFile, []byte("hello\n"), 0600))

	cfg := testConfig(t)
	cfg.Prompts = map[string]string{"text": promptFile}

	fp := &fakePage{
		raceWinner: browser.RaceFirst,
		selectors: map[string]bool{
			modeTextareas[ModeText]: true,
			selUsageLimit:           true,
			selNewChat:              true,
		},
		innerTexts: map[string]string{selPoints: "10"},
	}
	acc := accounts.Account{Email: "a@x.com"}
	d, _ := testDriver(t, acc, cfg, func() (page, error) { return fp, nil })

	assert.NoError(t, d.Run(context.Background()), "usage limit is a normal terminal outcome")
	assert.Contains(t, fp.clicked, selNewChat, "limit triggers a fresh conversation")
}

func TestRunDisabledInputMovesToNextMode(t *testing.T) {
	fp := &fakePage{
		raceWinner: browser.RaceFirst,
		selectors: map[string]bool{
			modeTextareas[ModeText]: true,
		},
		cursors:    map[string]string{modeTextareas[ModeText]: "not-allowed"},
		innerTexts: map[string]string{selPoints: "10"},
	}
	acc := accounts.Account{Email: "a@x.com"}
	d, _ := testDriver(t, acc, testConfig(t), func() (page, error) { return fp, nil })

	assert.NoError(t, d.Run(context.Background()), "disabled surface is a soft failure")
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	acc := accounts.Account{Email: "a@x.com"}
	d, _ := testDriver(t, acc, testConfig(t), func() (page, error) {
		t.Fatal("cancelled run must not open a session")
		return nil, nil
	})

	assert.Error(t, d.Run(ctx))
}
