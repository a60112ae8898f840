package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/junefarm/farmer/pkg/accounts"
	"github.com/junefarm/farmer/pkg/browser"
	"github.com/junefarm/farmer/pkg/config"
	"github.com/junefarm/farmer/pkg/points"
)

// Logger is the logging surface the driver uses.
type Logger interface {
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

// Driver owns one account's session lifecycle. Failures inside a driver
// never escape to sibling sessions; the orchestrator only learns whether
// the whole attempt budget was exhausted.
type Driver struct {
	Email   string
	Account accounts.Account

	cfg    *config.Config
	store  *accounts.Store
	ledger *accounts.Ledger
	mail   codeFetcher
	log    Logger

	// open starts a fresh browser session; each retry attempt gets its own.
	open func() (page, error)

	// watch installs the points watcher on a running page, returning the
	// value cell and a stop function.
	watch func(p page, baseline *int) (*points.Cell, func(), error)

	// jitter sleeps a random duration in range; tests replace it.
	jitter func(min, max time.Duration)

	// grindWait bounds one submit-wait-react cycle; zero means the default.
	grindWait time.Duration

	baseline *int
}

// NewDriver wires a production driver over a browser runtime.
func NewDriver(
	acc accounts.Account,
	cfg *config.Config,
	store *accounts.Store,
	ledger *accounts.Ledger,
	rt *browser.Runtime,
	mail codeFetcher,
	log Logger,
) *Driver {
	d := &Driver{
		Email:   acc.Email,
		Account: acc,
		cfg:     cfg,
		store:   store,
		ledger:  ledger,
		mail:    mail,
		log:     log,
		jitter:  browser.Jitter,
	}

	d.open = func() (page, error) {
		proxy, err := accounts.ParseProxy(acc.Proxy)
		if err != nil {
			d.log.Warnf("%s | ignoring bad proxy: %v", acc.Email, err)
		}
		return rt.OpenProfile(browser.ProfileOptions{
			Email:    acc.Email,
			Proxy:    proxy,
			Headless: cfg.Headless,
		})
	}

	d.watch = func(p page, baseline *int) (*points.Cell, func(), error) {
		sess, ok := p.(*browser.Session)
		if !ok {
			return nil, nil, fmt.Errorf("page is not a browser session")
		}
		watcher := points.NewWatcher(sess, PointsSelectors, func(value int, source points.Source) {
			if _, _, err := ledger.Record(acc.Email, value); err != nil {
				d.log.Errorf("%s | failed to persist points: %v", acc.Email, err)
			}
		})
		if baseline != nil {
			watcher.Cell().Seed(*baseline)
		}
		if err := watcher.Install(); err != nil {
			return nil, nil, err
		}
		return watcher.Cell(), watcher.Stop, nil
	}

	return d
}

// Run executes the session with the configured attempt budget. It returns an
// error only when every attempt failed; the caller logs and isolates it.
func (d *Driver) Run(ctx context.Context) error {
	retries := d.cfg.Retries
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := d.attempt(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, browser.ErrPageClosed) {
			// The session resource went away externally; unwind this
			// account cleanly without burning the remaining attempts.
			d.log.Infof("%s | session closed, stopping", d.Email)
			return nil
		}
		if errors.Is(err, ErrPromptSource) {
			// Configuration error: retrying cannot help.
			d.log.Errorf("%s | %v", d.Email, err)
			return err
		}

		d.log.Warnf("%s | attempt %d/%d failed: %v", d.Email, attempt, retries, err)
	}

	d.log.Warnf("%s | all attempts exhausted", d.Email)
	return fmt.Errorf("%s: attempt budget (%d) exhausted", d.Email, retries)
}

// attempt drives one pass through the lifecycle state machine.
func (d *Driver) attempt(ctx context.Context) error {
	p, err := d.open()
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() { _ = p.Close() }()

	state := StateInit
	for !state.Terminal() {
		if err := ctx.Err(); err != nil {
			return err
		}

		event, stepErr := d.step(p, state)
		state = Next(state, event)
		if stepErr != nil && state == StateFailed {
			return stepErr
		}
	}

	if state.Success() {
		return nil
	}
	return fmt.Errorf("session ended in state %s", state)
}

// step performs the work of one state and reports what it observed.
func (d *Driver) step(p page, state State) (Event, error) {
	switch state {
	case StateInit:
		return d.stepNavigate(p)
	case StateAuthCheck:
		return d.stepAuthCheck(p)
	case StateAuthenticated:
		return d.stepAuthenticated(p)
	case StateNeedsLogin:
		return d.stepLogin(p)
	case StateRunning:
		return d.stepRunning(p)
	default:
		return EventGrindFailed, fmt.Errorf("no step for state %s", state)
	}
}

func (d *Driver) stepNavigate(p page) (Event, error) {
	if err := p.Navigate(d.cfg.AppURL); err != nil {
		if errors.Is(err, browser.ErrPageClosed) {
			return EventPageClosed, err
		}
		d.log.Warnf("%s | page did not load", d.Email)
		return EventNavigateFailed, err
	}
	return EventNavigated, nil
}

func (d *Driver) stepAuthCheck(p page) (Event, error) {
	winner, err := p.RaceSelectors(selPoints, selSignIn, authCheckTimeout)
	if err != nil {
		if errors.Is(err, browser.ErrPageClosed) {
			return EventPageClosed, err
		}
		d.log.Warnf("%s | neither points nor sign-in appeared", d.Email)
		return EventNeitherVisible, err
	}

	d.jitter(5*time.Second, 6*time.Second)
	switch winner {
	case browser.RaceFirst:
		return EventPointsVisible, nil
	case browser.RaceSecond:
		return EventSignInVisible, nil
	default:
		return EventNeitherVisible, fmt.Errorf("auth check resolved without a winner")
	}
}

// stepAuthenticated records the login and captures the points baseline.
// A baseline parse failure reuses the last known value rather than failing
// the session.
func (d *Driver) stepAuthenticated(p page) (Event, error) {
	if err := d.store.SetLogin(d.Email, true); err != nil {
		d.log.Errorf("%s | failed to persist login state: %v", d.Email, err)
	}

	baseline := d.Account.Points
	if raw, err := p.InnerText(selPoints); err == nil {
		if v, perr := points.ParsePoints(raw); perr == nil {
			baseline = v
		}
	} else if errors.Is(err, browser.ErrPageClosed) {
		return EventPageClosed, err
	}
	d.baseline = &baseline
	d.log.Infof("%s | current points: %d", d.Email, baseline)

	return EventReady, nil
}

func (d *Driver) stepRunning(p page) (Event, error) {
	if err := p.SetTitle(d.Email); err != nil && errors.Is(err, browser.ErrPageClosed) {
		return EventPageClosed, err
	}

	// The login path never captured a baseline; read the counter now so
	// the watcher starts seeded and the first poll is not a transition.
	if d.baseline == nil {
		if raw, err := p.InnerText(selPoints); err == nil {
			if v, perr := points.ParsePoints(raw); perr == nil {
				d.baseline = &v
			}
		}
	}

	cell, stop, err := d.watch(p, d.baseline)
	if err != nil {
		if errors.Is(err, browser.ErrPageClosed) {
			return EventPageClosed, err
		}
		return EventGrindFailed, fmt.Errorf("failed to install points watcher: %w", err)
	}
	defer stop()

	return d.runModes(p, cell)
}
