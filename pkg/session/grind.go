package session

import (
	"errors"
	"time"

	"github.com/junefarm/farmer/pkg/browser"
	"github.com/junefarm/farmer/pkg/points"
)

// Outcome is the result of one grind cycle: compose, submit, wait, react.
type Outcome int

const (
	// OutcomeChanged: the points counter moved. The driver keeps grinding
	// the same mode.
	OutcomeChanged Outcome = iota
	// OutcomeLimited: the usage-limit indicator appeared. A success; the
	// session is done for this run.
	OutcomeLimited
	// OutcomeTimedOut: neither event within the bound. A transient failure
	// that consumes a retry.
	OutcomeTimedOut
	// OutcomeNotInteractable: the mode's input surface is missing or
	// disabled. Soft failure; the driver moves to the next mode.
	OutcomeNotInteractable
)

// Grind timing bounds.
const (
	grindTimeout      = 60 * time.Second
	grindPollInterval = 500 * time.Millisecond
	modeButtonTimeout = 10 * time.Second
	authCheckTimeout  = 30 * time.Second
	loginFieldTimeout = 5 * time.Second
	notAllowedCursor  = "not-allowed"
)

// grindOnce performs exactly one submit-wait-react cycle in the given mode
// and reports what happened. The caller decides whether to continue.
func (d *Driver) grindOnce(p page, mode Mode, cell *points.Cell) (Outcome, error) {
	d.jitter(200*time.Millisecond, 600*time.Millisecond)
	if p.IsClosed() {
		return OutcomeTimedOut, browser.ErrPageClosed
	}

	textarea := modeTextareas[mode]
	if !p.HasSelector(textarea) {
		d.log.Warnf("%s | no input surface for mode %s", d.Email, mode)
		return OutcomeNotInteractable, nil
	}
	if cursor, err := p.CursorStyle(textarea); err != nil {
		if errors.Is(err, browser.ErrPageClosed) {
			return OutcomeTimedOut, err
		}
	} else if cursor == notAllowedCursor {
		d.log.Warnf("%s | mode %s input is disabled", d.Email, mode)
		return OutcomeNotInteractable, nil
	}

	prompt, err := RandomPrompt(d.cfg.PromptFile(string(mode)))
	if err != nil {
		return OutcomeTimedOut, err
	}

	if err := p.HumanClick(textarea); err != nil {
		return OutcomeTimedOut, err
	}
	d.jitter(500*time.Millisecond, 900*time.Millisecond)
	if err := p.HumanType(prompt); err != nil {
		return OutcomeTimedOut, err
	}
	d.jitter(60*time.Millisecond, 150*time.Millisecond)
	if err := p.KeyPress("Enter"); err != nil {
		return OutcomeTimedOut, err
	}

	return d.awaitReaction(p, cell)
}

// awaitReaction waits for a usage-limit indicator or a counter transition,
// whichever comes first, up to the grind timeout. A cell with no value yet
// adopts its first observation as the baseline: the counter was on screen
// before the submit, so seeing it once is not a change.
func (d *Driver) awaitReaction(p page, cell *points.Cell) (Outcome, error) {
	baseline, hasBaseline := cell.Last()

	wait := d.grindWait
	if wait == 0 {
		wait = grindTimeout
	}
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if p.IsClosed() {
			return OutcomeTimedOut, browser.ErrPageClosed
		}
		if p.HasSelector(selUsageLimit) {
			return OutcomeLimited, nil
		}
		if v, ok := cell.Last(); ok {
			if !hasBaseline {
				baseline, hasBaseline = v, true
			} else if v != baseline {
				return OutcomeChanged, nil
			}
		}
		d.jitter(grindPollInterval, grindPollInterval)
	}
	return OutcomeTimedOut, nil
}

// runModes grinds the three modes in fixed order and condenses the result
// into a single lifecycle event.
func (d *Driver) runModes(p page, cell *points.Cell) (Event, error) {
	for _, mode := range Modes {
		if p.IsClosed() {
			return EventPageClosed, browser.ErrPageClosed
		}
		d.selectMode(p, mode)

		for {
			outcome, err := d.grindOnce(p, mode, cell)
			if err != nil {
				if errors.Is(err, browser.ErrPageClosed) {
					return EventPageClosed, err
				}
				return EventGrindFailed, err
			}

			switch outcome {
			case OutcomeChanged:
				d.jitter(500*time.Millisecond, 2*time.Second)
				d.newChat(p)
				// Keep grinding this mode.
			case OutcomeLimited:
				d.log.Infof("%s | usage limit reached", d.Email)
				d.jitter(200*time.Millisecond, 400*time.Millisecond)
				d.newChat(p)
				return EventGrindLimited, nil
			case OutcomeNotInteractable:
				// Move on to the next mode.
			case OutcomeTimedOut:
				return EventGrindTimedOut, nil
			}
			if outcome == OutcomeNotInteractable {
				break
			}
		}
	}
	return EventGrindDone, nil
}

// selectMode clicks the mode's toolbar button. A missing button is logged
// and tolerated; the textarea check in grindOnce decides what happens next.
func (d *Driver) selectMode(p page, mode Mode) {
	selector := modeButtons[mode]
	if err := p.WaitForSelector(selector, modeButtonTimeout); err != nil {
		d.log.Warnf("%s | mode %s control did not appear", d.Email, mode)
		return
	}
	if err := p.HumanClick(selector); err != nil && !errors.Is(err, browser.ErrPageClosed) {
		d.log.Warnf("%s | failed to select mode %s: %v", d.Email, mode, err)
	}
}

// newChat opens a fresh conversation, best effort.
func (d *Driver) newChat(p page) {
	if p.IsClosed() {
		return
	}
	d.jitter(80*time.Millisecond, 1*time.Second)
	if _, err := p.HumanClickIfExists(selNewChat); err != nil && !errors.Is(err, browser.ErrPageClosed) {
		d.log.Debugf("%s | new chat click failed: %v", d.Email, err)
	}
}
