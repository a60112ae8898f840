package session

import (
	"errors"
	"time"

	"github.com/junefarm/farmer/pkg/browser"
	"github.com/junefarm/farmer/pkg/mailbox"
)

// stepLogin marks the account logged out and runs the login bootstrap.
// A missing mailbox credential degrades gracefully: the session continues
// without a code and may still proceed if the user completes login manually.
// Any other bootstrap failure consumes a retry.
func (d *Driver) stepLogin(p page) (Event, error) {
	if err := d.store.SetLogin(d.Email, false); err != nil {
		d.log.Errorf("%s | failed to persist login state: %v", d.Email, err)
	}

	err := d.login(p)
	switch {
	case err == nil:
		return EventReady, nil
	case errors.Is(err, browser.ErrPageClosed):
		return EventPageClosed, err
	case errors.Is(err, mailbox.ErrNoCredential):
		d.log.Infof("%s | mailbox not connected, continuing without a code", d.Email)
		return EventReady, nil
	default:
		d.log.Warnf("%s | login bootstrap failed: %v", d.Email, err)
		return EventLoginFailed, err
	}
}

// login walks the provider's sign-in flow: trigger the control, submit the
// email, then resolve and type the one-time code from the mailbox.
func (d *Driver) login(p page) error {
	if err := p.HumanClick(selSignIn); err != nil {
		return err
	}

	// Email entry is best effort, matching how the provider sometimes skips
	// steps for remembered devices. Page closure still aborts immediately.
	if err := p.TypeInto(selEmailInput, d.Email, loginFieldTimeout); err != nil {
		if errors.Is(err, browser.ErrPageClosed) {
			return err
		}
		d.log.Debugf("%s | email field not available: %v", d.Email, err)
	}
	if _, err := p.HumanClickIfExists(selSubmit); err != nil {
		return err
	}
	d.jitter(200*time.Millisecond, 500*time.Millisecond)
	if _, err := p.HumanClickIfExists(selLoginFinish); err != nil {
		return err
	}

	// Focus the verification-code input if it is already present.
	if _, err := p.HumanClickIfExists(selVerifyCode); err != nil {
		return err
	}

	// Give the code email time to arrive.
	d.jitter(7*time.Second, 9*time.Second)

	code, err := d.mail.FetchCode(d.Email, d.Account.IMAPPassword)
	if err != nil {
		return err
	}

	if err := p.HumanType(code); err != nil {
		return err
	}
	return p.KeyPress("Enter")
}
