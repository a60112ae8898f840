package orchestrator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/semaphore"

	"github.com/junefarm/farmer/pkg/accounts"
	"github.com/junefarm/farmer/pkg/browser"
	"github.com/junefarm/farmer/pkg/config"
	"github.com/junefarm/farmer/pkg/mailbox"
	"github.com/junefarm/farmer/pkg/session"
)

// loopPeriod is the rest between full farm cycles in 24/7 mode: a little
// past the provider's five-hour usage window.
const loopPeriod = 5*time.Hour + 5*time.Minute

// Runner executes one account's session end to end. Production wiring builds
// a session driver; tests substitute their own.
type Runner func(ctx context.Context, email string) error

// Logger is the logging surface the orchestrator needs.
type Logger interface {
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

// Orchestrator fans a roster out over a bounded pool of concurrent sessions.
type Orchestrator struct {
	cfg   *config.Config
	store *accounts.Store
	log   Logger
	run   Runner

	// sleep waits for a duration or context cancel; tests replace it.
	sleep func(ctx context.Context, d time.Duration)
}

// New builds an orchestrator over an arbitrary runner.
func New(cfg *config.Config, store *accounts.Store, log Logger, run Runner) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		store: store,
		log:   log,
		run:   run,
		sleep: sleepCtx,
	}
}

// NewFarm wires the production runner: one session driver per account, backed
// by the shared browser runtime and mailbox client.
func NewFarm(
	cfg *config.Config,
	store *accounts.Store,
	ledger *accounts.Ledger,
	rt *browser.Runtime,
	mail *mailbox.Client,
	log Logger,
) *Orchestrator {
	run := func(ctx context.Context, email string) error {
		acc, ok := store.Find(email)
		if !ok {
			acc = accounts.Account{Email: email}
		}

		// Code retrieval follows the account's proxy when it can carry
		// raw TCP; a bad descriptor falls back to a direct dial.
		sessionMail := mail
		if p, err := accounts.ParseProxy(acc.Proxy); err != nil {
			log.Warnf("%s | ignoring bad proxy for mailbox: %v", email, err)
		} else if m, err := mail.ForProxy(p); err != nil {
			log.Warnf("%s | mailbox proxy unusable, dialing directly: %v", email, err)
		} else {
			sessionMail = m
		}

		return session.NewDriver(acc, cfg, store, ledger, rt, sessionMail, log).Run(ctx)
	}
	return New(cfg, store, log, run)
}

// Eligible selects the roster emails worth launching, in roster order.
// Accounts explicitly marked logged out stay out unless a mailbox credential
// gives the session a way back in.
func Eligible(list []accounts.Account, filter glob.Glob) []string {
	var emails []string
	for _, acc := range list {
		if filter != nil && !filter.Match(acc.Email) {
			continue
		}
		if !acc.Login && !acc.HasMailboxCredential() {
			continue
		}
		emails = append(emails, acc.Email)
	}
	return emails
}

// SweepProfiles reconciles the roster's login flags against the browser
// profiles actually on disk: an account with no profile directory cannot be
// logged in, whatever the roster claims.
func (o *Orchestrator) SweepProfiles(rt *browser.Runtime) {
	for _, acc := range o.store.Load() {
		if acc.Login && !rt.HasProfile(acc.Email) {
			if err := o.store.SetLogin(acc.Email, false); err != nil {
				o.log.Warnf("%s | failed to clear stale login flag: %v", acc.Email, err)
			} else {
				o.log.Debugf("%s | no browser profile, login flag cleared", acc.Email)
			}
		}
	}
}

// RunAll launches a session for every email, at most threadCount at a time.
// The launch loop waits a fresh randomized stagger before each session, so
// launches separate in time instead of bursting. It blocks until every
// session has finished. Per-session failures are logged and contained.
func (o *Orchestrator) RunAll(ctx context.Context, emails []string) {
	if len(emails) == 0 {
		o.log.Warnf("no eligible accounts to run")
		return
	}

	limit := int64(o.cfg.ThreadCount)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	var wg sync.WaitGroup
	for _, email := range emails {
		o.sleep(ctx, o.stagger())
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			defer sem.Release(1)
			o.launch(ctx, email)
		}(email)
	}
	wg.Wait()
}

// launch runs and contains one session. A panicking session must not take
// its siblings down with it.
func (o *Orchestrator) launch(ctx context.Context, email string) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Errorf("%s | session panicked: %v", email, r)
		}
	}()

	o.log.Infof("%s | starting session", email)
	if err := o.run(ctx, email); err != nil {
		o.log.Errorf("%s | session failed: %v", email, err)
		return
	}
	o.log.Infof("%s | session finished", email)
}

// RunForever repeats full farm cycles until the context is cancelled,
// resting a little past the usage window between cycles.
func (o *Orchestrator) RunForever(ctx context.Context, filter glob.Glob) {
	for cycle := 1; ctx.Err() == nil; cycle++ {
		o.log.Infof("starting farm cycle %d", cycle)
		o.RunAll(ctx, Eligible(o.store.Load(), filter))
		if ctx.Err() != nil {
			return
		}
		o.log.Infof("farm cycle %d complete, next in %s", cycle, loopPeriod)
		o.sleep(ctx, loopPeriod)
	}
}

// stagger picks a uniform random delay from the configured start window.
func (o *Orchestrator) stagger() time.Duration {
	min, max := o.cfg.StartDelayRange()
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
