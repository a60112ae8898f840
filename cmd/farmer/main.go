// Package main provides the farmer control panel application: a terminal
// front end over a pool of browser sessions that farm points on askjune.ai
// accounts, with mailbox-assisted login and a persistent roster.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/junefarm/farmer/pkg/accounts"
	"github.com/junefarm/farmer/pkg/browser"
	"github.com/junefarm/farmer/pkg/config"
	"github.com/junefarm/farmer/pkg/logging"
	"github.com/junefarm/farmer/pkg/mailbox"
	"github.com/junefarm/farmer/pkg/orchestrator"
	"github.com/junefarm/farmer/pkg/tui"
)

const version = "0.1.0"

// Options holds the command line configuration.
type Options struct {
	ConfigPath   string
	AccountsPath string
	FarmAll      bool
	Profile      string
	Loop         bool
	ShowVersion  bool
}

func main() {
	opts := parseFlags()

	if opts.ShowVersion {
		fmt.Printf("farmer v%s\n", version)
		return
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		cancel()
		log.Fatalf("farmer: %v", err)
	}
}

func parseFlags() *Options {
	opts := &Options{}

	flag.StringVar(&opts.ConfigPath, "config", "config.yaml", "Path to the configuration file")
	flag.StringVar(&opts.AccountsPath, "accounts", "accounts.json", "Path to the account roster")
	flag.BoolVar(&opts.FarmAll, "all", false, "Farm every eligible account without the control panel")
	flag.StringVar(&opts.Profile, "profile", "", "Open one account's browser profile and wait for it to close")
	flag.BoolVar(&opts.Loop, "loop", false, "Farm in repeating cycles (24/7 mode, implies -all)")
	flag.BoolVar(&opts.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "farmer - askjune.ai points farming panel\n\n")
		fmt.Fprintf(os.Stderr, "Usage: farmer [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  farmer                         # Control panel\n")
		fmt.Fprintf(os.Stderr, "  farmer -all                    # One headless-panel farm cycle\n")
		fmt.Fprintf(os.Stderr, "  farmer -loop                   # Repeating cycles\n")
		fmt.Fprintf(os.Stderr, "  farmer -profile user@gmail.com # Manual browser session\n")
	}

	flag.Parse()
	return opts
}

func run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	filter, err := cfg.CompileAccountFilter()
	if err != nil {
		return err
	}

	logger, logErr := logging.NewLogger("farmer", logging.Options{
		Terminal:  os.Stderr,
		LogColor:  cfg.LogColor,
		WarnColor: cfg.WarnColor,
	})
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "file logging unavailable: %v\n", logErr)
	}
	defer func() { _ = logger.Close() }()

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory: %w", err)
	}

	rt := browser.NewRuntime(filepath.Join(home, ".farmer", "profiles"))
	if err := rt.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize browser runtime: %w", err)
	}
	defer func() { _ = rt.Close() }()

	store := accounts.NewStore(opts.AccountsPath)
	pointsLog, _ := logging.NewLogger("points", logging.Options{
		Terminal:  os.Stderr,
		WarnColor: cfg.WarnColor,
		Cycle:     logging.NewColorCycle(),
	})
	defer func() { _ = pointsLog.Close() }()
	ledger := accounts.NewLedger(store, pointsLog)
	mail := mailbox.NewClient(cfg.IMAP)
	orch := orchestrator.NewFarm(cfg, store, ledger, rt, mail, logger)

	switch {
	case opts.Profile != "":
		return runProfile(ctx, cfg, store, rt, logger, opts.Profile)
	case opts.Loop:
		orch.SweepProfiles(rt)
		orch.RunForever(ctx, filter)
		return nil
	case opts.FarmAll:
		orch.SweepProfiles(rt)
		orch.RunAll(ctx, orchestrator.Eligible(store.Load(), filter))
		return nil
	default:
		return tui.Run(tui.New(ctx, cfg, store, orch, rt, filter, logger))
	}
}

// runProfile opens one account's persistent profile for manual use and
// blocks until the window closes or the context is cancelled.
func runProfile(
	ctx context.Context,
	cfg *config.Config,
	store *accounts.Store,
	rt *browser.Runtime,
	logger *logging.Logger,
	email string,
) error {
	var proxyStr string
	if acc, ok := store.Find(email); ok {
		proxyStr = acc.Proxy
	}
	proxy, err := accounts.ParseProxy(proxyStr)
	if err != nil {
		logger.Warnf("%s | ignoring bad proxy: %v", email, err)
	}

	sess, err := rt.OpenProfile(browser.ProfileOptions{Email: email, Proxy: proxy})
	if err != nil {
		return fmt.Errorf("failed to open profile for %s: %w", email, err)
	}
	defer func() { _ = sess.Close() }()

	if err := sess.Navigate(cfg.AppURL); err != nil {
		logger.Warnf("%s | navigation failed: %v", email, err)
	}
	logger.Infof("%s | profile open, close the window to exit", email)

	closed := make(chan struct{})
	sess.OnClose(func() { close(closed) })
	select {
	case <-closed:
	case <-ctx.Done():
	}
	return nil
}
