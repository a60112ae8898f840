package tui

import (
	"context"
	"sort"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gobwas/glob"

	"github.com/junefarm/farmer/pkg/accounts"
	"github.com/junefarm/farmer/pkg/browser"
	"github.com/junefarm/farmer/pkg/config"
	"github.com/junefarm/farmer/pkg/orchestrator"
)

// screen selects which surface the panel is showing.
type screen int

const (
	screenMenu screen = iota
	screenPick
	screenRunning
)

// pickAction is what happens to the account chosen on the pick screen.
type pickAction int

const (
	pickFarmOne pickAction = iota
	pickLaunchProfile
)

// menu entries in display order.
const (
	menuFarmAll = iota
	menuFarmOne
	menuLaunchProfile
	menuFarmForever
	menuExit
	menuEntries
)

var menuLabels = [menuEntries]string{
	"Start farm (all accounts)",
	"Start farm (one account)",
	"Launch profile",
	"Start 24/7 farm",
	"Exit",
}

// row is one line of the accounts panel.
type row struct {
	email  string
	points int
	login  bool
}

// Logger is the logging surface the panel needs.
type Logger interface {
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

// Model is the bubbletea model for the control panel.
type Model struct {
	ctx   context.Context
	cfg   *config.Config
	store *accounts.Store
	orch  *orchestrator.Orchestrator
	rt    *browser.Runtime
	log   Logger

	filter glob.Glob

	screen     screen
	menuIndex  int
	pickIndex  int
	pickAction pickAction

	rows   []row
	total  int
	status string

	// runLabel names the in-flight action while screenRunning is up.
	runLabel string
	spinner  spinner.Model

	width  int
	height int
}

// farmDoneMsg signals that a farm run (or profile launch) finished.
type farmDoneMsg struct {
	label string
	err   error
}

// rosterMsg carries a fresh roster read.
type rosterMsg struct {
	rows  []row
	total int
}

// New builds the control panel model. The context bounds every action the
// panel launches; cancelling it stops in-flight farms.
func New(
	ctx context.Context,
	cfg *config.Config,
	store *accounts.Store,
	orch *orchestrator.Orchestrator,
	rt *browser.Runtime,
	filter glob.Glob,
	log Logger,
) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:     ctx,
		cfg:     cfg,
		store:   store,
		orch:    orch,
		rt:      rt,
		filter:  filter,
		log:     log,
		spinner: sp,
	}
}

// Run starts the panel and blocks until the user exits.
func Run(m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init loads the roster on startup.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.reloadRoster(), m.spinner.Tick)
}

// openProfile opens the account's persistent browser profile, honoring its
// configured proxy. A profile launched from the panel is always headful.
func (m *Model) openProfile(email string) (*browser.Session, error) {
	var proxyStr string
	if acc, ok := m.store.Find(email); ok {
		proxyStr = acc.Proxy
	}
	proxy, err := accounts.ParseProxy(proxyStr)
	if err != nil {
		m.log.Warnf("%s | ignoring bad proxy: %v", email, err)
	}
	return m.rt.OpenProfile(browser.ProfileOptions{
		Email: email,
		Proxy: proxy,
	})
}

// reloadRoster reads the store and rebuilds the panel rows, logged-in
// accounts first, preserving roster order within each group.
func (m *Model) reloadRoster() tea.Cmd {
	return func() tea.Msg {
		list := m.store.Load()

		rows := make([]row, 0, len(list))
		total := 0
		for _, acc := range list {
			rows = append(rows, row{email: acc.Email, points: acc.Points, login: acc.Login})
			total += acc.Points
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].login && !rows[j].login
		})

		return rosterMsg{rows: rows, total: total}
	}
}
