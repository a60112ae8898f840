package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/junefarm/farmer/pkg/orchestrator"
)

// Update is the bubbletea event loop for the control panel.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case rosterMsg:
		m.rows = msg.rows
		m.total = msg.total
		if m.pickIndex >= len(m.rows) {
			m.pickIndex = 0
		}
		return m, nil

	case farmDoneMsg:
		m.screen = screenMenu
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.label, msg.err)
		} else {
			m.status = fmt.Sprintf("%s finished", msg.label)
		}
		return m, m.reloadRoster()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.screen {
	case screenMenu:
		return m.handleMenuKey(msg)
	case screenPick:
		return m.handlePickKey(msg)
	case screenRunning:
		// A run in flight; only exit is available, everything else waits.
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < menuEntries-1 {
			m.menuIndex++
		}
	case "r":
		return m, m.reloadRoster()
	case "q":
		return m, tea.Quit
	case "enter":
		return m.selectMenu()
	}
	return m, nil
}

func (m *Model) selectMenu() (tea.Model, tea.Cmd) {
	switch m.menuIndex {
	case menuFarmAll:
		return m.startRun("farm", m.farmAll())
	case menuFarmOne:
		return m.startPick(pickFarmOne)
	case menuLaunchProfile:
		return m.startPick(pickLaunchProfile)
	case menuFarmForever:
		return m.startRun("24/7 farm", m.farmForever())
	case menuExit:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) startPick(action pickAction) (tea.Model, tea.Cmd) {
	if len(m.rows) == 0 {
		m.status = "no accounts in the roster"
		return m, nil
	}
	m.screen = screenPick
	m.pickAction = action
	m.pickIndex = 0
	return m, nil
}

func (m *Model) handlePickKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.pickIndex > 0 {
			m.pickIndex--
		}
	case "down", "j":
		if m.pickIndex < len(m.rows)-1 {
			m.pickIndex++
		}
	case "c":
		email := m.rows[m.pickIndex].email
		if err := clipboard.WriteAll(email); err != nil {
			m.status = fmt.Sprintf("clipboard unavailable: %v", err)
		} else {
			m.status = fmt.Sprintf("copied %s", email)
		}
	case "esc", "q":
		m.screen = screenMenu
	case "enter":
		email := m.rows[m.pickIndex].email
		switch m.pickAction {
		case pickFarmOne:
			return m.startRun(fmt.Sprintf("farm %s", email), m.farmOne(email))
		case pickLaunchProfile:
			return m.startRun(fmt.Sprintf("profile %s", email), m.launchProfile(email))
		}
	}
	return m, nil
}

func (m *Model) startRun(label string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.screen = screenRunning
	m.runLabel = label
	m.status = ""
	return m, tea.Batch(cmd, m.spinner.Tick)
}

// farmAll farms every eligible account.
func (m *Model) farmAll() tea.Cmd {
	return func() tea.Msg {
		m.orch.SweepProfiles(m.rt)
		emails := orchestrator.Eligible(m.store.Load(), m.filter)
		m.orch.RunAll(m.ctx, emails)
		return farmDoneMsg{label: "farm"}
	}
}

// farmOne farms a single account regardless of the configured filter.
func (m *Model) farmOne(email string) tea.Cmd {
	return func() tea.Msg {
		m.orch.SweepProfiles(m.rt)
		m.orch.RunAll(m.ctx, []string{email})
		return farmDoneMsg{label: fmt.Sprintf("farm %s", email)}
	}
}

// farmForever runs repeating farm cycles until the context is cancelled.
func (m *Model) farmForever() tea.Cmd {
	return func() tea.Msg {
		m.orch.SweepProfiles(m.rt)
		m.orch.RunForever(m.ctx, m.filter)
		return farmDoneMsg{label: "24/7 farm"}
	}
}

// launchProfile opens the account's browser profile for manual use and
// returns when the user closes the window.
func (m *Model) launchProfile(email string) tea.Cmd {
	return func() tea.Msg {
		label := fmt.Sprintf("profile %s", email)

		sess, err := m.openProfile(email)
		if err != nil {
			return farmDoneMsg{label: label, err: err}
		}
		defer func() { _ = sess.Close() }()

		if err := sess.Navigate(m.cfg.AppURL); err != nil {
			m.log.Warnf("%s | profile navigation failed: %v", email, err)
		}

		closed := make(chan struct{})
		sess.OnClose(func() { close(closed) })
		select {
		case <-closed:
		case <-m.ctx.Done():
		}
		return farmDoneMsg{label: label}
	}
}
