package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the control panel.
func (m *Model) View() string {
	st := newStyles(m.cfg)

	var sections []string
	sections = append(sections, m.buildAccountsPanel(st))

	switch m.screen {
	case screenMenu:
		sections = append(sections, m.buildMenu(st))
	case screenPick:
		sections = append(sections, m.buildPickHint(st))
	case screenRunning:
		sections = append(sections, m.buildRunning(st))
	}

	if m.status != "" {
		sections = append(sections, st.statusBar.Render(m.status))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// buildAccountsPanel renders the framed roster table. Logged-out accounts
// carry a warning prefix; the title shows the roster-wide points total.
func (m *Model) buildAccountsPanel(st styles) string {
	title := st.title.Render(fmt.Sprintf("Accounts - %d pts total", m.total))

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(st.muted.Render("roster is empty"))
		return st.frame.Render(b.String())
	}

	width := 0
	for _, r := range m.rows {
		if len(r.email) > width {
			width = len(r.email)
		}
	}

	for i, r := range m.rows {
		flag := "  "
		if !r.login {
			flag = st.warn.Render("! ")
		}

		email := fmt.Sprintf("%-*s", width, r.email)
		if m.screen == screenPick && i == m.pickIndex {
			email = st.selected.Render(email)
		}

		cursor := "  "
		if m.screen == screenPick && i == m.pickIndex {
			cursor = "> "
		}

		b.WriteString(cursor + flag + email + "  " +
			st.points.Render(fmt.Sprintf("%d pts", r.points)))
		if i < len(m.rows)-1 {
			b.WriteString("\n")
		}
	}

	return st.frame.Render(b.String())
}

func (m *Model) buildMenu(st styles) string {
	var b strings.Builder
	for i, label := range menuLabels {
		if i == m.menuIndex {
			b.WriteString(st.selected.Render("> " + label))
		} else {
			b.WriteString("  " + label)
		}
		if i < len(menuLabels)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")
	b.WriteString(st.muted.Render("↑/↓ move · enter select · r reload · q quit"))
	return st.frame.Render(b.String())
}

func (m *Model) buildPickHint(st styles) string {
	action := "farm"
	if m.pickAction == pickLaunchProfile {
		action = "launch"
	}
	hint := fmt.Sprintf("↑/↓ move · enter %s · c copy email · esc back", action)
	return st.statusBar.Render(hint)
}

func (m *Model) buildRunning(st styles) string {
	return st.statusBar.Render(fmt.Sprintf("%s %s running… (q quits the panel)",
		m.spinner.View(), m.runLabel))
}
