package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/junefarm/farmer/pkg/config"
)

// styles holds the configured lipgloss styles for the control panel.
// Colors come from the user's configuration, falling back to the defaults
// when a value does not parse.
type styles struct {
	frame     lipgloss.Style
	title     lipgloss.Style
	points    lipgloss.Style
	warn      lipgloss.Style
	muted     lipgloss.Style
	selected  lipgloss.Style
	statusBar lipgloss.Style
}

func newStyles(cfg *config.Config) styles {
	frameColor := lipgloss.Color(config.SafeColor(cfg.FrameColor, config.DefaultFrameColor))
	pointsColor := lipgloss.Color(config.SafeColor(cfg.PointsColor, config.DefaultPointsColor))
	warnColor := lipgloss.Color(config.SafeColor(cfg.WarnColor, config.DefaultWarnColor))
	logColor := lipgloss.Color(config.SafeColor(cfg.LogColor, config.DefaultLogColor))

	return styles{
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(frameColor).
			Padding(0, 1),

		title: lipgloss.NewStyle().
			Foreground(pointsColor).
			Bold(true),

		points: lipgloss.NewStyle().
			Foreground(pointsColor),

		warn: lipgloss.NewStyle().
			Foreground(warnColor).
			Bold(true),

		muted: lipgloss.NewStyle().
			Foreground(logColor),

		selected: lipgloss.NewStyle().
			Foreground(pointsColor).
			Bold(true).
			Underline(true),

		statusBar: lipgloss.NewStyle().
			Foreground(logColor).
			Padding(0, 1),
	}
}
