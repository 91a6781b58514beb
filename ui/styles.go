package ui

import "github.com/charmbracelet/lipgloss"

var (
	normalFg = lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#dddddd"}
	dimFg    = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	accentFg = lipgloss.AdaptiveColor{Light: "#8E44AD", Dark: "#C792EA"}
	warnFg   = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF5F87"}

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(normalFg)
	subtleStyle  = lipgloss.NewStyle().Foreground(dimFg)
	playedStyle  = lipgloss.NewStyle().Foreground(accentFg)
	waveStyle    = lipgloss.NewStyle().Foreground(dimFg)
	warnStyle    = lipgloss.NewStyle().Foreground(warnFg)
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5")).Background(accentFg).Padding(0, 1)
	appStyle     = lipgloss.NewStyle().Padding(1, 2)
	spinnerStyle = lipgloss.NewStyle().Foreground(accentFg)
)
