package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent = "63"
	colorMuted  = "244"
	colorGood   = "78"
	colorBad    = "197"
	colorWarn   = "214"
	colorActive = "205"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	userStyle     = lipgloss.NewStyle().Bold(true)
	addedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGood))
	removedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBad))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBad))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarn))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGood))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorActive))
	tabStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	activeTab     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
)
