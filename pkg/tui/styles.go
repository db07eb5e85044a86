package tui

import "github.com/charmbracelet/lipgloss"

var (
	Accent   = lipgloss.Color("#E5A00D")
	DimGray  = lipgloss.Color("#6B7280")
	White    = lipgloss.Color("#F9FAFB")
	ErrorRed = lipgloss.Color("#EF4444")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	captionStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	pageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Accent).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(ErrorRed)
)
