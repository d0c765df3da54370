package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by every page.
var (
	ColorNavy   = lipgloss.Color("#1B2440")
	ColorBlue   = lipgloss.Color("39")
	ColorGray   = lipgloss.Color("240")
	ColorWhite  = lipgloss.Color("255")
	ColorRed    = lipgloss.Color("196")
	ColorOrange = lipgloss.Color("208")
	ColorGreen  = lipgloss.Color("42")
)

var (
	sectionStyle = lipgloss.NewStyle().
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	selectedCardStyle = cardStyle.
				BorderForeground(ColorBlue)

	titleStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	messageStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(ColorWhite).
			Padding(0, 2)
)
