package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderBranding renders "Portal" with a blue to green gradient.
func renderBranding() string {
	colors := []string{
		"#00A3FF", // P
		"#00B4E0", // o
		"#00C4C0", // r
		"#00D0A1", // t
		"#21D955", // a
		"#49E209", // l
	}

	var result string
	for i, char := range strings.Split("Portal", "") {
		style := lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(colors[i])).Bold(true)
		result += style.Render(char)
	}
	return result
}

// renderHeader renders the title bar: branding plus an optional breadcrumb.
func renderHeader(width int, crumb string) string {
	base := lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorWhite)

	left := " " + renderBranding()
	if crumb != "" {
		left += base.Render(" › " + crumb)
	}

	pad := width - lipgloss.Width(left)
	if pad < 0 {
		pad = 0
	}
	return left + base.Render(strings.Repeat(" ", pad))
}

// statusLine describes the bottom bar of a page.
type statusLine struct {
	section  string
	hints    []string
	source   string
	sourceOK bool
}

// render lays out section and hints on the left and the data source on the right.
func (s statusLine) render(width int) string {
	baseStyle := lipgloss.NewStyle().
		Background(ColorNavy).
		Foreground(ColorWhite)

	veryNarrow := width < 60
	narrow := width < 80

	var left string
	if s.section != "" {
		left = lipgloss.NewStyle().
			Background(ColorBlue).
			Foreground(ColorWhite).
			Bold(true).
			Padding(0, 1).
			Render(s.section)
	}

	hints := s.hints
	if narrow && len(hints) > 3 {
		hints = hints[:3]
	}
	if veryNarrow && len(hints) > 1 {
		hints = hints[:1]
	}
	if len(hints) > 0 {
		left += baseStyle.Render(" " + strings.Join(hints, " • "))
	}

	var right string
	if s.source != "" && !veryNarrow {
		dotColor := lipgloss.Color("#44FF44")
		if !s.sourceOK {
			dotColor = lipgloss.Color("#FF4444")
		}
		dot := lipgloss.NewStyle().Background(ColorNavy).Foreground(dotColor).Render("●")
		right = dot + baseStyle.Render(" "+s.source+" ")
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Not enough room: drop the right side first.
		right = ""
		gap = max(0, width-lipgloss.Width(left))
	}
	return left + baseStyle.Render(strings.Repeat(" ", gap)) + right
}

// pageFrame stacks header, body and status line to the full terminal size.
func pageFrame(width, height int, header, body, status string) string {
	bodyHeight := max(0, height-lipgloss.Height(header)-lipgloss.Height(status))
	body = lipgloss.NewStyle().Width(width).Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}
