package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModal lists the key bindings of the page that opened it.
type HelpModal struct {
	scrollView
	title    string
	sections []helpSection
}

type helpSection struct {
	name     string
	bindings []key.Binding
}

// NewHelpModal builds a help modal for the given page title.
func NewHelpModal(ctx ModalContext, title string, sections ...helpSection) *HelpModal {
	return &HelpModal{
		scrollView: newScrollView(ctx),
		title:      title,
		sections:   sections,
	}
}

func (h *HelpModal) ID() string { return "help" }

func (h *HelpModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	return h.update(msg, "?")
}

func (h *HelpModal) View(width, height int) string {
	status := append(append([]string{}, scrollStatus...), "?: Toggle Help", "ESC: Close")
	return renderModalFrame(&h.viewport, h.title+" Help", status, h.content, width, height)
}

func (h *HelpModal) content(width int) string {
	keyStyle := lipgloss.NewStyle().Foreground(ColorBlue).Width(14)

	var b strings.Builder
	for i, sec := range h.sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(titleStyle.Render(strings.ToUpper(sec.name) + ":"))
		b.WriteString("\n")
		for _, binding := range sec.bindings {
			help := binding.Help()
			fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render(help.Key), help.Desc)
		}
	}
	return lipgloss.NewStyle().Width(width).Render(b.String())
}
