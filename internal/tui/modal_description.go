package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/portal/internal/model"
)

// DescriptionModal renders a dashboard's markdown description.
type DescriptionModal struct {
	scrollView
	dashboard model.DashboardDescriptor

	renderedWidth int
	rendered      string
}

func NewDescriptionModal(ctx ModalContext, d model.DashboardDescriptor) *DescriptionModal {
	return &DescriptionModal{
		scrollView: newScrollView(ctx),
		dashboard:  d,
	}
}

func (m *DescriptionModal) ID() string { return "description" }

func (m *DescriptionModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	return m.update(msg, "d")
}

func (m *DescriptionModal) View(width, height int) string {
	title := m.dashboard.Name
	if title == "" {
		title = m.dashboard.URL
	}
	status := append(append([]string{}, scrollStatus...), "d: Toggle", "ESC: Close")
	return renderModalFrame(&m.viewport, title, status, m.content, width, height)
}

// content caches the markdown rendering per width; glamour is not cheap.
func (m *DescriptionModal) content(width int) string {
	if m.rendered != "" && m.renderedWidth == width {
		return m.rendered
	}
	m.renderedWidth = width
	m.rendered = renderMarkdown(m.dashboard.Description, width)
	return m.rendered
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return dimStyle.Render("No description.")
	}
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithWordWrap(width),
		glamour.WithStandardStyle("dark"),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
