package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/portal/internal/layout"
)

const widgetPanelWidth = 32

// DesignerPage hosts the canvas of one dashboard and the widget panel.
type DesignerPage struct {
	modalStack
	deps Deps
	keys KeyMap

	url    string
	engine *layout.Engine
	panel  *WidgetListPanel
	notice string
	err    error
}

func NewDesignerPage(deps Deps) *DesignerPage {
	return &DesignerPage{
		deps:  deps,
		keys:  DefaultKeyMap(),
		panel: NewWidgetListPanel(deps.API),
	}
}

func (p *DesignerPage) ID() string { return PageDesigner }

func (p *DesignerPage) Init() tea.Cmd { return nil }

// Mount opens the dashboard whose URL is passed as params.
func (p *DesignerPage) Mount(params any) tea.Cmd {
	p.Unmount()

	url, _ := params.(string)
	p.url = url
	p.notice = ""
	p.err = nil
	if url == "" {
		p.err = errors.New("no dashboard selected")
		return nil
	}

	var opts []layout.Option
	if p.deps.RequestTimeout > 0 {
		opts = append(opts, layout.WithLoadTimeout(p.deps.RequestTimeout))
	}
	p.engine = layout.NewEngine(p.deps.API, opts...)

	// Callbacks must be in place before Open can finish.
	cmd := p.panel.Mount(p.engine)
	if err := p.engine.Open(context.Background(), url); err != nil {
		p.err = err
	}
	return cmd
}

// Unmount detaches the panel before closing the engine so no engine
// callback is left waiting on the bridge.
func (p *DesignerPage) Unmount() {
	p.panel.Unmount()
	if p.engine != nil {
		p.engine.Close()
		p.engine = nil
	}
	p.clearModals()
}

func (p *DesignerPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case widgetsMsg, engineFinishedMsg, engineStateMsg:
		return p.panel.Update(msg), nil
	case tea.KeyMsg:
		if p.HasModal() {
			return p.updateModal(msg), nil
		}
		return p.handleKey(msg)
	case tea.MouseMsg:
		if p.HasModal() {
			return p.updateModal(msg), nil
		}
	}
	return nil, nil
}

func (p *DesignerPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	if p.panel.Searching() {
		_, cmd := p.panel.HandleKey(msg)
		return cmd, nil
	}

	switch {
	case key.Matches(msg, p.keys.Quit):
		return tea.Quit, nil
	case key.Matches(msg, p.keys.Escape):
		return nil, navTo(PageListing, nil)
	case key.Matches(msg, p.keys.TogglePanel):
		p.panel.SetVisible(!p.panel.Visible())
		return nil, nil
	case key.Matches(msg, p.keys.Enter):
		p.drop()
		return nil, nil
	case key.Matches(msg, p.keys.Help):
		p.push(NewHelpModal(p.deps.modalContext(), "Designer",
			helpSection{"widgets", []key.Binding{p.keys.Search, p.keys.Up, p.keys.Down, p.keys.Enter, p.keys.Retry}},
			helpSection{"page", []key.Binding{p.keys.TogglePanel, p.keys.Escape, p.keys.Help, p.keys.Quit}},
		))
		return nil, nil
	}

	_, cmd := p.panel.HandleKey(msg)
	return cmd, nil
}

// drop places the highlighted widget on the canvas.
func (p *DesignerPage) drop() {
	if p.engine == nil || !p.panel.Visible() {
		return
	}
	w, ok := p.panel.Selected()
	if !ok {
		return
	}
	panel, err := p.engine.Drop(w.Name)
	if err != nil {
		log.Printf("designer: drop %s: %v", w.Name, err)
		p.notice = fmt.Sprintf("Cannot place %s yet", w.Name)
		return
	}
	p.notice = fmt.Sprintf("Placed %s", panel.Config.Title)
}

// Canvas returns the current canvas state.
func (p *DesignerPage) Canvas() layout.State {
	if p.engine == nil {
		return layout.State{DashboardURL: p.url}
	}
	return p.engine.State()
}

// Panel exposes the widget panel.
func (p *DesignerPage) Panel() *WidgetListPanel { return p.panel }

func (p *DesignerPage) View(width, height int) string {
	if top := p.top(); top != nil {
		return top.View(width, height)
	}

	crumb := "Designer"
	if p.engine != nil {
		if d, ok := p.engine.Dashboard(); ok && d.Name != "" {
			crumb += ": " + d.Name
		} else {
			crumb += ": " + p.url
		}
	}
	header := renderHeader(width, crumb)

	hints := []string{"w: toggle widgets", "/: search", "enter: place", "esc: back", "?: help"}
	status := statusLine{
		section:  "Designer",
		hints:    hints,
		source:   p.deps.DataSource,
		sourceOK: p.panel.Err() == nil && p.openErr() == nil,
	}.render(width)

	bodyHeight := max(0, height-2)
	canvasWidth := width
	var left string
	if p.panel.Visible() {
		pw := min(widgetPanelWidth, width/2)
		left = p.panel.View(pw, bodyHeight)
		canvasWidth = max(0, width-lipgloss.Width(left))
	}
	canvas := p.renderCanvas(canvasWidth, bodyHeight)

	body := canvas
	if left != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, canvas)
	}
	return pageFrame(width, height, header, body, status)
}

func (p *DesignerPage) openErr() error {
	if p.err != nil {
		return p.err
	}
	if p.engine != nil {
		return p.engine.Err()
	}
	return nil
}

func (p *DesignerPage) renderCanvas(width, height int) string {
	if err := p.openErr(); err != nil {
		msg := errorStyle.Render("Cannot open dashboard: " + err.Error())
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)
	}

	st := p.Canvas()
	if !st.Initialized && len(st.Panels) == 0 && p.panel.Err() != nil {
		msg := dimStyle.Render("Widgets are unavailable, so the canvas cannot load. Press r to retry.")
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)
	}
	if !st.Initialized && len(st.Panels) == 0 {
		return renderLoadingPlaceholder("Preparing canvas...", width, height)
	}

	lines := []string{sectionStyle.Render(titleStyle.Render(fmt.Sprintf("Canvas (%d panels)", len(st.Panels))))}
	if len(st.Panels) == 0 {
		lines = append(lines, sectionStyle.Render(dimStyle.Render("Empty canvas. Pick a widget and press enter.")))
	}

	boxWidth := max(12, min(28, width/3))
	var row []string
	for i, panel := range st.Panels {
		box := cardStyle.Width(boxWidth).Render(
			titleStyle.Render(panel.Config.Title) + "\n" + dimStyle.Render(panel.Config.Component),
		)
		row = append(row, box)
		if len(row)*(boxWidth+2) >= width-boxWidth-2 || i == len(st.Panels)-1 {
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if p.notice != "" {
		lines = append(lines, sectionStyle.Render(dimStyle.Render(p.notice)))
	}
	return strings.Join(lines, "\n")
}
