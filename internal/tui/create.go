package tui

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/portal/internal/model"
)

// dashboardCreatedMsg carries the result of a create request.
type dashboardCreatedMsg struct {
	gen       int
	dashboard model.DashboardDescriptor
	err       error
}

const (
	fieldName = iota
	fieldURL
	fieldCount
)

// CreatePage collects a name and URL and creates a dashboard.
type CreatePage struct {
	deps Deps
	keys KeyMap

	gen    int
	ctx    context.Context
	cancel context.CancelFunc

	inputs     [fieldCount]textinput.Model
	focus      int
	submitting bool
	err        error
}

func NewCreatePage(deps Deps) *CreatePage {
	p := &CreatePage{deps: deps, keys: DefaultKeyMap()}

	name := textinput.New()
	name.Placeholder = "Sales Overview"
	name.Prompt = "Name: "
	name.CharLimit = 80

	url := textinput.New()
	url.Placeholder = "sales"
	url.Prompt = "URL:  "
	url.CharLimit = 64

	p.inputs = [fieldCount]textinput.Model{name, url}
	return p
}

func (p *CreatePage) ID() string { return PageCreate }

func (p *CreatePage) Init() tea.Cmd { return p.Mount(nil) }

func (p *CreatePage) Mount(_ any) tea.Cmd {
	p.Unmount()
	p.gen++
	p.ctx, p.cancel = context.WithCancel(context.Background())
	for i := range p.inputs {
		p.inputs[i].SetValue("")
		p.inputs[i].Blur()
	}
	p.focus = fieldName
	p.submitting = false
	p.err = nil
	return p.inputs[fieldName].Focus()
}

func (p *CreatePage) Unmount() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *CreatePage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case dashboardCreatedMsg:
		if msg.gen != p.gen {
			return nil, nil
		}
		p.submitting = false
		if msg.err != nil {
			if !errors.Is(msg.err, context.Canceled) {
				log.Printf("create: %v", msg.err)
				p.err = msg.err
			}
			return nil, nil
		}
		log.Printf("create: created dashboard %s", msg.dashboard.URL)
		return nil, navTo(PageListing, nil)

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil, nil
}

func (p *CreatePage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	switch {
	case key.Matches(msg, p.keys.Escape):
		return nil, navTo(PageListing, nil)
	case key.Matches(msg, p.keys.Tab), msg.String() == "up", msg.String() == "down":
		return p.cycleFocus(), nil
	case key.Matches(msg, p.keys.Enter):
		if p.focus == fieldName {
			return p.cycleFocus(), nil
		}
		return p.submit(), nil
	}

	var cmd tea.Cmd
	p.inputs[p.focus], cmd = p.inputs[p.focus].Update(msg)
	p.err = nil
	return cmd, nil
}

func (p *CreatePage) cycleFocus() tea.Cmd {
	p.inputs[p.focus].Blur()
	p.focus = (p.focus + 1) % fieldCount
	return p.inputs[p.focus].Focus()
}

// submit validates locally, then sends the create request.
func (p *CreatePage) submit() tea.Cmd {
	if p.submitting {
		return nil
	}
	d := model.DashboardDescriptor{
		Name: strings.TrimSpace(p.inputs[fieldName].Value()),
		URL:  strings.TrimSpace(p.inputs[fieldURL].Value()),
	}
	if err := model.ValidateDashboard(d); err != nil {
		p.err = err
		return nil
	}

	p.submitting = true
	p.err = nil
	api, ctx, gen := p.deps.API, p.ctx, p.gen
	return func() tea.Msg {
		created, err := api.CreateDashboard(ctx, d)
		return dashboardCreatedMsg{gen: gen, dashboard: created, err: err}
	}
}

// Err returns the last validation or create error.
func (p *CreatePage) Err() error { return p.err }

func (p *CreatePage) View(width, height int) string {
	header := renderHeader(width, "New Dashboard")
	status := statusLine{
		section:  "Create",
		hints:    []string{"tab: next field", "enter: create", "esc: cancel"},
		source:   p.deps.DataSource,
		sourceOK: true,
	}.render(width)

	formWidth := max(30, min(width-8, 64))
	lines := []string{
		titleStyle.Render("Create a dashboard"),
		"",
	}
	for i := range p.inputs {
		p.inputs[i].Width = formWidth - 10
		lines = append(lines, p.inputs[i].View())
	}
	lines = append(lines, "")
	switch {
	case p.submitting:
		lines = append(lines, dimStyle.Italic(true).Render("Creating..."))
	case p.err != nil:
		lines = append(lines, errorStyle.Render(createErrorText(p.err)))
	default:
		lines = append(lines, dimStyle.Render("URL: lowercase letters, digits and dashes"))
	}

	form := cardStyle.Width(formWidth).Render(strings.Join(lines, "\n"))
	body := lipgloss.Place(width, max(0, height-2), lipgloss.Center, lipgloss.Center, form)
	return pageFrame(width, height, header, body, status)
}

func createErrorText(err error) string {
	switch {
	case errors.Is(err, model.ErrConflict):
		return "A dashboard with that URL already exists"
	case errors.Is(err, model.ErrInvalid):
		return err.Error()
	}
	return "Cannot create dashboard: " + err.Error()
}
