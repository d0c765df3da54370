package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/tinytelemetry/portal/internal/layout"
	"github.com/tinytelemetry/portal/internal/model"
)

// widgetsMsg carries one completed widget fetch.
type widgetsMsg struct {
	gen     int
	widgets []model.WidgetDescriptor
	err     error
}

// WidgetListPanel is the searchable widget picker beside the designer canvas.
// All of its state belongs to the instance and lives for one mount.
type WidgetListPanel struct {
	api  model.WidgetInfoAPI
	keys KeyMap

	engine LayoutEngine
	bridge *engineBridge
	gen    int
	ctx    context.Context
	cancel context.CancelFunc

	visible bool

	master   []model.WidgetDescriptor
	filtered []model.WidgetDescriptor
	search   textinput.Model
	searching bool
	cursor   int

	loading bool
	err     error

	// Registration handshake for the current mount.
	fetched     bool
	engineReady bool
	initWanted  bool
	initialized bool
	registered  map[string]bool
	initCalls   int
}

func NewWidgetListPanel(api model.WidgetInfoAPI) *WidgetListPanel {
	ti := textinput.New()
	ti.Placeholder = "Search.."
	ti.Prompt = "/ "
	ti.CharLimit = 64

	return &WidgetListPanel{
		api:     api,
		keys:    DefaultKeyMap(),
		search:  ti,
		visible: true,
	}
}

// Mount binds the panel to engine and starts the widget fetch.
func (p *WidgetListPanel) Mount(engine LayoutEngine) tea.Cmd {
	p.Unmount()

	p.gen++
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.engine = engine
	p.bridge = newEngineBridge(p.gen)
	p.registered = make(map[string]bool)

	engine.SetFinishedRegisteringCallback(p.bridge.finished)
	engine.OnStateChanged(p.bridge.stateChanged)

	return tea.Batch(p.fetch(), p.bridge.listen())
}

// Unmount cancels the fetch, detaches from the engine and drops all state.
func (p *WidgetListPanel) Unmount() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.bridge != nil {
		p.bridge.close()
		p.bridge = nil
	}
	p.engine = nil
	p.master = nil
	p.filtered = nil
	p.search.SetValue("")
	p.search.Blur()
	p.searching = false
	p.cursor = 0
	p.loading = false
	p.err = nil
	p.fetched = false
	p.engineReady = false
	p.initWanted = false
	p.initialized = false
	p.registered = nil
	p.initCalls = 0
}

func (p *WidgetListPanel) fetch() tea.Cmd {
	p.loading = true
	p.err = nil

	api, ctx, gen := p.api, p.ctx, p.gen
	return func() tea.Msg {
		widgets, err := api.GetWidgetsInfo(ctx)
		return widgetsMsg{gen: gen, widgets: widgets, err: err}
	}
}

// Update handles fetch results and engine messages.
func (p *WidgetListPanel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case widgetsMsg:
		if msg.gen != p.gen || p.ctx == nil || p.ctx.Err() != nil {
			return nil
		}
		p.setWidgets(msg)
		return nil

	case engineFinishedMsg:
		if msg.gen != p.gen || p.bridge == nil {
			return nil
		}
		if msg.widgetsLoaded {
			p.engineReady = true
		}
		if msg.initDashboard {
			p.initWanted = true
		}
		p.initializeWidgetList()
		return p.bridge.listen()

	case engineStateMsg:
		if msg.gen != p.gen || p.bridge == nil {
			return nil
		}
		return p.bridge.listen()
	}
	return nil
}

func (p *WidgetListPanel) setWidgets(msg widgetsMsg) {
	p.loading = false
	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return
		}
		log.Printf("widgets: fetch: %v", msg.err)
		p.err = msg.err
		return
	}
	p.err = nil
	p.master = slices.Clone(msg.widgets)
	p.fetched = true
	p.applyFilter()
	p.initializeWidgetList()
}

// initializeWidgetList registers drag sources once both the widget list and
// the engine are ready, and asks for dashboard initialization at most once
// per mount.
func (p *WidgetListPanel) initializeWidgetList() {
	if !p.fetched || !p.engineReady || p.engine == nil {
		return
	}
	for _, w := range p.master {
		if p.registered[w.Name] {
			continue
		}
		p.registered[w.Name] = true
		p.engine.CreateDragSource(w.Name, layout.ItemConfig{
			Title:     w.Name,
			Type:      layout.ComponentType,
			Component: w.Name,
		})
		p.engine.LoadWidget(w.Name)
	}
	if p.initWanted && !p.initialized {
		p.initialized = true
		p.initCalls++
		p.engine.InitializeDashboard()
	}
}

// Filter returns the cached widgets whose name contains query, ignoring case.
func (p *WidgetListPanel) Filter(query string) []model.WidgetDescriptor {
	return model.FilterWidgets(p.master, query)
}

func (p *WidgetListPanel) applyFilter() {
	p.filtered = p.Filter(p.search.Value())
	p.cursor = min(p.cursor, max(0, len(p.filtered)-1))
}

// HandleKey processes keys while the panel has focus.
func (p *WidgetListPanel) HandleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if !p.visible {
		return false, nil
	}
	if p.searching {
		switch msg.String() {
		case "escape", "esc":
			p.searching = false
			p.search.Blur()
			p.search.SetValue("")
			p.applyFilter()
			return true, nil
		case "enter":
			p.searching = false
			p.search.Blur()
			return true, nil
		case "up", "down":
			// fall through to list navigation below
		default:
			var cmd tea.Cmd
			p.search, cmd = p.search.Update(msg)
			p.applyFilter()
			return true, cmd
		}
	}

	switch {
	case key.Matches(msg, p.keys.Search):
		p.searching = true
		return true, p.search.Focus()
	case key.Matches(msg, p.keys.Up):
		p.cursor = max(0, p.cursor-1)
		return true, nil
	case key.Matches(msg, p.keys.Down):
		p.cursor = max(0, min(len(p.filtered)-1, p.cursor+1))
		return true, nil
	case key.Matches(msg, p.keys.Retry):
		if p.err != nil && !p.loading && p.ctx != nil {
			return true, p.fetch()
		}
	}
	return false, nil
}

// SetVisible shows or hides the panel. Hidden panels keep their state.
func (p *WidgetListPanel) SetVisible(v bool) { p.visible = v }

func (p *WidgetListPanel) Visible() bool { return p.visible }

// Searching reports whether the search input has focus.
func (p *WidgetListPanel) Searching() bool { return p.searching }

// Widgets returns the full cached list.
func (p *WidgetListPanel) Widgets() []model.WidgetDescriptor { return slices.Clone(p.master) }

// Shown returns the widgets currently listed, after filtering.
func (p *WidgetListPanel) Shown() []model.WidgetDescriptor { return slices.Clone(p.filtered) }

// Selected returns the highlighted widget.
func (p *WidgetListPanel) Selected() (model.WidgetDescriptor, bool) {
	if p.cursor >= len(p.filtered) {
		return model.WidgetDescriptor{}, false
	}
	return p.filtered[p.cursor], true
}

// Err returns the last fetch error.
func (p *WidgetListPanel) Err() error { return p.err }

// View renders the panel, or nothing while hidden.
func (p *WidgetListPanel) View(width, height int) string {
	if !p.visible || width <= 0 {
		return ""
	}
	inner := max(4, width-4)

	lines := []string{
		titleStyle.Render("WIDGETS LIST"),
		p.searchLine(inner),
		dimStyle.Render(strings.Repeat("─", inner)),
	}

	switch {
	case p.loading:
		lines = append(lines, dimStyle.Italic(true).Render("Loading widgets..."))
	case p.err != nil:
		lines = append(lines,
			errorStyle.Render(truncate.StringWithTail("Cannot load widgets: "+p.err.Error(), uint(inner), "…")),
			dimStyle.Render("r: retry"),
		)
	case len(p.filtered) == 0 && p.fetched:
		lines = append(lines, dimStyle.Render("No widgets match"))
	default:
		for i, w := range p.filtered {
			marker := "  "
			if p.engine != nil && p.engine.Loaded(w.Name) {
				marker = lipgloss.NewStyle().Foreground(ColorGreen).Render("● ")
			}
			name := truncate.StringWithTail(w.Name, uint(inner-2), "…")
			if i == p.cursor {
				name = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true).Render(name)
			}
			lines = append(lines, marker+name)
		}
	}

	borderColor := ColorGray
	if p.searching {
		borderColor = ColorBlue
	}
	return lipgloss.NewStyle().
		Width(width-2).
		Height(max(1, height-2)).
		MaxHeight(height).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func (p *WidgetListPanel) searchLine(width int) string {
	p.search.Width = max(1, width-len(p.search.Prompt)-1)
	if !p.searching && p.search.Value() == "" {
		return dimStyle.Render(p.search.Prompt + p.search.Placeholder)
	}
	if !p.searching {
		return fmt.Sprintf("%s%s", p.search.Prompt, p.search.Value())
	}
	return p.search.View()
}
