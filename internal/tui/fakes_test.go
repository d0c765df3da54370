package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/portal/internal/layout"
	"github.com/tinytelemetry/portal/internal/model"
)

// fakeAPI is an in-memory model.PortalAPI.
type fakeAPI struct {
	mu         sync.Mutex
	widgets    []model.WidgetDescriptor
	widgetsErr error
	dashboards []model.DashboardDescriptor
	listErr    error
	createErr  error
	created    []model.DashboardDescriptor

	widgetCalls int
	listCalls   int
}

func (f *fakeAPI) GetWidgetsInfo(ctx context.Context) ([]model.WidgetDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.widgetCalls++
	if f.widgetsErr != nil {
		return nil, f.widgetsErr
	}
	return f.widgets, nil
}

func (f *fakeAPI) GetWidgetDefinition(ctx context.Context, name string) (model.WidgetDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.widgets {
		if w.Name == name {
			return model.WidgetDefinition{Name: name, Title: w.Title}, nil
		}
	}
	return model.WidgetDefinition{}, fmt.Errorf("widget %q: %w", name, model.ErrNotFound)
}

func (f *fakeAPI) GetDashboardList(ctx context.Context) ([]model.DashboardDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.dashboards, nil
}

func (f *fakeAPI) GetDashboard(ctx context.Context, url string) (model.DashboardDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.dashboards {
		if d.URL == url {
			return d, nil
		}
	}
	return model.DashboardDescriptor{}, fmt.Errorf("dashboard %q: %w", url, model.ErrNotFound)
}

func (f *fakeAPI) CreateDashboard(ctx context.Context, d model.DashboardDescriptor) (model.DashboardDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.DashboardDescriptor{}, f.createErr
	}
	f.created = append(f.created, d)
	return d, nil
}

// fakeEngine records what the widget panel asks of the layout engine.
type fakeEngine struct {
	finished layout.FinishedFunc
	state    []layout.StateFunc

	sources   map[string]layout.ItemConfig
	loadCalls map[string]int
	initCalls int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		sources:   make(map[string]layout.ItemConfig),
		loadCalls: make(map[string]int),
	}
}

func (e *fakeEngine) CreateDragSource(handle string, cfg layout.ItemConfig) bool {
	if _, ok := e.sources[handle]; ok {
		return false
	}
	e.sources[handle] = cfg
	return true
}

func (e *fakeEngine) LoadWidget(name string) { e.loadCalls[name]++ }
func (e *fakeEngine) Loaded(name string) bool { return e.loadCalls[name] > 0 }
func (e *fakeEngine) InitializeDashboard() bool { e.initCalls++; return true }
func (e *fakeEngine) OnStateChanged(fn layout.StateFunc) { e.state = append(e.state, fn) }
func (e *fakeEngine) SetFinishedRegisteringCallback(fn layout.FinishedFunc) {
	e.finished = fn
}

func sampleWidgets() []model.WidgetDescriptor {
	return []model.WidgetDescriptor{
		{Name: "LineChart"},
		{Name: "BarChart"},
		{Name: "PieChart"},
		{Name: "Table"},
	}
}

// keyPress builds the KeyMsg a terminal would send for s.
func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// typeText feeds each rune of s as a separate key press.
func typeText(update func(tea.KeyMsg), s string) {
	for _, r := range s {
		update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}
