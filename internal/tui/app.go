package tui

import (
	"log"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// App is the top-level Bubble Tea model that routes between pages.
type App struct {
	pages      map[string]Page
	activePage string
	width      int
	height     int
	keys       KeyMap
	closed     bool
}

// NewApp creates a new App with the given pages. The first page is the default.
func NewApp(pages ...Page) *App {
	pageMap := make(map[string]Page, len(pages))
	var firstID string
	for i, p := range pages {
		pageMap[p.ID()] = p
		if i == 0 {
			firstID = p.ID()
		}
	}
	return &App{
		pages:      pageMap,
		activePage: firstID,
		keys:       DefaultKeyMap(),
	}
}

func (a *App) Init() tea.Cmd {
	return a.mount(a.activePage, nil)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case tea.KeyMsg:
		if key.Matches(msg, a.keys.ForceQuit) {
			a.Close()
			return a, tea.Quit
		}
	}

	p, ok := a.pages[a.activePage]
	if !ok {
		return a, nil
	}

	cmd, nav := p.Update(msg)
	if nav != nil {
		return a, tea.Batch(cmd, a.Navigate(*nav))
	}
	return a, cmd
}

// Navigate unmounts the active page and mounts nav.PageID with nav.Params.
func (a *App) Navigate(nav PageNav) tea.Cmd {
	if _, exists := a.pages[nav.PageID]; !exists {
		log.Printf("tui: navigate: unknown page %q", nav.PageID)
		return nil
	}
	a.unmount(a.activePage)
	a.activePage = nav.PageID
	return a.mount(nav.PageID, nav.Params)
}

// ActivePage returns the ID of the page currently shown.
func (a *App) ActivePage() string { return a.activePage }

// Close unmounts the active page. Call it once the program has exited.
func (a *App) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.unmount(a.activePage)
}

func (a *App) mount(id string, params any) tea.Cmd {
	p, ok := a.pages[id]
	if !ok {
		return nil
	}
	var cmd tea.Cmd
	if m, ok := p.(Mountable); ok {
		cmd = m.Mount(params)
	} else {
		cmd = p.Init()
	}
	// Pages mounted after startup never saw the initial size.
	if a.width > 0 || a.height > 0 {
		size := tea.WindowSizeMsg{Width: a.width, Height: a.height}
		cmd = tea.Batch(cmd, func() tea.Msg { return size })
	}
	return cmd
}

func (a *App) unmount(id string) {
	if m, ok := a.pages[id].(Mountable); ok {
		m.Unmount()
	}
}

func (a *App) View() string {
	if p, ok := a.pages[a.activePage]; ok {
		return p.View(a.width, a.height)
	}
	return "No active page"
}
