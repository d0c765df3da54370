package tui

import tea "github.com/charmbracelet/bubbletea"

// Page identifiers used for navigation.
const (
	PageListing  = "listing"
	PageCreate   = "create"
	PageDesigner = "designer"
)

// Page represents a top-level screen in the TUI.
type Page interface {
	ID() string
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Cmd, *PageNav)
	View(width, height int) string
}

// Mountable is implemented by pages that hold per-visit state. Mount is
// called each time the page becomes active and Unmount when it is left.
type Mountable interface {
	Mount(params any) tea.Cmd
	Unmount()
}

// PageNav is returned from Update to request a page switch.
type PageNav struct {
	PageID string
	Params any
}

func navTo(id string, params any) *PageNav {
	return &PageNav{PageID: id, Params: params}
}
