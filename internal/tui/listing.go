package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/tinytelemetry/portal/internal/model"
)

// Messages shown by the listing page.
const (
	listingLoadingText = "Loading Dashboards..."
	listingErrorText   = "Cannot list available dashboards"
	listingEmptyText   = "No Dashboards Available"
)

const (
	cardHeight     = 4 // border + two content lines
	listingTopRows = 3 // header + list title + blank line
)

type listingState int

const (
	listingLoading listingState = iota
	listingError
	listingLoaded
)

func (s listingState) String() string {
	switch s {
	case listingLoading:
		return "loading"
	case listingError:
		return "error"
	case listingLoaded:
		return "loaded"
	}
	return "unknown"
}

// dashboardsMsg carries one completed list fetch.
type dashboardsMsg struct {
	gen        int
	dashboards []model.DashboardDescriptor
	err        error
}

// noticeExpiredMsg hides the error notice it was scheduled for.
type noticeExpiredMsg struct {
	gen int
	seq int
}

// ListingPage is the landing page: one card per saved dashboard.
type ListingPage struct {
	modalStack
	deps Deps
	keys KeyMap

	gen    int
	ctx    context.Context
	cancel context.CancelFunc

	state      listingState
	dashboards []model.DashboardDescriptor
	err        error
	cursor     int

	noticeVisible bool
	noticeSeq     int

	width  int
	height int
}

func NewListingPage(deps Deps) *ListingPage {
	return &ListingPage{
		deps: deps,
		keys: DefaultKeyMap(),
	}
}

func (p *ListingPage) ID() string { return PageListing }

func (p *ListingPage) Init() tea.Cmd { return p.Mount(nil) }

// Mount starts a fresh visit: back to Loading with one fetch in flight.
func (p *ListingPage) Mount(_ any) tea.Cmd {
	p.Unmount()
	p.gen++
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.cursor = 0
	return p.retrieve()
}

// Unmount cancels the in-flight fetch; its late result is ignored.
func (p *ListingPage) Unmount() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.clearModals()
	p.noticeVisible = false
}

// retrieve enters Loading and fetches the dashboard list.
func (p *ListingPage) retrieve() tea.Cmd {
	p.state = listingLoading
	p.err = nil
	p.dashboards = nil

	return tea.Batch(p.fetchCmd(), spinnerTick(PageListing, p.gen))
}

func (p *ListingPage) fetchCmd() tea.Cmd {
	api, ctx, gen := p.deps.API, p.ctx, p.gen
	return func() tea.Msg {
		list, err := api.GetDashboardList(ctx)
		return dashboardsMsg{gen: gen, dashboards: list, err: err}
	}
}

func (p *ListingPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width, p.height = msg.Width, msg.Height
		return nil, nil

	case dashboardsMsg:
		return p.handleDashboards(msg), nil

	case noticeExpiredMsg:
		if msg.gen == p.gen && msg.seq == p.noticeSeq {
			p.noticeVisible = false
		}
		return nil, nil

	case spinnerTickMsg:
		if msg.page == PageListing && msg.gen == p.gen && p.state == listingLoading {
			return spinnerTick(PageListing, p.gen), nil
		}
		return nil, nil
	}

	if p.HasModal() {
		return p.updateModal(msg), nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return p.handleKey(msg)
	case tea.MouseMsg:
		return p.handleMouse(msg)
	}
	return nil, nil
}

// handleDashboards applies a fetch result as one state transition.
func (p *ListingPage) handleDashboards(msg dashboardsMsg) tea.Cmd {
	if msg.gen != p.gen || p.ctx == nil || p.ctx.Err() != nil {
		return nil
	}
	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return nil
		}
		log.Printf("listing: fetch dashboards: %v", msg.err)
		p.state = listingError
		p.err = msg.err
		p.dashboards = nil
		p.cursor = 0
		p.noticeVisible = true
		p.noticeSeq++
		gen, seq := p.gen, p.noticeSeq
		return tea.Tick(p.deps.noticeDuration(), func(time.Time) tea.Msg {
			return noticeExpiredMsg{gen: gen, seq: seq}
		})
	}

	sorted := slices.Clone(msg.dashboards)
	model.SortDashboardsByURL(sorted)
	p.dashboards = sorted
	p.state = listingLoaded
	p.cursor = min(p.cursor, max(0, len(sorted)-1))
	return nil
}

func (p *ListingPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	switch {
	case key.Matches(msg, p.keys.Quit):
		return tea.Quit, nil
	case key.Matches(msg, p.keys.Create):
		return nil, navTo(PageCreate, nil)
	case key.Matches(msg, p.keys.Escape):
		p.noticeVisible = false
	case key.Matches(msg, p.keys.Retry):
		if p.state != listingLoading {
			p.noticeVisible = false
			return p.retrieve(), nil
		}
	case key.Matches(msg, p.keys.Up):
		p.moveCursor(-1)
	case key.Matches(msg, p.keys.Down):
		p.moveCursor(1)
	case key.Matches(msg, p.keys.Home):
		p.cursor = 0
	case key.Matches(msg, p.keys.End):
		p.cursor = max(0, len(p.dashboards)-1)
	case key.Matches(msg, p.keys.PageUp):
		p.moveCursor(-p.visibleCards())
	case key.Matches(msg, p.keys.PageDown):
		p.moveCursor(p.visibleCards())
	case key.Matches(msg, p.keys.Enter):
		if d, ok := p.Selected(); ok {
			return nil, navTo(PageDesigner, d.URL)
		}
	case key.Matches(msg, p.keys.Inspect):
		if p.state == listingLoaded {
			p.push(NewStatsModal(p.deps.modalContext(), p.dashboards))
		}
	case key.Matches(msg, p.keys.Describe):
		if d, ok := p.Selected(); ok {
			p.push(NewDescriptionModal(p.deps.modalContext(), d))
		}
	case key.Matches(msg, p.keys.Help):
		p.push(NewHelpModal(p.deps.modalContext(), "Dashboards",
			helpSection{"navigation", []key.Binding{p.keys.Up, p.keys.Down, p.keys.Home, p.keys.End, p.keys.Enter}},
			helpSection{"actions", []key.Binding{p.keys.Create, p.keys.Retry, p.keys.Inspect, p.keys.Describe, p.keys.Escape}},
			helpSection{"global", []key.Binding{p.keys.Help, p.keys.Quit, p.keys.ForceQuit}},
		))
	}
	return nil, nil
}

func (p *ListingPage) handleMouse(msg tea.MouseMsg) (tea.Cmd, *PageNav) {
	if msg.Action != tea.MouseActionPress {
		return nil, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if p.deps.ReverseScrollWheel {
			p.moveCursor(1)
		} else {
			p.moveCursor(-1)
		}
	case tea.MouseButtonWheelDown:
		if p.deps.ReverseScrollWheel {
			p.moveCursor(-1)
		} else {
			p.moveCursor(1)
		}
	case tea.MouseButtonLeft:
		if idx, ok := p.cardAt(msg.Y); ok {
			p.cursor = idx
			return nil, navTo(PageDesigner, p.dashboards[idx].URL)
		}
	}
	return nil, nil
}

// cardAt maps a screen row to a card index.
func (p *ListingPage) cardAt(y int) (int, bool) {
	if p.state != listingLoaded || y < listingTopRows {
		return 0, false
	}
	idx := p.scrollOffset() + (y-listingTopRows)/cardHeight
	if idx < 0 || idx >= len(p.dashboards) {
		return 0, false
	}
	return idx, true
}

func (p *ListingPage) moveCursor(delta int) {
	if len(p.dashboards) == 0 {
		return
	}
	p.cursor = max(0, min(len(p.dashboards)-1, p.cursor+delta))
}

func (p *ListingPage) visibleCards() int {
	// header, list title, blank line and status line
	return max(1, (p.height-listingTopRows-1)/cardHeight)
}

// scrollOffset keeps the cursor card on screen.
func (p *ListingPage) scrollOffset() int {
	return max(0, p.cursor-p.visibleCards()+1)
}

// Selected returns the dashboard under the cursor.
func (p *ListingPage) Selected() (model.DashboardDescriptor, bool) {
	if p.state != listingLoaded || p.cursor >= len(p.dashboards) {
		return model.DashboardDescriptor{}, false
	}
	return p.dashboards[p.cursor], true
}

// Dashboards returns the sorted list currently shown.
func (p *ListingPage) Dashboards() []model.DashboardDescriptor {
	return slices.Clone(p.dashboards)
}

func (p *ListingPage) View(width, height int) string {
	p.width, p.height = width, height
	if top := p.top(); top != nil {
		return top.View(width, height)
	}

	header := renderHeader(width, "Dashboards")
	status := statusLine{
		section:  "Dashboards",
		hints:    p.hints(),
		source:   p.deps.DataSource,
		sourceOK: p.state != listingError,
	}.render(width)

	bodyHeight := max(0, height-2)
	var body string
	switch p.state {
	case listingLoading:
		body = renderLoadingPlaceholder(listingLoadingText, width, bodyHeight)
	case listingError:
		body = p.renderError(width, bodyHeight)
	default:
		if len(p.dashboards) == 0 {
			body = lipgloss.Place(width, bodyHeight, lipgloss.Center, lipgloss.Center, messageStyle.Render(listingEmptyText))
		} else {
			body = p.renderCards(width)
		}
	}

	return pageFrame(width, height, header, body, status)
}

func (p *ListingPage) hints() []string {
	switch p.state {
	case listingLoading:
		return []string{"n: new", "q: quit"}
	case listingError:
		return []string{"r: retry", "n: new", "esc: dismiss", "q: quit"}
	}
	return []string{"enter: open", "n: new", "i: stats", "d: description", "?: help", "q: quit"}
}

// renderError shows the notice bottom-centred, like a snackbar.
func (p *ListingPage) renderError(width, height int) string {
	if !p.noticeVisible {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, dimStyle.Render("r to retry"))
	}
	notice := noticeStyle.Render(listingErrorText)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Bottom, notice)
}

func (p *ListingPage) renderCards(width int) string {
	cardWidth := max(20, min(width-4, 96))
	innerWidth := cardWidth - 4 // border + padding

	lines := []string{
		sectionStyle.Render(titleStyle.Render(fmt.Sprintf("Dashboards (%d)", len(p.dashboards)))),
		"",
	}

	offset := p.scrollOffset()
	end := min(len(p.dashboards), offset+p.visibleCards())
	for i := offset; i < end; i++ {
		lines = append(lines, renderCard(p.dashboards[i], innerWidth, i == p.cursor))
	}
	return strings.Join(lines, "\n")
}

func renderCard(d model.DashboardDescriptor, innerWidth int, selected bool) string {
	name := d.Name
	if name == "" {
		name = d.URL
	}
	meta := []string{"/" + d.URL, fmt.Sprintf("%d panels", len(d.Panels))}
	if d.Owner != "" {
		meta = append(meta, d.Owner)
	}

	first := titleStyle.Render(truncate.StringWithTail(name, uint(max(1, innerWidth/2)), "…")) +
		"  " + dimStyle.Render(strings.Join(meta, " · "))
	second := dimStyle.Render(truncate.StringWithTail(firstLine(d.Description), uint(innerWidth), "…"))

	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.Width(innerWidth + 2).Render(
		truncate.String(first, uint(innerWidth)) + "\n" + second,
	)
}

// firstLine returns the first non-empty line with markdown heading marks removed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return ""
}
