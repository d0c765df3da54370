package tui

import (
	"log"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/portal/internal/layout"
)

// LayoutEngine is the part of the layout engine the widget panel drives.
type LayoutEngine interface {
	CreateDragSource(handle string, cfg layout.ItemConfig) bool
	LoadWidget(name string)
	Loaded(name string) bool
	InitializeDashboard() bool
	SetFinishedRegisteringCallback(fn layout.FinishedFunc)
	OnStateChanged(fn layout.StateFunc)
}

// engineFinishedMsg is the engine's finished callback, delivered to Update.
type engineFinishedMsg struct {
	gen           int
	widgetsLoaded bool
	initDashboard bool
}

// engineStateMsg reports a canvas change.
type engineStateMsg struct {
	gen   int
	state layout.State
}

const bridgeBuffer = 16

// engineBridge moves engine callbacks, which run on engine goroutines,
// onto the Bubble Tea loop. One bridge lives for one mount.
type engineBridge struct {
	gen  int
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

func newEngineBridge(gen int) *engineBridge {
	return &engineBridge{
		gen:  gen,
		ch:   make(chan tea.Msg, bridgeBuffer),
		done: make(chan struct{}),
	}
}

func (b *engineBridge) finished(widgetsLoaded, initDashboard bool) {
	select {
	case b.ch <- engineFinishedMsg{gen: b.gen, widgetsLoaded: widgetsLoaded, initDashboard: initDashboard}:
	case <-b.done:
	}
}

// stateChanged never blocks: it may run inside Update, which is the only
// reader. A dropped message is harmless since views read the latest state.
func (b *engineBridge) stateChanged(st layout.State) {
	log.Printf("widgets: layout state changed: dashboard=%s panels=%d initialized=%t",
		st.DashboardURL, len(st.Panels), st.Initialized)
	select {
	case b.ch <- engineStateMsg{gen: b.gen, state: st}:
	default:
	}
}

// listen waits for the next engine message. Re-issue it after each one.
func (b *engineBridge) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.ch:
			return msg
		case <-b.done:
			return nil
		}
	}
}

func (b *engineBridge) close() {
	b.once.Do(func() { close(b.done) })
}
