// Package layout is the in-process dashboard canvas: it owns drag sources,
// preloads widget definitions and tracks the panels placed on a dashboard.
//
// Callbacks registered with the engine run on engine goroutines (or on the
// goroutine that triggered the change) and must not call back into the engine.
package layout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/tinytelemetry/portal/internal/model"
)

// ComponentType is the item type used for widget drag sources.
const ComponentType = "component"

const defaultConcurrency = 4

var (
	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("layout: engine closed")
	// ErrAlreadyOpen is returned when Open is called twice.
	ErrAlreadyOpen = errors.New("layout: dashboard already open")
	// ErrUnknownSource is returned by Drop for a handle that was never registered.
	ErrUnknownSource = errors.New("layout: unknown drag source")
)

// Loader resolves dashboards and widget definitions. model.PortalAPI satisfies it.
type Loader interface {
	GetDashboard(ctx context.Context, url string) (model.DashboardDescriptor, error)
	GetWidgetDefinition(ctx context.Context, name string) (model.WidgetDefinition, error)
}

// ItemConfig describes what a drag source places on the canvas.
type ItemConfig struct {
	Title     string
	Type      string
	Component string
}

// Panel is one item placed on the canvas.
type Panel struct {
	ID     string
	Handle string
	Config ItemConfig
}

// State is a snapshot of the canvas.
type State struct {
	DashboardURL string
	Panels       []Panel
	Initialized  bool
}

// FinishedFunc is told when the engine is ready for drag sources
// (widgetsLoaded) and whether the dashboard can be initialized (initDashboard).
type FinishedFunc func(widgetsLoaded, initDashboard bool)

// StateFunc receives a snapshot after every canvas change.
type StateFunc func(State)

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency bounds how many widget definitions load at once.
func WithConcurrency(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLoadTimeout bounds each loader call.
func WithLoadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.loadTimeout = d
	}
}

type loadState struct {
	done chan struct{}
	def  model.WidgetDefinition
	err  error
}

func (ls *loadState) finished() bool {
	select {
	case <-ls.done:
		return true
	default:
		return false
	}
}

// Engine is safe for concurrent use.
type Engine struct {
	loader      Loader
	concurrency int64
	loadTimeout time.Duration
	sem         *semaphore.Weighted

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// cbMu is held for reading while a callback runs; Close takes it for
	// writing so no callback is in flight once Close returns.
	cbMu       sync.RWMutex
	onFinished FinishedFunc
	onState    []StateFunc

	mu          sync.Mutex
	closed      bool
	opened      bool
	url         string
	dashboard   model.DashboardDescriptor
	resolved    bool
	openErr     error
	sources     map[string]ItemConfig
	order       []string
	loads       map[string]*loadState
	panels      []Panel
	initialized bool
}

// NewEngine creates an engine that resolves data through loader.
func NewEngine(loader Loader, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		loader:      loader,
		concurrency: defaultConcurrency,
		loadTimeout: model.DefaultRequestTimeout,
		ctx:         ctx,
		cancel:      cancel,
		sources:     make(map[string]ItemConfig),
		loads:       make(map[string]*loadState),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sem = semaphore.NewWeighted(e.concurrency)
	return e
}

// SetFinishedRegisteringCallback replaces the finished callback.
func (e *Engine) SetFinishedRegisteringCallback(fn FinishedFunc) {
	e.cbMu.Lock()
	e.onFinished = fn
	e.cbMu.Unlock()
}

// OnStateChanged adds a state listener.
func (e *Engine) OnStateChanged(fn StateFunc) {
	e.cbMu.Lock()
	e.onState = append(e.onState, fn)
	e.cbMu.Unlock()
}

// Open resolves the dashboard at url and preloads its panel definitions in
// the background, then fires the finished callback.
func (e *Engine) Open(ctx context.Context, url string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.opened {
		e.mu.Unlock()
		return ErrAlreadyOpen
	}
	e.opened = true
	e.url = url
	e.wg.Add(1)
	e.mu.Unlock()

	go e.open(ctx, url)
	return nil
}

func (e *Engine) open(parent context.Context, url string) {
	defer e.wg.Done()

	ctx, cancel := context.WithCancel(e.ctx)
	defer cancel()
	stop := context.AfterFunc(parent, cancel)
	defer stop()

	lctx, lcancel := e.loadContext(ctx)
	d, err := e.loader.GetDashboard(lctx, url)
	lcancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("layout: open %s: %v", url, err)
		e.mu.Lock()
		e.openErr = err
		e.mu.Unlock()
		e.fireFinished(true, false)
		return
	}

	e.mu.Lock()
	e.dashboard = d
	e.resolved = true
	e.mu.Unlock()

	pending := make([]*loadState, 0, len(d.Panels))
	for _, name := range uniqueNames(d.Panels) {
		pending = append(pending, e.startLoad(name))
	}
	for _, ls := range pending {
		select {
		case <-ls.done:
		case <-ctx.Done():
			return
		}
	}

	e.fireFinished(true, true)
}

// Err reports why Open failed, if it did.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openErr
}

// Dashboard returns the resolved dashboard.
func (e *Engine) Dashboard() (model.DashboardDescriptor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dashboard, e.resolved
}

// CreateDragSource registers handle as a drag source. It reports false when
// the handle is empty, already registered, or the engine is closed.
func (e *Engine) CreateDragSource(handle string, cfg ItemConfig) bool {
	if handle == "" {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	if _, ok := e.sources[handle]; ok {
		return false
	}
	e.sources[handle] = cfg
	e.order = append(e.order, handle)
	return true
}

// DragSources lists registered handles in registration order.
func (e *Engine) DragSources() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.order)
}

// LoadWidget preloads the definition for name. Repeated calls share one
// load; a failed load is retried on the next call.
func (e *Engine) LoadWidget(name string) {
	e.startLoad(name)
}

func (e *Engine) startLoad(name string) *loadState {
	e.mu.Lock()
	if ls, ok := e.loads[name]; ok && !(ls.finished() && ls.err != nil) {
		e.mu.Unlock()
		return ls
	}
	ls := &loadState{done: make(chan struct{})}
	if e.closed {
		e.mu.Unlock()
		ls.err = ErrClosed
		close(ls.done)
		return ls
	}
	e.loads[name] = ls
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()

		var (
			def model.WidgetDefinition
			err error
		)
		if err = e.sem.Acquire(e.ctx, 1); err == nil {
			ctx, cancel := e.loadContext(e.ctx)
			def, err = e.loader.GetWidgetDefinition(ctx, name)
			cancel()
			e.sem.Release(1)
		}

		e.mu.Lock()
		ls.def, ls.err = def, err
		close(ls.done)
		e.mu.Unlock()

		if err != nil {
			if e.ctx.Err() == nil {
				log.Printf("layout: load widget %s: %v", name, err)
			}
			return
		}
		e.emitState()
	}()
	return ls
}

// Loaded reports whether the definition for name has been preloaded.
func (e *Engine) Loaded(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls, ok := e.loads[name]
	return ok && ls.finished() && ls.err == nil
}

// Definition returns a preloaded widget definition.
func (e *Engine) Definition(name string) (model.WidgetDefinition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls, ok := e.loads[name]
	if !ok || !ls.finished() || ls.err != nil {
		return model.WidgetDefinition{}, false
	}
	return ls.def, true
}

// InitializeDashboard places the dashboard's stored panels on the canvas.
// It reports whether anything happened: later calls, calls before the
// dashboard resolved and calls after Close are no-ops.
func (e *Engine) InitializeDashboard() bool {
	e.mu.Lock()
	if e.closed || e.initialized || !e.resolved {
		e.mu.Unlock()
		return false
	}
	e.initialized = true
	for _, name := range e.dashboard.Panels {
		cfg, ok := e.sources[name]
		if !ok {
			cfg = ItemConfig{Title: name, Type: ComponentType, Component: name}
		}
		e.panels = append(e.panels, Panel{ID: uuid.NewString(), Handle: name, Config: cfg})
	}
	e.mu.Unlock()

	e.emitState()
	return true
}

// Drop places a registered drag source on the canvas.
func (e *Engine) Drop(handle string) (Panel, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Panel{}, ErrClosed
	}
	cfg, ok := e.sources[handle]
	if !ok {
		e.mu.Unlock()
		return Panel{}, fmt.Errorf("%w: %q", ErrUnknownSource, handle)
	}
	p := Panel{ID: uuid.NewString(), Handle: handle, Config: cfg}
	e.panels = append(e.panels, p)
	e.mu.Unlock()

	e.emitState()
	return p, nil
}

// State returns a snapshot of the canvas.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	return State{
		DashboardURL: e.url,
		Panels:       slices.Clone(e.panels),
		Initialized:  e.initialized,
	}
}

// Close cancels in-flight work and waits for it. No callback runs after
// Close returns.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.cbMu.Lock()
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		e.cbMu.Unlock()

		e.cancel()
		e.wg.Wait()
	})
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) fireFinished(widgetsLoaded, initDashboard bool) {
	e.cbMu.RLock()
	defer e.cbMu.RUnlock()
	if e.isClosed() || e.onFinished == nil {
		return
	}
	e.onFinished(widgetsLoaded, initDashboard)
}

func (e *Engine) emitState() {
	e.cbMu.RLock()
	defer e.cbMu.RUnlock()
	if len(e.onState) == 0 {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	st := e.stateLocked()
	e.mu.Unlock()

	for _, fn := range e.onState {
		fn(st)
	}
}

func (e *Engine) loadContext(parent context.Context) (context.Context, context.CancelFunc) {
	if e.loadTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, e.loadTimeout)
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
