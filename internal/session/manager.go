// Package session owns the ordered tab collection, the active selection and
// the pollers that keep the address bar in sync with frames.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dgnsrekt/lunarsession/internal/bookmarks"
	"github.com/dgnsrekt/lunarsession/internal/codec"
	"github.com/dgnsrekt/lunarsession/internal/events"
	"github.com/dgnsrekt/lunarsession/internal/favicon"
	"github.com/dgnsrekt/lunarsession/internal/frame"
	"github.com/dgnsrekt/lunarsession/internal/history"
	"github.com/dgnsrekt/lunarsession/internal/loading"
	"github.com/dgnsrekt/lunarsession/internal/metrics"
	"github.com/dgnsrekt/lunarsession/internal/omnibox"
	"github.com/dgnsrekt/lunarsession/internal/poller"
	"github.com/dgnsrekt/lunarsession/internal/transport"
)

const (
	DefaultTitleInterval = 400 * time.Millisecond
	sampleTimeout        = 2 * time.Second
	refreshTimeout       = 10 * time.Second
)

// Tunnel activates the transport used for proxied fetches.
type Tunnel interface {
	EnsureActive(ctx context.Context, id string, params transport.Params) error
}

type IconResolver interface {
	Resolve(ctx context.Context, destination string) favicon.IconRef
}

type BookmarkList interface {
	Toggle(ctx context.Context, b bookmarks.Bookmark) (bool, error)
	Contains(ctx context.Context, dest string) (bool, error)
}

type Config struct {
	PollInterval    time.Duration
	TitleInterval   time.Duration
	LoadTimeout     time.Duration
	SettleDelay     time.Duration
	Backend         string
	Engine          string
	Transport       string
	TransportParams transport.Params
}

// Deps are the collaborators a Manager drives. Host and Codecs are
// required; the rest may be nil.
type Deps struct {
	Host      frame.Host
	Codecs    *codec.Registry
	Tunnel    Tunnel
	Icons     IconResolver
	Bookmarks BookmarkList
	Broker    *events.Broker
	Metrics   *metrics.Metrics
}

// Manager is safe for concurrent use. Observers run synchronously on the
// goroutine that caused the change and must not call back into structural
// methods (OpenTab, CloseTab, SetActive, Reorder).
type Manager struct {
	host    frame.Host
	codecs  *codec.Registry
	tunnel  Tunnel
	icons   IconResolver
	marks   BookmarkList
	broker  *events.Broker
	metrics *metrics.Metrics
	cfg     Config
	loading *loading.Indicator

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// switchMu serializes structural changes. Poller callbacks only take mu,
	// so switchMu may be held across Poller.Stop.
	switchMu sync.Mutex

	mu        sync.Mutex
	tabs      []*tab
	byID      map[int]*tab
	nextID    int
	activeID  int
	gen       uint64
	pollers   []*poller.Poller
	address   string
	backend   string
	engine    string
	closed    bool
	activeObs []func(int)
	navObs    []func(Navigation)
	tabsObs   []func([]TabInfo)
}

func New(cfg Config, deps Deps) (*Manager, error) {
	if deps.Host == nil || deps.Codecs == nil {
		return nil, newError(CodeValidation, "frame host and codec registry are required", nil)
	}
	if cfg.Backend == "" {
		cfg.Backend = codec.BackendScramjet
	}
	if _, ok := deps.Codecs.Get(cfg.Backend); !ok {
		return nil, newError(CodeValidation, "unknown codec backend "+strconv.Quote(cfg.Backend), nil)
	}
	if cfg.Engine == "" {
		cfg.Engine = omnibox.DefaultEngine
	}
	cfg.PollInterval = poller.ClampInterval(cfg.PollInterval)
	if cfg.TitleInterval <= 0 {
		cfg.TitleInterval = DefaultTitleInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		host:    deps.Host,
		codecs:  deps.Codecs,
		tunnel:  deps.Tunnel,
		icons:   deps.Icons,
		marks:   deps.Bookmarks,
		broker:  deps.Broker,
		metrics: deps.Metrics,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		byID:    make(map[int]*tab),
		nextID:  1,
		backend: cfg.Backend,
		engine:  cfg.Engine,
	}
	m.loading = loading.New(cfg.LoadTimeout, cfg.SettleDelay, m.onLoading)
	return m, nil
}

// Start opens the initial tab.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	empty := len(m.tabs) == 0
	m.mu.Unlock()
	if !empty {
		return nil
	}
	_, err := m.OpenTab(ctx, "")
	return err
}

// Close stops pollers and timers and releases every frame.
func (m *Manager) Close() error {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	pollers := m.pollers
	m.pollers = nil
	tabs := m.tabs
	m.mu.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
	m.cancel()
	m.wg.Wait()
	m.loading.Close()

	var errs []error
	for _, t := range tabs {
		if err := t.frame.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenTab creates a frame at address (the new-tab page when empty), appends
// it and makes it active.
func (m *Manager) OpenTab(ctx context.Context, address string) (int, error) {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()
	return m.openLocked(ctx, address)
}

// openLocked requires switchMu.
func (m *Manager) openLocked(ctx context.Context, address string) (int, error) {
	if address == "" {
		address = omnibox.NewTabPath
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, newError(CodeValidation, "session closed", nil)
	}
	id := m.nextID
	m.nextID++
	m.mu.Unlock()

	f, err := m.host.Create(ctx, strconv.Itoa(id), address, m.loadHandler(id))
	if err != nil {
		return 0, newError(CodeFrameUnavailable, "create frame", err)
	}

	t := &tab{
		id:       id,
		title:    DefaultTitle,
		icon:     favicon.Placeholder,
		frame:    f,
		history:  history.New(),
		location: address,
		address:  m.display(address),
		loadSeq:  frame.InitialSeq,
	}
	t.history.Push(address)

	m.mu.Lock()
	m.tabs = append(m.tabs, t)
	m.byID[id] = t
	op := m.beginSwitchLocked(t)
	m.mu.Unlock()

	m.metrics.TabOpened()
	slog.Info("tab opened", "tab_id", id, "address", address)
	m.finishSwitch(ctx, op)
	m.notifyTabs()
	m.refresh(id)
	return id, nil
}

// CloseTab removes id. Closing the last tab opens a blank one first so the
// collection is never observed empty. Unknown ids are ignored.
func (m *Manager) CloseTab(ctx context.Context, id int) error {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	last := len(m.tabs) == 1
	_, exists := m.byID[id]
	m.mu.Unlock()
	if !exists {
		return nil
	}
	if last {
		if _, err := m.openLocked(ctx, ""); err != nil {
			return err
		}
	}

	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return nil
	}
	t := m.tabs[idx]
	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)
	delete(m.byID, id)

	var op *switchOp
	if m.activeID == id {
		next := m.tabs[max(0, idx-1)]
		op = m.beginSwitchLocked(next)
	}
	m.mu.Unlock()

	if op != nil {
		m.finishSwitch(ctx, op)
	}
	if err := t.frame.Close(); err != nil {
		slog.Warn("frame close failed", "tab_id", id, "error", err)
	}
	m.metrics.TabClosed()
	slog.Info("tab closed", "tab_id", id)
	m.notifyTabs()
	return nil
}

// SetActive switches the visible tab. It is a no-op when id is already
// active or unknown.
func (m *Manager) SetActive(ctx context.Context, id int) bool {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	next, ok := m.byID[id]
	if !ok || m.activeID == id || m.closed {
		m.mu.Unlock()
		return false
	}
	op := m.beginSwitchLocked(next)
	m.mu.Unlock()

	m.finishSwitch(ctx, op)
	m.notifyTabs()
	return true
}

// Reorder moves dragged immediately before target, or after it when after
// is set. Unknown ids leave the order untouched.
func (m *Manager) Reorder(dragged, target int, after bool) bool {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	from, to := m.indexLocked(dragged), m.indexLocked(target)
	if from < 0 || to < 0 || from == to {
		m.mu.Unlock()
		return false
	}
	t := m.tabs[from]
	m.tabs = append(m.tabs[:from], m.tabs[from+1:]...)
	to = m.indexLocked(target)
	if after {
		to++
	}
	m.tabs = append(m.tabs[:to], append([]*tab{t}, m.tabs[to:]...)...)
	m.mu.Unlock()

	m.notifyTabs()
	return true
}

func (m *Manager) ActiveTabID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Tabs returns the tabs in strip order.
func (m *Manager) Tabs() []TabInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) Tab(id int) (TabInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return TabInfo{}, false
	}
	return t.info(id == m.activeID), true
}

// History returns the active tab's entries and cursor.
func (m *Manager) History() ([]string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[m.activeID]
	if !ok {
		return nil, -1
	}
	return t.history.Entries(), t.history.Cursor()
}

// Address is the address-bar text for the active tab.
func (m *Manager) Address() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.address
}

func (m *Manager) LoadingState() loading.State {
	return m.loading.State()
}

func (m *Manager) Backend() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend
}

// SetBackend selects the codec used for subsequent navigations.
func (m *Manager) SetBackend(name string) error {
	if _, ok := m.codecs.Get(name); !ok {
		return newError(CodeValidation, "unknown codec backend "+strconv.Quote(name), nil)
	}
	m.mu.Lock()
	m.backend = name
	m.mu.Unlock()
	return nil
}

func (m *Manager) SetEngine(engine string) {
	if engine == "" {
		engine = omnibox.DefaultEngine
	}
	m.mu.Lock()
	m.engine = engine
	m.mu.Unlock()
}

// OnActiveChanged registers fn for active-tab switches.
func (m *Manager) OnActiveChanged(fn func(id int)) {
	m.mu.Lock()
	m.activeObs = append(m.activeObs, fn)
	m.mu.Unlock()
}

// OnNavigationChanged registers fn for location changes of the active tab.
func (m *Manager) OnNavigationChanged(fn func(Navigation)) {
	m.mu.Lock()
	m.navObs = append(m.navObs, fn)
	m.mu.Unlock()
}

// OnTabsChanged registers fn for strip changes: open, close, reorder,
// switch and title or icon updates.
func (m *Manager) OnTabsChanged(fn func([]TabInfo)) {
	m.mu.Lock()
	m.tabsObs = append(m.tabsObs, fn)
	m.mu.Unlock()
}

type switchOp struct {
	prev *tab
	next *tab
	old  []*poller.Poller
	gen  uint64
}

// beginSwitchLocked moves the active selection to next and detaches the
// running pollers. m.mu must be held.
func (m *Manager) beginSwitchLocked(next *tab) *switchOp {
	op := &switchOp{prev: m.byID[m.activeID], next: next, old: m.pollers}
	m.pollers = nil
	m.gen++
	op.gen = m.gen
	m.activeID = next.id
	m.address = next.address
	return op
}

// finishSwitch stops the old pollers before starting the new tab's, so at
// most one location poller runs at any instant. switchMu must be held and
// m.mu must not.
func (m *Manager) finishSwitch(ctx context.Context, op *switchOp) {
	for _, p := range op.old {
		p.Stop()
	}
	if op.prev != nil && op.prev != op.next {
		if err := op.prev.frame.SetVisible(ctx, false); err != nil {
			slog.Debug("hide frame failed", "tab_id", op.prev.id, "error", err)
		}
	}
	if err := op.next.frame.SetVisible(ctx, true); err != nil {
		slog.Debug("show frame failed", "tab_id", op.next.id, "error", err)
	}
	m.loading.Reset()

	id, gen, f := op.next.id, op.gen, op.next.frame
	m.mu.Lock()
	lastLoc, lastTitle := op.next.location, op.next.title
	m.mu.Unlock()

	locations := poller.New("location", m.cfg.PollInterval, lastLoc, sampler(f.Location),
		func(loc string) { m.onLocation(id, gen, loc) })
	titles := poller.New("title", m.cfg.TitleInterval, lastTitle, sampler(f.Title),
		func(title string) { m.onTitle(id, gen, title) })

	m.mu.Lock()
	if m.closed || m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.pollers = []*poller.Poller{locations, titles}
	m.mu.Unlock()

	locations.Start(m.ctx)
	titles.Start(m.ctx)
	slog.Debug("active tab changed", "tab_id", id)
	m.notifyActive(id)
}

func sampler(read func(context.Context) (string, error)) poller.SampleFunc {
	return func(ctx context.Context) (string, error) {
		sctx, cancel := context.WithTimeout(ctx, sampleTimeout)
		defer cancel()
		return read(sctx)
	}
}

func (m *Manager) indexLocked(id int) int {
	for i, t := range m.tabs {
		if t.id == id {
			return i
		}
	}
	return -1
}

func (m *Manager) snapshotLocked() []TabInfo {
	out := make([]TabInfo, 0, len(m.tabs))
	for _, t := range m.tabs {
		out = append(out, t.info(t.id == m.activeID))
	}
	return out
}

func (m *Manager) notifyActive(id int) {
	m.mu.Lock()
	obs := append([]func(int){}, m.activeObs...)
	m.mu.Unlock()
	for _, fn := range obs {
		fn(id)
	}
	m.publish(events.New(events.TypeActiveChanged, id, nil))
}

func (m *Manager) notifyNavigation(nav Navigation) {
	m.mu.Lock()
	obs := append([]func(Navigation){}, m.navObs...)
	m.mu.Unlock()
	for _, fn := range obs {
		fn(nav)
	}
	m.publish(events.New(events.TypeNavigationChanged, nav.TabID, nav))
}

func (m *Manager) notifyTabs() {
	m.mu.Lock()
	snap := m.snapshotLocked()
	obs := append([]func([]TabInfo){}, m.tabsObs...)
	m.mu.Unlock()
	for _, fn := range obs {
		fn(snap)
	}
	m.publish(events.New(events.TypeTabsChanged, 0, snap))
}

func (m *Manager) onLoading(s loading.State) {
	m.publish(events.New(events.TypeLoading, m.ActiveTabID(), map[string]string{"state": s.String()}))
}

func (m *Manager) publish(evt events.Event) {
	if m.broker != nil {
		m.broker.Publish(evt)
	}
}
