package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/lunarsession/internal/bookmarks"
	"github.com/dgnsrekt/lunarsession/internal/favicon"
	"github.com/dgnsrekt/lunarsession/internal/frame"
	"github.com/dgnsrekt/lunarsession/internal/omnibox"
)

// Submission describes what an address-bar submit resolved to.
type Submission struct {
	TabID       int    `json:"tab_id"`
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Address     string `json:"address"`
}

// Submit classifies and normalizes input, encodes it with the active codec
// and writes it into the active frame. Unroutable input becomes a search.
func (m *Manager) Submit(ctx context.Context, input string) (Submission, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Submission{}, newError(CodeValidation, "input is required", nil)
	}

	m.mu.Lock()
	engine, backend := m.engine, m.backend
	m.mu.Unlock()

	d := omnibox.Normalize(input, engine)
	m.metrics.Submission(d.Kind.String())

	target := d.Address
	if !d.Local {
		m.ensureTransport(ctx)
		target = m.codecs.Encode(backend, d.Address)
		if target == "" {
			return Submission{}, newError(CodeValidation, "codec backend "+backend+" produced no address", nil)
		}
	}

	id, err := m.navigateActive(ctx, target)
	if err != nil {
		return Submission{}, err
	}
	slog.Info("address submitted", "tab_id", id, "kind", d.Kind.String(), "address", target)
	return Submission{TabID: id, Kind: d.Kind.String(), Destination: d.Address, Address: target}, nil
}

// RequestNewTab is the single entry point for navigations that ask for a
// new tab, such as a frame opening a window.
func (m *Manager) RequestNewTab(ctx context.Context, destination string) (int, error) {
	dest := strings.TrimSpace(destination)
	target := dest

	switch {
	case dest == "":
	case omnibox.IsLocal(dest) || m.codecs.Routed(dest):
	default:
		m.mu.Lock()
		engine, backend := m.engine, m.backend
		m.mu.Unlock()

		d := omnibox.Normalize(dest, engine)
		target = d.Address
		if !d.Local {
			m.ensureTransport(ctx)
			target = m.codecs.Encode(backend, d.Address)
		}
	}
	return m.OpenTab(ctx, target)
}

// Back moves the active tab's history cursor and re-drives its frame. It
// returns the address navigated to, or "" when there is nothing behind.
func (m *Manager) Back(ctx context.Context) (string, error) {
	return m.step(ctx, true)
}

func (m *Manager) Forward(ctx context.Context) (string, error) {
	return m.step(ctx, false)
}

func (m *Manager) step(ctx context.Context, back bool) (string, error) {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	t, ok := m.byID[m.activeID]
	if !ok {
		m.mu.Unlock()
		return "", newError(CodeTabNotFound, "no active tab", nil)
	}
	var addr string
	var moved bool
	if back {
		addr, moved = t.history.Back()
	} else {
		addr, moved = t.history.Forward()
	}
	m.mu.Unlock()
	if !moved {
		return "", nil
	}

	if err := m.navigate(ctx, t, addr); err != nil {
		m.mu.Lock()
		if back {
			t.history.Forward()
		} else {
			t.history.Back()
		}
		m.mu.Unlock()
		return "", err
	}
	return addr, nil
}

// Reload re-drives the active frame to its last observed location.
func (m *Manager) Reload(ctx context.Context) (string, error) {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	t, ok := m.byID[m.activeID]
	var addr string
	if ok {
		addr = t.location
	}
	m.mu.Unlock()
	if !ok {
		return "", newError(CodeTabNotFound, "no active tab", nil)
	}
	return addr, m.navigate(ctx, t, addr)
}

// ToggleBookmark bookmarks or un-bookmarks the active tab's address and
// reports whether it is now bookmarked.
func (m *Manager) ToggleBookmark(ctx context.Context) (bool, error) {
	if m.marks == nil {
		return false, newError(CodeValidation, "bookmarks unavailable", nil)
	}
	m.mu.Lock()
	t, ok := m.byID[m.activeID]
	var b bookmarks.Bookmark
	if ok {
		b = bookmarks.Bookmark{Name: t.title, Icon: string(t.icon), Destination: t.address}
	}
	m.mu.Unlock()
	if !ok {
		return false, newError(CodeTabNotFound, "no active tab", nil)
	}
	if b.Destination == "" {
		return false, newError(CodeValidation, "active tab has no address", nil)
	}
	return m.marks.Toggle(ctx, b)
}

// Bookmarked reports whether the active tab's address is bookmarked.
func (m *Manager) Bookmarked(ctx context.Context) bool {
	return m.bookmarked(ctx, m.Address())
}

func (m *Manager) bookmarked(ctx context.Context, addr string) bool {
	if m.marks == nil || addr == "" {
		return false
	}
	ok, err := m.marks.Contains(ctx, addr)
	if err != nil {
		slog.Debug("bookmark lookup failed", "address", addr, "error", err)
		return false
	}
	return ok
}

func (m *Manager) navigateActive(ctx context.Context, target string) (int, error) {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	t, ok := m.byID[m.activeID]
	m.mu.Unlock()
	if !ok {
		return 0, newError(CodeTabNotFound, "no active tab", nil)
	}
	return t.id, m.navigate(ctx, t, target)
}

// navigate requires switchMu. Frame sequences only grow, so loads numbered
// below the new navigation's sequence belong to superseded documents.
func (m *Manager) navigate(ctx context.Context, t *tab, target string) error {
	m.mu.Lock()
	prev := t.loadSeq
	t.loadSeq = prev + 1
	m.mu.Unlock()

	m.loading.Start()
	seq, err := t.frame.Navigate(ctx, target)
	if err != nil {
		m.mu.Lock()
		t.loadSeq = prev
		m.mu.Unlock()
		m.loading.Reset()
		return newError(CodeFrameUnavailable, "navigate frame", err)
	}
	m.mu.Lock()
	if seq > t.loadSeq {
		t.loadSeq = seq
	}
	m.mu.Unlock()
	return nil
}

// ensureTransport waits for the configured transport. Activation failures
// are transient: they are logged and the navigation proceeds.
func (m *Manager) ensureTransport(ctx context.Context) {
	if m.tunnel == nil || m.cfg.Transport == "" {
		return
	}
	if err := m.tunnel.EnsureActive(ctx, m.cfg.Transport, m.cfg.TransportParams); err != nil {
		slog.Warn("transport not ready", "transport", m.cfg.Transport, "error", err)
	}
}

// display turns a frame location into address-bar text.
func (m *Manager) display(loc string) string {
	if internal, ok := omnibox.ReverseRoute(loc); ok {
		return internal
	}
	if m.codecs.Routed(loc) {
		return m.codecs.Decode(loc)
	}
	return loc
}

// destination is the real-world URL behind loc, or "" for local pages.
func (m *Manager) destination(loc string) string {
	if omnibox.IsLocal(loc) {
		return ""
	}
	if m.codecs.Routed(loc) {
		return m.codecs.Decode(loc)
	}
	if favicon.Origin(loc) != "" {
		return loc
	}
	return ""
}

func (m *Manager) onLocation(id int, gen uint64, loc string) {
	m.mu.Lock()
	t, ok := m.byID[id]
	if !ok || m.activeID != id || m.gen != gen || m.closed {
		m.mu.Unlock()
		return
	}
	t.location = loc
	t.history.Push(loc)
	t.address = m.display(loc)
	m.address = t.address
	nav := Navigation{TabID: id, Location: loc, Address: t.address}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(m.ctx, time.Second)
	nav.Bookmarked = m.bookmarked(ctx, nav.Address)
	cancel()

	m.metrics.Navigation(m.codecs.Routed(loc))
	m.refresh(id)
	m.notifyNavigation(nav)
}

func (m *Manager) onTitle(id int, gen uint64, title string) {
	title = strings.TrimSpace(title)
	m.mu.Lock()
	t, ok := m.byID[id]
	if !ok || m.activeID != id || m.gen != gen || title == "" || t.title == title {
		m.mu.Unlock()
		return
	}
	t.title = title
	m.mu.Unlock()
	m.notifyTabs()
}

func (m *Manager) loadHandler(id int) frame.LoadFunc {
	return func(ev frame.LoadEvent) {
		m.mu.Lock()
		t, ok := m.byID[id]
		active := m.activeID == id
		closed := m.closed
		current := ok && ev.Seq != 0 && ev.Seq >= t.loadSeq
		m.mu.Unlock()
		if !ok || closed {
			return
		}
		if active && current {
			if ev.Kind == frame.LoadFailed {
				slog.Debug("frame load failed", "tab_id", id, "reason", ev.Reason)
				m.loading.Reset()
			} else {
				m.loading.Done()
			}
		}
		if ev.Kind == frame.LoadComplete {
			m.refresh(id)
		}
	}
}

// refresh re-reads the title and resolves the favicon off the caller's
// goroutine. Results for a tab closed in the meantime are dropped.
func (m *Manager) refresh(id int) {
	m.mu.Lock()
	t, ok := m.byID[id]
	if !ok || m.closed {
		m.mu.Unlock()
		return
	}
	f, fallback := t.frame, t.location
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(m.ctx, refreshTimeout)
		defer cancel()

		loc, err := f.Location(ctx)
		if err != nil {
			slog.Debug("refresh location unavailable", "tab_id", id, "error", err)
			loc = fallback
		}
		// An unreadable title keeps the current one.
		title, err := f.Title(ctx)
		if err != nil {
			slog.Debug("refresh title unavailable", "tab_id", id, "error", err)
		} else if title = strings.TrimSpace(title); title == "" {
			title = DefaultTitle
		}

		icon := favicon.Placeholder
		if dest := m.destination(loc); dest != "" && m.icons != nil {
			icon = m.icons.Resolve(ctx, dest)
		}

		m.mu.Lock()
		t, ok := m.byID[id]
		if !ok || m.closed {
			m.mu.Unlock()
			return
		}
		changed := t.icon != icon
		t.icon = icon
		if title != "" && t.title != title {
			t.title = title
			changed = true
		}
		m.mu.Unlock()

		if changed {
			m.notifyTabs()
		}
	}()
}
