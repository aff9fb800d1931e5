package frame

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// CDPConfig selects how the browser is reached. RemoteURL attaches to a
// running Chromium; otherwise a local one is launched.
type CDPConfig struct {
	RemoteURL string
	ExecPath  string
	Headless  bool
	Origin    string
	Timeout   time.Duration
}

// CDPHost renders each frame as a Chromium page target.
type CDPHost struct {
	origin  *url.URL
	timeout time.Duration

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	frames map[string]*cdpFrame
}

func NewCDPHost(cfg CDPConfig) (*CDPHost, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid proxy origin %q", cfg.Origin)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	h := &CDPHost{origin: origin, timeout: cfg.Timeout, frames: make(map[string]*cdpFrame)}
	if cfg.RemoteURL != "" {
		slog.Info("Connecting to Chromium", "url", cfg.RemoteURL)
		h.allocCtx, h.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", cfg.Headless))
		if cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
		}
		slog.Info("Launching Chromium", "exec", cfg.ExecPath, "headless", cfg.Headless)
		h.allocCtx, h.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	h.browserCtx, h.browserCancel = chromedp.NewContext(h.allocCtx)
	if err := chromedp.Run(h.browserCtx); err != nil {
		h.browserCancel()
		h.allocCancel()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return h, nil
}

func (h *CDPHost) Create(ctx context.Context, id, address string, onLoad LoadFunc) (Frame, error) {
	tabCtx, tabCancel := chromedp.NewContext(h.browserCtx)
	f := &cdpFrame{id: id, host: h, ctx: tabCtx, cancel: tabCancel}

	runCtx, cancel := f.runContext(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, network.Enable(), page.Enable()); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to enable network/page domains: %w", err)
	}
	chromedp.ListenTarget(tabCtx, f.eventHandler(onLoad))

	h.mu.Lock()
	h.frames[id] = f
	h.mu.Unlock()

	if _, err := f.Navigate(ctx, address); err != nil {
		_ = f.Close()
		return nil, err
	}
	slog.Info("Frame created", "frame_id", id, "address", address)
	return f, nil
}

func (h *CDPHost) Close() error {
	h.mu.Lock()
	frames := make([]*cdpFrame, 0, len(h.frames))
	for _, f := range h.frames {
		frames = append(frames, f)
	}
	h.frames = make(map[string]*cdpFrame)
	h.mu.Unlock()

	for _, f := range frames {
		f.cancel()
	}
	h.browserCancel()
	h.allocCancel()
	slog.Info("CDP frame host closed")
	return nil
}

type cdpFrame struct {
	id     string
	host   *CDPHost
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	seq       uint64
	loaders   map[cdp.LoaderID]uint64
	committed cdp.LoaderID
}

// maxLoaders bounds the loader-to-sequence map; older entries can only
// belong to superseded navigations.
const maxLoaders = 16

func (f *cdpFrame) ID() string { return f.id }

// runContext derives a chromedp-capable context from the tab that also ends
// when the caller's ctx does.
func (f *cdpFrame) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(f.ctx, f.host.timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (f *cdpFrame) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *cdpFrame) Navigate(ctx context.Context, address string) (uint64, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, ErrClosed
	}
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	target := Resolve(f.host.origin, address)
	runCtx, cancel := f.runContext(ctx)
	defer cancel()

	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		if c == nil || c.Target == nil {
			return errors.New("no target attached")
		}
		var raw json.RawMessage
		if err := c.Target.Execute(ctx, "Page.navigate", map[string]any{"url": target}, &raw); err != nil {
			return fmt.Errorf("navigate %s: %w", target, err)
		}
		var res struct {
			LoaderID  cdp.LoaderID `json:"loaderId"`
			ErrorText string       `json:"errorText"`
		}
		if err := json.Unmarshal(raw, &res); err == nil && res.ErrorText != "" {
			return fmt.Errorf("navigate %s: %s", target, res.ErrorText)
		}
		if res.LoaderID != "" {
			f.trackLoader(res.LoaderID, seq)
		}
		return nil
	}))
	return seq, err
}

func (f *cdpFrame) trackLoader(id cdp.LoaderID, seq uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaders == nil || len(f.loaders) >= maxLoaders {
		f.loaders = make(map[cdp.LoaderID]uint64)
	}
	f.loaders[id] = seq
}

// seqOf maps loader id, or the committed loader when id is empty, to the
// navigation that started it. Loaders the frame started itself map to 0.
func (f *cdpFrame) seqOf(id cdp.LoaderID) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == "" {
		id = f.committed
	}
	return f.loaders[id]
}

func (f *cdpFrame) commit(id cdp.LoaderID) {
	f.mu.Lock()
	f.committed = id
	f.mu.Unlock()
}

func (f *cdpFrame) Location(ctx context.Context) (string, error) {
	if f.isClosed() {
		return "", ErrClosed
	}
	runCtx, cancel := f.runContext(ctx)
	defer cancel()
	var href string
	if err := chromedp.Run(runCtx, chromedp.Location(&href)); err != nil {
		return "", err
	}
	return Relativize(f.host.origin, href), nil
}

func (f *cdpFrame) Title(ctx context.Context) (string, error) {
	if f.isClosed() {
		return "", ErrClosed
	}
	runCtx, cancel := f.runContext(ctx)
	defer cancel()
	var title string
	if err := chromedp.Run(runCtx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// SetVisible brings the page to the front. Hidden pages stay loaded in the
// background, so hiding is a no-op for Chromium.
func (f *cdpFrame) SetVisible(ctx context.Context, visible bool) error {
	if f.isClosed() {
		return ErrClosed
	}
	if !visible {
		return nil
	}
	runCtx, cancel := f.runContext(ctx)
	defer cancel()
	return chromedp.Run(runCtx, page.BringToFront())
}

func (f *cdpFrame) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	f.host.mu.Lock()
	delete(f.host.frames, f.id)
	f.host.mu.Unlock()

	// Cancelling a context created by chromedp.NewContext closes its target.
	f.cancel()
	return nil
}

func (f *cdpFrame) eventHandler(onLoad LoadFunc) func(ev interface{}) {
	return func(ev interface{}) {
		if onLoad == nil {
			return
		}
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame != nil && e.Frame.ParentID == "" {
				f.commit(e.Frame.LoaderID)
			}
		case *page.EventLoadEventFired:
			go onLoad(LoadEvent{FrameID: f.id, Kind: LoadComplete, Seq: f.seqOf("")})
		case *network.EventLoadingFailed:
			if e.Type != network.ResourceTypeDocument || e.Canceled {
				return
			}
			// A document request's id is its loader's id.
			seq := f.seqOf(cdp.LoaderID(e.RequestID))
			go onLoad(LoadEvent{FrameID: f.id, Kind: LoadFailed, Reason: e.ErrorText, Seq: seq})
		}
	}
}
