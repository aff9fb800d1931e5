package frame

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryHost creates in-process frames. Navigation completes after
// LoadDelay; TitleFor, when set, supplies the document title per address.
type MemoryHost struct {
	LoadDelay time.Duration
	TitleFor  func(address string) string

	mu     sync.Mutex
	frames map[string]*MemoryFrame
	order  []string
}

func NewMemoryHost() *MemoryHost {
	return &MemoryHost{frames: make(map[string]*MemoryFrame)}
}

func (h *MemoryHost) Create(ctx context.Context, id, address string, onLoad LoadFunc) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := &MemoryFrame{id: id, host: h, onLoad: onLoad}

	h.mu.Lock()
	if h.frames == nil {
		h.frames = make(map[string]*MemoryFrame)
	}
	h.frames[id] = f
	h.order = append(h.order, id)
	h.mu.Unlock()

	if _, err := f.Navigate(ctx, address); err != nil {
		return nil, err
	}
	return f, nil
}

// Frame returns the frame created under id.
func (h *MemoryHost) Frame(id string) (*MemoryFrame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.frames[id]
	return f, ok
}

// Created returns frame ids in creation order, including closed ones.
func (h *MemoryHost) Created() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.order...)
}

func (h *MemoryHost) Close() error {
	h.mu.Lock()
	frames := make([]*MemoryFrame, 0, len(h.frames))
	for _, f := range h.frames {
		frames = append(frames, f)
	}
	h.mu.Unlock()
	for _, f := range frames {
		_ = f.Close()
	}
	return nil
}

func (h *MemoryHost) titleFor(address string) string {
	if h.TitleFor == nil {
		return ""
	}
	return h.TitleFor(address)
}

// MemoryFrame is a scriptable frame used by MemoryHost.
type MemoryFrame struct {
	id     string
	host   *MemoryHost
	onLoad LoadFunc

	mu        sync.Mutex
	location  string
	title     string
	visible   bool
	closed    bool
	blocked   bool
	failLoads bool
	holdLoads bool
	seq       uint64
	navs      []string
}

func (f *MemoryFrame) ID() string { return f.id }

func (f *MemoryFrame) Navigate(ctx context.Context, address string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, ErrClosed
	}
	f.seq++
	seq := f.seq
	f.location = address
	f.title = f.host.titleFor(address)
	f.navs = append(f.navs, address)
	fail, hold := f.failLoads, f.holdLoads
	f.mu.Unlock()

	if !hold {
		f.scheduleLoad(fail, seq)
	}
	return seq, nil
}

func (f *MemoryFrame) scheduleLoad(fail bool, seq uint64) {
	if f.onLoad == nil {
		return
	}
	ev := LoadEvent{FrameID: f.id, Kind: LoadComplete, Seq: seq}
	if fail {
		ev.Kind = LoadFailed
		ev.Reason = "net::ERR_FAILED"
	}
	delay := f.host.LoadDelay
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		f.mu.Lock()
		closed := f.closed
		f.mu.Unlock()
		if !closed {
			f.onLoad(ev)
		}
	}()
}

func (f *MemoryFrame) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", ErrClosed
	}
	if f.blocked {
		return "", errors.New("blocked a frame from accessing a cross-origin frame")
	}
	return f.location, nil
}

func (f *MemoryFrame) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", ErrClosed
	}
	if f.blocked {
		return "", errors.New("blocked a frame from accessing a cross-origin frame")
	}
	return f.title, nil
}

func (f *MemoryFrame) SetVisible(_ context.Context, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.visible = visible
	return nil
}

func (f *MemoryFrame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.visible = false
	return nil
}

// Browse simulates navigation initiated inside the frame, which the parent
// only sees by sampling.
func (f *MemoryFrame) Browse(address, title string) {
	f.mu.Lock()
	f.location = address
	f.title = title
	fail := f.failLoads
	f.mu.Unlock()
	f.scheduleLoad(fail, 0)
}

// Block makes location and title reads fail as a cross-origin frame would.
func (f *MemoryFrame) Block(blocked bool) {
	f.mu.Lock()
	f.blocked = blocked
	f.mu.Unlock()
}

// HoldLoads suppresses load events of subsequent navigations until Emit.
func (f *MemoryFrame) HoldLoads(hold bool) {
	f.mu.Lock()
	f.holdLoads = hold
	f.mu.Unlock()
}

// Emit delivers a load event for navigation seq synchronously, as a
// document that finished late would.
func (f *MemoryFrame) Emit(seq uint64, kind LoadKind) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed || f.onLoad == nil {
		return
	}
	f.onLoad(LoadEvent{FrameID: f.id, Kind: kind, Seq: seq})
}

// Seq returns the sequence of the latest Navigate.
func (f *MemoryFrame) Seq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// FailLoads makes subsequent navigations report LoadFailed.
func (f *MemoryFrame) FailLoads(fail bool) {
	f.mu.Lock()
	f.failLoads = fail
	f.mu.Unlock()
}

func (f *MemoryFrame) Visible() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible
}

func (f *MemoryFrame) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Navigations returns every address written by Navigate.
func (f *MemoryFrame) Navigations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navs...)
}
