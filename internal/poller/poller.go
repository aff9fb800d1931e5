package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultInterval = 250 * time.Millisecond
	MinInterval     = 200 * time.Millisecond
	MaxInterval     = 400 * time.Millisecond
)

// SampleFunc reads the current location of the watched frame.
type SampleFunc func(ctx context.Context) (string, error)

// ChangeFunc receives a location that differs from the previous sample.
type ChangeFunc func(location string)

// Poller samples a frame on a fixed cadence and reports changes. Ticks run on
// a single goroutine, so a tick never starts while the previous one is busy.
type Poller struct {
	name     string
	interval time.Duration
	sample   SampleFunc
	onChange ChangeFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   string
}

// ClampInterval bounds d to the supported polling range.
func ClampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultInterval
	}
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// New builds a stopped poller. last seeds the diff so a frame that is still
// at its previously observed location does not re-fire.
func New(name string, interval time.Duration, last string, sample SampleFunc, onChange ChangeFunc) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{name: name, interval: interval, sample: sample, onChange: onChange, last: last}
}

// Start launches the sampling loop. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(loopCtx, p.done)
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Last returns the most recently observed location.
func (p *Poller) Last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	loc, err := p.sample(ctx)
	if err != nil {
		slog.Debug("poller sample skipped", "poller", p.name, "error", err)
		return
	}
	if loc == "" || ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	changed := loc != p.last
	if changed {
		p.last = loc
	}
	p.mu.Unlock()

	if changed && p.onChange != nil {
		p.onChange(loc)
	}
}
