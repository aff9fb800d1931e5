package loading

import (
	"sync"
	"time"
)

// State of the loading bar for the visible tab.
type State int

const (
	Idle State = iota
	Loading
	Settling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Settling:
		return "settling"
	default:
		return "unknown"
	}
}

const (
	DefaultMaxWait     = 10 * time.Second
	DefaultSettleDelay = 180 * time.Millisecond
)

// Indicator drives Idle -> Loading -> Settling -> Idle. Timers from an
// earlier cycle are fenced off by a generation counter.
type Indicator struct {
	maxWait     time.Duration
	settleDelay time.Duration
	onChange    func(State)

	mu    sync.Mutex
	state State
	gen   uint64
	timer *time.Timer
}

// New returns an idle indicator. Zero durations select the defaults.
func New(maxWait, settleDelay time.Duration, onChange func(State)) *Indicator {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}
	return &Indicator{maxWait: maxWait, settleDelay: settleDelay, onChange: onChange}
}

func (in *Indicator) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// Start enters Loading. A start while already loading keeps the running
// max-wait timer.
func (in *Indicator) Start() {
	in.mu.Lock()
	if in.state == Loading {
		in.mu.Unlock()
		return
	}
	gen := in.bumpLocked()
	in.state = Loading
	in.timer = time.AfterFunc(in.maxWait, func() { in.settle(gen) })
	in.mu.Unlock()
	in.notify(Loading)
}

// Done reports load completion of the visible frame.
func (in *Indicator) Done() {
	in.mu.Lock()
	gen := in.gen
	in.mu.Unlock()
	in.settle(gen)
}

// Reset returns to Idle immediately, cancelling pending timers.
func (in *Indicator) Reset() {
	in.mu.Lock()
	in.bumpLocked()
	changed := in.state != Idle
	in.state = Idle
	in.mu.Unlock()
	if changed {
		in.notify(Idle)
	}
}

// Close stops any pending timer without notifying.
func (in *Indicator) Close() {
	in.mu.Lock()
	in.bumpLocked()
	in.mu.Unlock()
}

func (in *Indicator) settle(gen uint64) {
	in.mu.Lock()
	if gen != in.gen || in.state != Loading {
		in.mu.Unlock()
		return
	}
	gen = in.bumpLocked()
	in.state = Settling
	in.timer = time.AfterFunc(in.settleDelay, func() { in.finish(gen) })
	in.mu.Unlock()
	in.notify(Settling)
}

func (in *Indicator) finish(gen uint64) {
	in.mu.Lock()
	if gen != in.gen || in.state != Settling {
		in.mu.Unlock()
		return
	}
	in.state = Idle
	in.mu.Unlock()
	in.notify(Idle)
}

func (in *Indicator) bumpLocked() uint64 {
	if in.timer != nil {
		in.timer.Stop()
		in.timer = nil
	}
	in.gen++
	return in.gen
}

func (in *Indicator) notify(s State) {
	if in.onChange != nil {
		in.onChange(s)
	}
}
