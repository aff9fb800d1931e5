package loading

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

func waitState(t *testing.T, in *Indicator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if in.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("State() = %v; want %v", in.State(), want)
}

func TestDoneSettlesThenIdles(t *testing.T) {
	rec := &recorder{}
	in := New(time.Minute, 20*time.Millisecond, rec.record)

	in.Start()
	if in.State() != Loading {
		t.Fatalf("State() = %v; want loading", in.State())
	}
	in.Done()
	if in.State() != Settling {
		t.Fatalf("State() = %v; want settling", in.State())
	}
	waitState(t, in, Idle)

	got := rec.snapshot()
	want := []State{Loading, Settling, Idle}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transitions = %v; want %v", got, want)
		}
	}
}

func TestMaxWaitTimesOutToIdle(t *testing.T) {
	in := New(30*time.Millisecond, 10*time.Millisecond, nil)
	in.Start()
	waitState(t, in, Idle)
}

func TestResetCancelsPendingTimers(t *testing.T) {
	rec := &recorder{}
	in := New(20*time.Millisecond, 10*time.Millisecond, rec.record)
	in.Start()
	in.Reset()
	time.Sleep(60 * time.Millisecond)

	if in.State() != Idle {
		t.Fatalf("State() = %v; want idle", in.State())
	}
	got := rec.snapshot()
	if len(got) != 2 || got[0] != Loading || got[1] != Idle {
		t.Fatalf("transitions = %v; want [loading idle]", got)
	}
}

func TestDoneWhileIdleIsIgnored(t *testing.T) {
	rec := &recorder{}
	in := New(0, 0, rec.record)
	in.Done()
	if in.State() != Idle {
		t.Fatalf("State() = %v; want idle", in.State())
	}
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("transitions = %v; want none", got)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Loading: "loading", Settling: "settling", State(9): "unknown"} {
		if got := s.String(); got != want {
			t.Fatalf("State(%d).String() = %q; want %q", s, got, want)
		}
	}
}
