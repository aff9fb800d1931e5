package frame

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	origin, _ := url.Parse("http://127.0.0.1:8080")
	cases := map[string]string{
		"/v1/data/abc":        "http://127.0.0.1:8080/v1/data/abc",
		"/math?q=1":           "http://127.0.0.1:8080/math?q=1",
		"https://example.com": "https://example.com",
	}
	for in, want := range cases {
		if got := Resolve(origin, in); got != want {
			t.Errorf("Resolve(%q) = %q; want %q", in, got, want)
		}
	}
	if got := Resolve(nil, "/st"); got != "/st" {
		t.Errorf("Resolve(nil, /st) = %q; want /st", got)
	}
}

func TestRelativize(t *testing.T) {
	origin, _ := url.Parse("http://127.0.0.1:8080")
	cases := map[string]string{
		"http://127.0.0.1:8080/v1/data/h%7Dtw": "/v1/data/h%7Dtw",
		"http://127.0.0.1:8080/new?x=1":        "/new?x=1",
		"http://127.0.0.1:8080":                "/",
		"https://elsewhere.test/page":          "https://elsewhere.test/page",
		"about:blank":                          "about:blank",
	}
	for in, want := range cases {
		if got := Relativize(origin, in); got != want {
			t.Errorf("Relativize(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestMemoryFrameLoadAndBrowse(t *testing.T) {
	h := NewMemoryHost()
	h.TitleFor = func(addr string) string { return "title of " + addr }
	loads := make(chan LoadEvent, 4)

	f, err := h.Create(context.Background(), "1", "/new", func(ev LoadEvent) { loads <- ev })
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	select {
	case ev := <-loads:
		if ev.FrameID != "1" || ev.Kind != LoadComplete {
			t.Fatalf("load event = %+v; want complete for frame 1", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no load event after Create")
	}

	loc, _ := f.Location(context.Background())
	title, _ := f.Title(context.Background())
	if loc != "/new" || title != "title of /new" {
		t.Fatalf("Location/Title = %q/%q; want /new and its title", loc, title)
	}

	mf, ok := h.Frame("1")
	if !ok {
		t.Fatal("Frame(1) not found")
	}
	mf.Browse("/v1/data/next", "Next")
	if loc, _ := f.Location(context.Background()); loc != "/v1/data/next" {
		t.Fatalf("Location() after Browse = %q; want /v1/data/next", loc)
	}
	if got := mf.Navigations(); len(got) != 1 {
		t.Fatalf("Navigations() = %v; want only the initial navigate", got)
	}
}

func TestMemoryFrameBlockedAndClosed(t *testing.T) {
	h := NewMemoryHost()
	f, _ := h.Create(context.Background(), "a", "/st", nil)
	mf, _ := h.Frame("a")

	mf.Block(true)
	if _, err := f.Location(context.Background()); err == nil {
		t.Fatal("Location() on blocked frame = nil error; want error")
	}
	mf.Block(false)

	if err := f.SetVisible(context.Background(), true); err != nil || !mf.Visible() {
		t.Fatalf("SetVisible(true) = %v, visible = %v", err, mf.Visible())
	}
	_ = f.Close()
	if !mf.Closed() || mf.Visible() {
		t.Fatal("Close() did not release the frame")
	}
	if _, err := f.Navigate(context.Background(), "/x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Navigate() after Close = %v; want ErrClosed", err)
	}
}

func TestMemoryFrameFailLoads(t *testing.T) {
	h := NewMemoryHost()
	loads := make(chan LoadEvent, 2)
	f, _ := h.Create(context.Background(), "a", "/st", func(ev LoadEvent) { loads <- ev })
	<-loads

	mf, _ := h.Frame("a")
	mf.FailLoads(true)
	seq, _ := f.Navigate(context.Background(), "/v1/data/x")
	select {
	case ev := <-loads:
		if ev.Kind != LoadFailed || ev.Kind.String() != "failed" {
			t.Fatalf("load event = %+v; want failed", ev)
		}
		if ev.Seq != seq {
			t.Fatalf("load event Seq = %d; want %d", ev.Seq, seq)
		}
	case <-time.After(time.Second):
		t.Fatal("no failure event")
	}
}

func TestMemoryFrameSequences(t *testing.T) {
	h := NewMemoryHost()
	loads := make(chan LoadEvent, 4)
	f, _ := h.Create(context.Background(), "s", "/new", func(ev LoadEvent) { loads <- ev })
	if ev := <-loads; ev.Seq != InitialSeq {
		t.Fatalf("initial load Seq = %d; want %d", ev.Seq, InitialSeq)
	}

	mf, _ := h.Frame("s")
	mf.HoldLoads(true)
	seq, err := f.Navigate(context.Background(), "/v1/data/a")
	if err != nil || seq != InitialSeq+1 {
		t.Fatalf("Navigate() = %d, %v; want %d, nil", seq, err, InitialSeq+1)
	}
	select {
	case ev := <-loads:
		t.Fatalf("held navigation delivered %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	mf.Emit(seq, LoadComplete)
	if ev := <-loads; ev.Seq != seq || ev.Kind != LoadComplete {
		t.Fatalf("Emit() delivered %+v; want complete for seq %d", ev, seq)
	}

	mf.HoldLoads(false)
	mf.Browse("/v1/data/inside", "Inside")
	select {
	case ev := <-loads:
		if ev.Seq != 0 {
			t.Fatalf("in-frame load Seq = %d; want 0", ev.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("no load after Browse")
	}
	if got := mf.Seq(); got != seq {
		t.Fatalf("Seq() = %d; want %d", got, seq)
	}
}
