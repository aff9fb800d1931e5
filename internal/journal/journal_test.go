package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/lunarsession/internal/events"
	"github.com/google/go-cmp/cmp"
)

func readLines(t *testing.T, path string) []events.Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var out []events.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var evt events.Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, evt)
	}
	return out
}

func TestJournalWritesPublishedEvents(t *testing.T) {
	dir := t.TempDir()
	b := events.NewBroker(nil)
	j := Start(b, dir, 0)

	b.Publish(events.New(events.TypeTabsChanged, 0, nil))
	b.Publish(events.New(events.TypeNavigationChanged, 3, map[string]string{"address": "https://example.com"}))
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if b.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d; want 0 after Close", b.ClientCount())
	}

	date := time.Now().UTC().Format("2006-01-02")
	got := readLines(t, filepath.Join(dir, date, "events.jsonl"))
	var types []string
	for _, evt := range got {
		types = append(types, evt.Type)
	}
	if diff := cmp.Diff([]string{events.TypeTabsChanged, events.TypeNavigationChanged}, types); diff != "" {
		t.Fatalf("journal types mismatch (-want +got):\n%s", diff)
	}
	if got[1].TabID != 3 {
		t.Fatalf("TabID = %d; want 3", got[1].TabID)
	}
}

func TestJournalRotatesByDate(t *testing.T) {
	dir := t.TempDir()
	j := &Journal{dir: dir, maxSizeMB: 1, now: func() time.Time { return time.Date(2026, 1, 2, 23, 59, 0, 0, time.UTC) }}
	j.write(events.New(events.TypeLoading, 1, nil))
	j.now = func() time.Time { return time.Date(2026, 1, 3, 0, 1, 0, 0, time.UTC) }
	j.write(events.New(events.TypeLoading, 1, nil))
	if err := j.out.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, d := range []string{"2026-01-02", "2026-01-03"} {
		if n := len(readLines(t, filepath.Join(dir, d, "events.jsonl"))); n != 1 {
			t.Errorf("%s lines = %d; want 1", d, n)
		}
	}
}
