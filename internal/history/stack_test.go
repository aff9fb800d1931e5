package history

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPushAppendsAndAdvances(t *testing.T) {
	s := New()
	for _, a := range []string{"a", "b", "c"} {
		if !s.Push(a) {
			t.Fatalf("Push(%q) = false; want true", a)
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, s.Entries()); diff != "" {
		t.Fatalf("Entries() mismatch (-want +got):\n%s", diff)
	}
	if s.Cursor() != 2 {
		t.Fatalf("Cursor() = %d; want 2", s.Cursor())
	}
}

func TestBackThenPushTruncatesForward(t *testing.T) {
	s := New()
	s.Push("a")
	s.Push("b")
	s.Push("c")

	if got, ok := s.Back(); !ok || got != "b" {
		t.Fatalf("Back() = %q, %v; want b, true", got, ok)
	}
	s.Push("d")

	if diff := cmp.Diff([]string{"a", "b", "d"}, s.Entries()); diff != "" {
		t.Fatalf("Entries() mismatch (-want +got):\n%s", diff)
	}
	if cur, _ := s.Current(); cur != "d" {
		t.Fatalf("Current() = %q; want d", cur)
	}
	if s.CanForward() {
		t.Fatalf("CanForward() = true; want false after truncation")
	}
}

func TestDuplicateConsecutivePushIsNoop(t *testing.T) {
	s := New()
	s.Push("a")
	if s.Push("a") {
		t.Fatalf("Push(duplicate) = true; want false")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", s.Len())
	}
}

func TestPushCurrentAfterBackDoesNotDoublePush(t *testing.T) {
	s := New()
	s.Push("a")
	s.Push("b")
	back, _ := s.Back()
	// The poller observes the frame arriving at the address it was sent to.
	if s.Push(back) {
		t.Fatalf("Push(%q) after Back() = true; want no-op", back)
	}
	if diff := cmp.Diff([]string{"a", "b"}, s.Entries()); diff != "" {
		t.Fatalf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestBackForwardBounds(t *testing.T) {
	s := New()
	if _, ok := s.Back(); ok {
		t.Fatalf("Back() on empty = ok; want false")
	}
	if _, ok := s.Forward(); ok {
		t.Fatalf("Forward() on empty = ok; want false")
	}
	if _, ok := s.Current(); ok {
		t.Fatalf("Current() on empty = ok; want false")
	}

	s.Push("a")
	s.Push("b")
	if _, ok := s.Forward(); ok {
		t.Fatalf("Forward() at end = ok; want false")
	}
	s.Back()
	if _, ok := s.Back(); ok {
		t.Fatalf("Back() at start = ok; want false")
	}
	if got, ok := s.Forward(); !ok || got != "b" {
		t.Fatalf("Forward() = %q, %v; want b, true", got, ok)
	}
}

func TestEmptyAddressIgnored(t *testing.T) {
	s := New()
	if s.Push("") {
		t.Fatalf("Push(\"\") = true; want false")
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d; want 0", s.Len())
	}
}
