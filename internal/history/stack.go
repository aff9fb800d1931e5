package history

// Stack is the per-tab navigation history. It stores codec-encoded addresses
// and is not safe for concurrent use; the owning tab serializes access.
type Stack struct {
	entries []string
	cursor  int
}

func New() *Stack {
	return &Stack{cursor: -1}
}

// Push records address after the cursor, discarding any forward entries.
// Pushing the address already under the cursor is a no-op.
func (s *Stack) Push(address string) bool {
	if address == "" {
		return false
	}
	if s.cursor >= 0 && s.entries[s.cursor] == address {
		return false
	}
	s.entries = append(s.entries[:s.cursor+1], address)
	s.cursor = len(s.entries) - 1
	return true
}

// Back moves the cursor one step back and returns the entry there.
func (s *Stack) Back() (string, bool) {
	if s.cursor <= 0 {
		return "", false
	}
	s.cursor--
	return s.entries[s.cursor], true
}

// Forward moves the cursor one step forward and returns the entry there.
func (s *Stack) Forward() (string, bool) {
	if s.cursor < 0 || s.cursor >= len(s.entries)-1 {
		return "", false
	}
	s.cursor++
	return s.entries[s.cursor], true
}

func (s *Stack) Current() (string, bool) {
	if s.cursor < 0 {
		return "", false
	}
	return s.entries[s.cursor], true
}

func (s *Stack) CanBack() bool    { return s.cursor > 0 }
func (s *Stack) CanForward() bool { return s.cursor >= 0 && s.cursor < len(s.entries)-1 }

func (s *Stack) Len() int    { return len(s.entries) }
func (s *Stack) Cursor() int { return s.cursor }

// Entries returns a copy of the recorded addresses.
func (s *Stack) Entries() []string {
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}
