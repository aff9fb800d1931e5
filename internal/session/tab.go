package session

import (
	"strings"
	"unicode/utf8"

	"github.com/dgnsrekt/lunarsession/internal/favicon"
	"github.com/dgnsrekt/lunarsession/internal/frame"
	"github.com/dgnsrekt/lunarsession/internal/history"
)

const (
	DefaultTitle = "New Tab"
	labelLen     = 18
)

// tab is owned by the Manager. All fields except frame are guarded by
// Manager.mu; the frame is safe for concurrent use.
type tab struct {
	id       int
	title    string
	icon     favicon.IconRef
	frame    frame.Frame
	history  *history.Stack
	location string
	address  string
	// loadSeq is the lowest frame sequence whose load belongs to the
	// current navigation.
	loadSeq uint64
}

// TabInfo is a point-in-time view of a tab.
type TabInfo struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Label      string `json:"label"`
	Icon       string `json:"icon"`
	Location   string `json:"location"`
	Address    string `json:"address"`
	Active     bool   `json:"active"`
	CanBack    bool   `json:"can_back"`
	CanForward bool   `json:"can_forward"`
}

func (t *tab) info(active bool) TabInfo {
	return TabInfo{
		ID:         t.id,
		Title:      t.title,
		Label:      Label(t.title),
		Icon:       string(t.icon),
		Location:   t.location,
		Address:    t.address,
		Active:     active,
		CanBack:    t.history.CanBack(),
		CanForward: t.history.CanForward(),
	}
}

// Label shortens a title for the tab strip.
func Label(title string) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= labelLen {
		return title
	}
	return string([]rune(title)[:labelLen]) + "…"
}

// Navigation is published whenever the active tab's location changes.
type Navigation struct {
	TabID      int    `json:"tab_id"`
	Location   string `json:"location"`
	Address    string `json:"address"`
	Bookmarked bool   `json:"bookmarked"`
}
