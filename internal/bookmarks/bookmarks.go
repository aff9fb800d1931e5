// Package bookmarks keeps the process-wide bookmark list in the settings
// store. Membership is decided on normalized destinations.
package bookmarks

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/dgnsrekt/lunarsession/internal/store"
)

type Bookmark struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Destination string `json:"destination"`
}

// Store is the subset of the settings store bookmarks need.
type Store interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// List guards read-modify-write cycles on the stored list. Writes are
// last-write-wins.
type List struct {
	store Store
	mu    sync.Mutex
}

func New(s Store) *List {
	return &List{store: s}
}

// Normalize percent-decodes dest and trims trailing slashes.
func Normalize(dest string) string {
	d := strings.TrimSpace(dest)
	if u, err := url.PathUnescape(d); err == nil {
		d = u
	}
	return strings.TrimRight(d, "/")
}

func (l *List) load(ctx context.Context) ([]Bookmark, error) {
	var list []Bookmark
	if _, err := l.store.Get(ctx, store.KeyBookmarks, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (l *List) List(ctx context.Context) ([]Bookmark, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

func (l *List) Contains(ctx context.Context, dest string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	return indexOf(list, dest) >= 0, nil
}

// Toggle adds b when its destination is not bookmarked and removes the
// existing entry otherwise. It reports whether b was added.
func (l *List) Toggle(ctx context.Context, b Bookmark) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	if i := indexOf(list, b.Destination); i >= 0 {
		list = append(list[:i], list[i+1:]...)
		return false, l.store.Set(ctx, store.KeyBookmarks, list)
	}
	if b.Name == "" {
		b.Name = b.Destination
	}
	list = append(list, b)
	return true, l.store.Set(ctx, store.KeyBookmarks, list)
}

// Remove deletes the bookmark for dest. It reports whether one existed.
func (l *List) Remove(ctx context.Context, dest string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(list, dest)
	if i < 0 {
		return false, nil
	}
	list = append(list[:i], list[i+1:]...)
	return true, l.store.Set(ctx, store.KeyBookmarks, list)
}

func indexOf(list []Bookmark, dest string) int {
	key := Normalize(dest)
	for i, b := range list {
		if Normalize(b.Destination) == key {
			return i
		}
	}
	return -1
}
