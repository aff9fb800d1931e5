// Package frame hosts the embedded browsing contexts that render proxied
// content. The session layer treats a frame as an opaque resource with a
// location, a title and a load-completion signal.
package frame

import (
	"context"
	"errors"
	"net/url"
)

// ErrClosed is returned by operations on a released frame.
var ErrClosed = errors.New("frame closed")

// LoadKind distinguishes load completion from load failure.
type LoadKind int

const (
	LoadComplete LoadKind = iota
	LoadFailed
)

func (k LoadKind) String() string {
	if k == LoadFailed {
		return "failed"
	}
	return "complete"
}

// LoadEvent is raised when a frame's top-level document finishes or fails.
// Seq is the Navigate sequence the document belongs to, or 0 when the frame
// navigated on its own.
type LoadEvent struct {
	FrameID string
	Kind    LoadKind
	Reason  string
	Seq     uint64
}

// InitialSeq is the sequence of the navigation Host.Create performs.
const InitialSeq uint64 = 1

// LoadFunc receives load events. It is called off the frame's event loop and
// may block briefly.
type LoadFunc func(LoadEvent)

// Frame is one embedded context. Location returns the address relative to
// the proxy origin when the frame is showing proxied content. Navigate
// returns a strictly increasing sequence that later load events carry.
type Frame interface {
	ID() string
	Navigate(ctx context.Context, address string) (uint64, error)
	Location(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	SetVisible(ctx context.Context, visible bool) error
	Close() error
}

// Host creates frames.
type Host interface {
	Create(ctx context.Context, id, address string, onLoad LoadFunc) (Frame, error)
	Close() error
}

// Resolve turns a proxy-relative address into an absolute URL under origin.
// Absolute addresses and a nil origin pass through.
func Resolve(origin *url.URL, address string) string {
	if origin == nil {
		return address
	}
	ref, err := url.Parse(address)
	if err != nil || ref.IsAbs() {
		return address
	}
	return origin.ResolveReference(ref).String()
}

// Relativize strips origin from href, keeping the escaped path and query.
// hrefs on other origins are returned unchanged.
func Relativize(origin *url.URL, href string) string {
	if origin == nil {
		return href
	}
	u, err := url.Parse(href)
	if err != nil || u.Scheme != origin.Scheme || u.Host != origin.Host {
		return href
	}
	rel := u.EscapedPath()
	if rel == "" {
		rel = "/"
	}
	if u.RawQuery != "" {
		rel += "?" + u.RawQuery
	}
	return rel
}
