package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Recorder receives the outcome of each activation attempt.
type Recorder interface {
	Transport(id string, err error)
}

// Negotiator makes sure exactly one transport is active before a tunneled
// fetch. Concurrent requests for the same target share one activation, and
// activations for different targets run one at a time.
type Negotiator struct {
	provider Provider
	timeout  time.Duration
	rec      Recorder

	group singleflight.Group
	mu    sync.Mutex
}

func NewNegotiator(p Provider, timeout time.Duration, rec Recorder) *Negotiator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Negotiator{provider: p, timeout: timeout, rec: rec}
}

// ActiveID returns the id of the currently active transport.
func (n *Negotiator) ActiveID() string {
	return n.provider.ActiveID()
}

// EnsureActive returns once id is the active transport. The activation
// itself is detached from ctx so one impatient caller cannot abort it for
// the others sharing it.
func (n *Negotiator) EnsureActive(ctx context.Context, id string, params Params) error {
	if n.provider.ActiveID() == id {
		return nil
	}

	ch := n.group.DoChan(id, func() (any, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.provider.ActiveID() == id {
			return nil, nil
		}

		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		err := n.provider.Activate(actx, id, params)
		if n.rec != nil {
			n.rec.Transport(id, err)
		}
		if err != nil {
			slog.Warn("transport activation failed", "transport", id, "error", err)
		}
		return nil, err
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client returns the tunneled client of the active transport, falling back
// to http.DefaultClient when the provider does not expose one.
func (n *Negotiator) Client() *http.Client {
	if cp, ok := n.provider.(ClientProvider); ok {
		if c := cp.Client(); c != nil {
			return c
		}
	}
	return http.DefaultClient
}
