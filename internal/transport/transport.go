package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/lunarsession/internal/netutil"
	"github.com/gobwas/ws"
	"golang.org/x/net/proxy"
)

// Transport identifiers understood by Switcher.
const (
	Direct = "direct"
	Proxy  = "proxy"
	SOCKS5 = "socks5"
	Wisp   = "wisp"
)

// Params carries the endpoint details for an activation.
type Params struct {
	// Addr is the forward proxy (http://, https://, socks5:// or host:port).
	Addr string
	// WispURL is the websocket tunnel endpoint checked on wisp activation.
	WispURL string
}

// Provider abstracts how a tunneled fetch reaches the open network.
type Provider interface {
	ActiveID() string
	Activate(ctx context.Context, id string, params Params) error
}

// ClientProvider is implemented by providers that expose their active client.
type ClientProvider interface {
	Client() *http.Client
}

// Switcher is the stock Provider: it builds an http.Client per transport and
// swaps it in only after the endpoint has been verified.
type Switcher struct {
	probeTimeout time.Duration

	mu     sync.RWMutex
	active string
	client *http.Client
}

func NewSwitcher(probeTimeout time.Duration) *Switcher {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Switcher{probeTimeout: probeTimeout}
}

func (s *Switcher) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Client returns the active transport's client, or nil before activation.
func (s *Switcher) Client() *http.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Switcher) Activate(ctx context.Context, id string, params Params) error {
	start := time.Now()
	rt, err := s.build(ctx, id, params)
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.client
	s.active = id
	s.client = &http.Client{Transport: rt, Timeout: 30 * time.Second}
	s.mu.Unlock()

	if prev != nil {
		prev.CloseIdleConnections()
	}
	slog.Info("transport activated", "transport", id, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (s *Switcher) build(ctx context.Context, id string, params Params) (*http.Transport, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()

	switch id {
	case Direct:
		return base, nil

	case Proxy:
		u, err := proxyURL(params.Addr)
		if err != nil {
			return nil, err
		}
		if err := s.probe(ctx, u.String()); err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		return base, nil

	case SOCKS5:
		hp, err := netutil.HostPort(params.Addr)
		if err != nil {
			return nil, err
		}
		if err := s.probe(ctx, hp); err != nil {
			return nil, err
		}
		dialer, err := proxy.SOCKS5("tcp", hp, nil, &net.Dialer{Timeout: s.probeTimeout})
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		cd, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("socks5 dialer does not support contexts")
		}
		base.Proxy = nil
		base.DialContext = cd.DialContext
		return base, nil

	case Wisp:
		if _, err := Ping(ctx, params.WispURL); err != nil {
			return nil, err
		}
		if params.Addr != "" {
			u, err := proxyURL(params.Addr)
			if err != nil {
				return nil, err
			}
			base.Proxy = http.ProxyURL(u)
		}
		return base, nil

	default:
		return nil, fmt.Errorf("unknown transport %q", id)
	}
}

func (s *Switcher) probe(ctx context.Context, addr string) error {
	hp, err := netutil.HostPort(addr)
	if err != nil {
		return err
	}
	return netutil.ProbeTCP(ctx, hp, s.probeTimeout)
}

func proxyURL(addr string) (*url.URL, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("proxy transport requires an address")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("proxy address %q: %w", addr, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy address %q: missing host", addr)
	}
	return u, nil
}

// Ping completes a websocket handshake with wsURL and reports its latency.
func Ping(ctx context.Context, wsURL string) (time.Duration, error) {
	if !strings.HasPrefix(wsURL, "ws://") && !strings.HasPrefix(wsURL, "wss://") {
		return 0, fmt.Errorf("invalid tunnel url %q", wsURL)
	}
	start := time.Now()
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return 0, fmt.Errorf("tunnel handshake: %w", err)
	}
	latency := time.Since(start)
	if err := conn.Close(); err != nil {
		slog.Debug("tunnel ping close failed", "error", err)
	}
	return latency, nil
}
