// Package favicon resolves small icons for destinations, trying a direct
// lookup first and the tunneled transport second.
package favicon

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/lunarsession/internal/transport"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"
)

// IconRef is either Placeholder or a data URI.
type IconRef string

const (
	Placeholder     IconRef = "/a/moon.svg"
	DefaultEndpoint         = "https://t2.gstatic.com/faviconV2?client=SOCIAL&type=FAVICON&fallback_opts=TYPE,SIZE,URL&size=64"
	defaultCache            = 256
)

// IsPlaceholder reports whether ref is the fallback icon.
func (r IconRef) IsPlaceholder() bool { return r == Placeholder || r == "" }

// Tunnel is the part of transport.Negotiator the resolver needs.
type Tunnel interface {
	EnsureActive(ctx context.Context, id string, params transport.Params) error
	Client() *http.Client
}

// Recorder counts where each icon came from.
type Recorder interface {
	Favicon(source string)
}

type Config struct {
	Endpoint  string
	Transport string
	Params    transport.Params
	CacheSize int
	Timeout   time.Duration
}

type Resolver struct {
	endpoint    string
	transportID string
	params      transport.Params
	timeout     time.Duration
	direct      *resty.Client
	tunnel      Tunnel
	rec         Recorder

	mu    sync.Mutex
	cache *lru.Cache
	group singleflight.Group
}

func New(cfg Config, tunnel Tunnel, rec Recorder) *Resolver {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCache
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Resolver{
		endpoint:    cfg.Endpoint,
		transportID: cfg.Transport,
		params:      cfg.Params,
		timeout:     cfg.Timeout,
		direct:      resty.New().SetTimeout(cfg.Timeout),
		tunnel:      tunnel,
		rec:         rec,
		cache:       lru.New(cfg.CacheSize),
	}
}

// Resolve never fails: every error path ends at Placeholder. Lookups for
// one origin are shared and detached from ctx, bounded by two fetch
// timeouts; a caller whose ctx ends first gets Placeholder while the others
// keep waiting.
func (r *Resolver) Resolve(ctx context.Context, destination string) IconRef {
	origin := Origin(destination)
	if origin == "" {
		return Placeholder
	}

	r.mu.Lock()
	if v, ok := r.cache.Get(origin); ok {
		r.mu.Unlock()
		r.record("cache")
		return v.(IconRef)
	}
	r.mu.Unlock()

	ch := r.group.DoChan(origin, func() (any, error) {
		r.mu.Lock()
		cached, ok := r.cache.Get(origin)
		r.mu.Unlock()
		if ok {
			return cached, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*r.timeout)
		defer cancel()
		return r.resolve(fctx, origin), nil
	})

	select {
	case res := <-ch:
		return res.Val.(IconRef)
	case <-ctx.Done():
		return Placeholder
	}
}

func (r *Resolver) resolve(ctx context.Context, origin string) IconRef {
	lookup, err := r.lookupURL(origin)
	if err != nil {
		slog.Debug("favicon lookup url invalid", "origin", origin, "error", err)
		r.record("placeholder")
		return Placeholder
	}

	ref, err := r.fetch(ctx, r.direct, lookup)
	if err == nil {
		r.store(origin, ref)
		r.record("direct")
		return ref
	}
	slog.Debug("favicon direct fetch failed", "origin", origin, "error", err)

	if r.tunnel != nil && r.transportID != "" {
		if err := r.tunnel.EnsureActive(ctx, r.transportID, r.params); err != nil {
			slog.Debug("favicon tunnel unavailable", "origin", origin, "error", err)
		} else {
			tunneled := resty.NewWithClient(r.tunnel.Client()).SetTimeout(r.timeout)
			ref, err := r.fetch(ctx, tunneled, lookup)
			if err == nil {
				r.store(origin, ref)
				r.record("tunnel")
				return ref
			}
			slog.Debug("favicon tunneled fetch failed", "origin", origin, "error", err)
		}
	}

	r.record("placeholder")
	return Placeholder
}

func (r *Resolver) fetch(ctx context.Context, c *resty.Client, lookup string) (IconRef, error) {
	resp, err := c.R().SetContext(ctx).SetHeader("Accept", "image/*").Get(lookup)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("icon endpoint returned %d", resp.StatusCode())
	}
	return DataURI(resp.Body())
}

func (r *Resolver) lookupURL(origin string) (string, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("url", origin)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (r *Resolver) store(origin string, ref IconRef) {
	r.mu.Lock()
	r.cache.Add(origin, ref)
	r.mu.Unlock()
}

func (r *Resolver) record(source string) {
	if r.rec != nil {
		r.rec.Favicon(source)
	}
}

// DataURI turns icon bytes into a base64 data URI. Non-image payloads are
// rejected so an HTML error page never becomes an icon.
func DataURI(body []byte) (IconRef, error) {
	if len(body) == 0 {
		return "", errors.New("empty icon body")
	}
	mt := mimetype.Detect(body)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("icon payload is %s", mt.String())
	}
	mime, _, _ := strings.Cut(mt.String(), ";")
	return IconRef("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(body)), nil
}

// Origin returns scheme://host of an absolute http(s) destination, or "".
func Origin(destination string) string {
	u, err := url.Parse(strings.TrimSpace(destination))
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
