// Package suggest builds the address-bar dropdown: a local math result,
// matching lunar:// links and remote search suggestions.
package suggest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgnsrekt/lunarsession/internal/omnibox"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// MaxRemote caps the remote suggestions returned.
const MaxRemote = 7

// Link is an internal route offered in the dropdown.
type Link struct {
	Address string `json:"address"`
	Label   string `json:"label"`
}

type Result struct {
	Query  string   `json:"query"`
	Math   string   `json:"math,omitempty"`
	Links  []Link   `json:"links,omitempty"`
	Remote []string `json:"remote,omitempty"`
}

// Empty reports whether nothing would be shown.
func (r Result) Empty() bool {
	return r.Math == "" && len(r.Links) == 0 && len(r.Remote) == 0
}

// Recorder counts remote lookup outcomes.
type Recorder interface {
	Suggest(outcome string)
}

type Config struct {
	Endpoint string
	// RequestsPerSecond limits remote lookups; zero means unlimited.
	RequestsPerSecond float64
	Timeout           time.Duration
}

type Service struct {
	endpoint string
	client   *retryablehttp.Client
	limiter  *rate.Limiter
	rec      Recorder
}

func New(cfg Config, rec Recorder) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.RetryWaitMin = 50 * time.Millisecond
	client.RetryWaitMax = 200 * time.Millisecond
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Service{endpoint: cfg.Endpoint, client: client, limiter: limiter, rec: rec}
}

// Suggest never fails. A successfully evaluated math expression is answered
// locally without a remote lookup; remote failures produce an empty remote
// list.
func (s *Service) Suggest(ctx context.Context, q string) Result {
	q = strings.TrimSpace(q)
	res := Result{Query: q}
	if q == "" {
		return res
	}

	if omnibox.IsMathExpr(q) {
		if v, ok := omnibox.Eval(q); ok {
			res.Math = v
			return res
		}
	}
	if strings.HasPrefix(strings.ToLower(q), omnibox.InternalScheme) {
		for _, addr := range omnibox.MatchRoutes(q) {
			res.Links = append(res.Links, Link{Address: addr, Label: omnibox.RouteLabels[addr]})
		}
	}
	res.Remote = s.remote(ctx, q)
	return res
}

func (s *Service) remote(ctx context.Context, q string) []string {
	if s.endpoint == "" {
		return nil
	}
	if !s.limiter.Allow() {
		s.record("limited")
		return nil
	}
	out, err := s.fetch(ctx, q)
	if err != nil {
		slog.Debug("suggestion lookup failed", "query", q, "error", err)
		s.record("error")
		return nil
	}
	s.record("ok")
	if len(out) > MaxRemote {
		out = out[:MaxRemote]
	}
	return out
}

func (s *Service) fetch(ctx context.Context, q string) ([]string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, err
	}
	params := u.Query()
	params.Set("q", q)
	u.RawQuery = params.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("suggest endpoint returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return payload.Suggestions, nil
}

func (s *Service) record(outcome string) {
	if s.rec != nil {
		s.rec.Suggest(outcome)
	}
}
