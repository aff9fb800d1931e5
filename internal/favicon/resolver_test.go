package favicon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgnsrekt/lunarsession/internal/transport"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeTunnel struct {
	client  *http.Client
	ensured atomic.Int32
	fail    error
}

func (f *fakeTunnel) EnsureActive(context.Context, string, transport.Params) error {
	f.ensured.Add(1)
	return f.fail
}

func (f *fakeTunnel) Client() *http.Client { return f.client }

type sources struct {
	mu   sync.Mutex
	seen []string
}

func (s *sources) Favicon(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, source)
}

func (s *sources) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.seen) == 0 {
		return ""
	}
	return s.seen[len(s.seen)-1]
}

func iconServer(t *testing.T, hits *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("url") == "" {
			http.Error(w, "missing url", http.StatusBadRequest)
			return
		}
		if status != http.StatusOK {
			http.Error(w, "nope", status)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// proxyTo returns a client that sends every request to srv regardless of
// the requested host, standing in for a tunnel.
func proxyTo(srv *httptest.Server) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		r2 := r.Clone(r.Context())
		r2.URL.Scheme = "http"
		r2.URL.Host = strings.TrimPrefix(srv.URL, "http://")
		r2.Host = r2.URL.Host
		return http.DefaultTransport.RoundTrip(r2)
	})}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestResolveDirectAndCache(t *testing.T) {
	var hits atomic.Int32
	srv := iconServer(t, &hits, http.StatusOK)
	rec := &sources{}
	r := New(Config{Endpoint: srv.URL + "/icon?size=64"}, nil, rec)

	ref := r.Resolve(context.Background(), "https://example.com/some/page")
	if !strings.HasPrefix(string(ref), "data:image/png;base64,") {
		t.Fatalf("Resolve() = %q; want png data uri", ref)
	}
	if rec.last() != "direct" {
		t.Fatalf("source = %q; want direct", rec.last())
	}

	again := r.Resolve(context.Background(), "https://example.com/other")
	if again != ref || hits.Load() != 1 || rec.last() != "cache" {
		t.Fatalf("second Resolve hits = %d source = %q; want cached result", hits.Load(), rec.last())
	}
}

func TestResolveFallsBackToTunnel(t *testing.T) {
	var badHits, goodHits atomic.Int32
	bad := iconServer(t, &badHits, http.StatusBadGateway)
	good := iconServer(t, &goodHits, http.StatusOK)
	tun := &fakeTunnel{client: proxyTo(good)}
	rec := &sources{}

	r := New(Config{Endpoint: bad.URL + "/icon", Transport: transport.Wisp}, tun, rec)
	ref := r.Resolve(context.Background(), "https://a.com")
	if ref.IsPlaceholder() {
		t.Fatalf("Resolve() = placeholder; want tunneled icon")
	}
	if tun.ensured.Load() != 1 || goodHits.Load() != 1 || rec.last() != "tunnel" {
		t.Fatalf("ensured = %d, tunnel hits = %d, source = %q", tun.ensured.Load(), goodHits.Load(), rec.last())
	}
}

func TestResolvePlaceholderWhenBothFail(t *testing.T) {
	var hits atomic.Int32
	bad := iconServer(t, &hits, http.StatusNotFound)
	tun := &fakeTunnel{fail: errors.New("tunnel down")}
	r := New(Config{Endpoint: bad.URL, Transport: transport.Wisp, Timeout: time.Second}, tun, nil)

	if ref := r.Resolve(context.Background(), "https://a.com"); ref != Placeholder {
		t.Fatalf("Resolve() = %q; want placeholder", ref)
	}
	// placeholders are not cached, so the next call retries
	_ = r.Resolve(context.Background(), "https://a.com")
	if hits.Load() != 2 {
		t.Fatalf("direct hits = %d; want 2", hits.Load())
	}
}

func TestResolveNonHTTPDestination(t *testing.T) {
	r := New(Config{}, nil, nil)
	for _, dest := range []string{"", "/st", "lunar://settings", "not a url"} {
		if ref := r.Resolve(context.Background(), dest); ref != Placeholder {
			t.Errorf("Resolve(%q) = %q; want placeholder", dest, ref)
		}
	}
}

func TestResolveCollapsesConcurrentLookups(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(30 * time.Millisecond)
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()
	r := New(Config{Endpoint: srv.URL}, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Resolve(context.Background(), "https://same.origin/page")
		}()
	}
	wg.Wait()
	if hits.Load() != 1 {
		t.Fatalf("endpoint hits = %d; want 1", hits.Load())
	}
}

func TestResolveSharedLookupOutlivesImpatientCaller(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()
	r := New(Config{Endpoint: srv.URL, Timeout: 2 * time.Second}, nil, nil)

	impatient := make(chan IconRef, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		impatient <- r.Resolve(ctx, "https://slow.origin/a")
	}()
	time.Sleep(10 * time.Millisecond)

	patient := r.Resolve(context.Background(), "https://slow.origin/b")
	if patient.IsPlaceholder() {
		t.Fatalf("Resolve(patient) = %q; want the fetched icon", patient)
	}
	if got := <-impatient; got != Placeholder {
		t.Fatalf("Resolve(impatient) = %q; want placeholder after its deadline", got)
	}
	if hits.Load() != 1 {
		t.Fatalf("endpoint hits = %d; want 1 shared lookup", hits.Load())
	}
}

func TestDataURIRejectsNonImage(t *testing.T) {
	if _, err := DataURI([]byte("<html><body>error</body></html>")); err == nil {
		t.Fatal("DataURI(html) = nil error; want rejection")
	}
	if _, err := DataURI(nil); err == nil {
		t.Fatal("DataURI(nil) = nil error; want rejection")
	}
}

func TestOrigin(t *testing.T) {
	cases := map[string]string{
		"https://example.com/a/b?c=d": "https://example.com",
		"http://host:8080":            "http://host:8080",
		"ftp://files.test":            "",
		"example.com":                 "",
	}
	for in, want := range cases {
		if got := Origin(in); got != want {
			t.Errorf("Origin(%q) = %q; want %q", in, got, want)
		}
	}
}
