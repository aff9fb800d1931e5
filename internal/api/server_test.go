package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/lunarsession/internal/bookmarks"
	"github.com/dgnsrekt/lunarsession/internal/controller"
	"github.com/dgnsrekt/lunarsession/internal/metrics"
	"github.com/dgnsrekt/lunarsession/internal/session"
	"github.com/dgnsrekt/lunarsession/internal/suggest"
)

type stubService struct {
	tabs     []session.TabInfo
	closed   []int
	backend  string
	navigate error
}

func (s *stubService) ListTabs(ctx context.Context) ([]session.TabInfo, error) { return s.tabs, nil }
func (s *stubService) OpenTab(ctx context.Context, destination string) (session.TabInfo, error) {
	return session.TabInfo{ID: 2, Location: destination, Active: true}, nil
}
func (s *stubService) CloseTab(ctx context.Context, id int) error {
	if id != 1 {
		return &session.CodedError{Code: session.CodeTabNotFound, Message: "tab not found"}
	}
	s.closed = append(s.closed, id)
	return nil
}
func (s *stubService) ActivateTab(ctx context.Context, id int) (session.TabInfo, error) {
	return session.TabInfo{ID: id, Active: true}, nil
}
func (s *stubService) ReorderTabs(ctx context.Context, dragged, target int, after bool) ([]session.TabInfo, error) {
	return s.tabs, nil
}
func (s *stubService) Navigate(ctx context.Context, input string) (session.Submission, error) {
	if s.navigate != nil {
		return session.Submission{}, s.navigate
	}
	if strings.TrimSpace(input) == "" {
		return session.Submission{}, &session.CodedError{Code: session.CodeValidation, Message: "input is required"}
	}
	return session.Submission{TabID: 1, Kind: "bare_domain", Destination: "https://" + input, Address: "/v1/data/x"}, nil
}
func (s *stubService) Back(ctx context.Context) (string, error)    { return "/new", nil }
func (s *stubService) Forward(ctx context.Context) (string, error) { return "", nil }
func (s *stubService) Reload(ctx context.Context) (string, error)  { return "/v1/data/x", nil }
func (s *stubService) ListBookmarks(ctx context.Context) ([]bookmarks.Bookmark, error) {
	return []bookmarks.Bookmark{{Name: "Google", Destination: "https://google.com"}}, nil
}
func (s *stubService) ToggleBookmark(ctx context.Context) (bool, error) { return true, nil }
func (s *stubService) Suggest(ctx context.Context, q string) (suggest.Result, error) {
	return suggest.Result{Query: q, Math: "4"}, nil
}
func (s *stubService) Status(ctx context.Context) (controller.Status, error) {
	return controller.Status{ActiveTab: 1, Tabs: 1, Loading: "idle", Backend: "sc"}, nil
}
func (s *stubService) Encode(ctx context.Context, backend, destination string) (string, error) {
	return "/v1/data/" + destination, nil
}
func (s *stubService) Decode(ctx context.Context, address string) (string, error) {
	return strings.TrimPrefix(address, "/v1/data/"), nil
}
func (s *stubService) SetBackend(ctx context.Context, backend string) error {
	s.backend = backend
	return nil
}
func (s *stubService) PingTransport(ctx context.Context, wsURL string) (controller.PingResult, error) {
	return controller.PingResult{}, &session.CodedError{Code: session.CodeTransportFailure, Message: "wisp ping failed"}
}
func (s *stubService) Settings(ctx context.Context) (map[string]any, error) {
	return map[string]any{"backend": "sc"}, nil
}
func (s *stubService) ResetSettings(ctx context.Context) (map[string]any, error) {
	return map[string]any{"backend": "sc"}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDocsDarkMode(t *testing.T) {
	h := NewServer(&stubService{}, Options{})
	w := do(t, h, http.MethodGet, "/docs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `data-theme="dark"`) {
		t.Fatalf("docs missing dark theme marker")
	}
}

func TestListTabs(t *testing.T) {
	svc := &stubService{tabs: []session.TabInfo{{ID: 1, Title: "New Tab", Active: true}}}
	w := do(t, NewServer(svc, Options{}), http.MethodGet, "/api/tabs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body %s", w.Code, http.StatusOK, w.Body.String())
	}
	var got struct {
		Tabs []session.TabInfo `json:"tabs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(got.Tabs) != 1 || got.Tabs[0].ID != 1 || !got.Tabs[0].Active {
		t.Fatalf("tabs = %+v", got.Tabs)
	}
}

func TestCloseTabStatusCodes(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, Options{})
	if w := do(t, h, http.MethodDelete, "/api/tabs/1", ""); w.Code != http.StatusOK {
		t.Fatalf("DELETE /api/tabs/1 status = %d, want 200", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/tabs/7", ""); w.Code != http.StatusNotFound {
		t.Fatalf("DELETE /api/tabs/7 status = %d, want 404", w.Code)
	}
	if len(svc.closed) != 1 {
		t.Fatalf("closed = %v; want [1]", svc.closed)
	}
}

func TestNavigate(t *testing.T) {
	h := NewServer(&stubService{}, Options{})
	w := do(t, h, http.MethodPost, "/api/navigate", `{"input":"example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	var sub session.Submission
	if err := json.Unmarshal(w.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if sub.Destination != "https://example.com" {
		t.Fatalf("destination = %q", sub.Destination)
	}

	if w := do(t, h, http.MethodPost, "/api/navigate", `{"input":"  "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank input status = %d, want 400", w.Code)
	}
}

func TestMapErrFrameUnavailable(t *testing.T) {
	svc := &stubService{navigate: &session.CodedError{Code: session.CodeFrameUnavailable, Message: "navigate frame"}}
	w := do(t, NewServer(svc, Options{}), http.MethodPost, "/api/navigate", `{"input":"x.com"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestMapErr(t *testing.T) {
	if mapErr(nil) != nil {
		t.Fatal("mapErr(nil) != nil")
	}
	tests := []struct {
		code string
		want int
	}{
		{session.CodeValidation, http.StatusBadRequest},
		{session.CodeTabNotFound, http.StatusNotFound},
		{session.CodeFrameUnavailable, http.StatusBadGateway},
		{session.CodeTransportFailure, http.StatusBadGateway},
		{"OTHER", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		err := mapErr(&session.CodedError{Code: tt.code, Message: "m"})
		se, ok := err.(interface{ GetStatus() int })
		if !ok {
			t.Fatalf("mapErr(%s) = %T; want huma status error", tt.code, err)
		}
		if se.GetStatus() != tt.want {
			t.Errorf("mapErr(%s) status = %d; want %d", tt.code, se.GetStatus(), tt.want)
		}
	}
}

func TestCodecAndBackendRoutes(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, Options{})

	w := do(t, h, http.MethodGet, "/api/codec/encode?destination=abc", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"/v1/data/abc"`) {
		t.Fatalf("encode = %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodGet, "/api/codec/decode?address=/v1/data/abc", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"destination":"abc"`) {
		t.Fatalf("decode = %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodPut, "/api/codec/backend", `{"backend":"uv"}`)
	if w.Code != http.StatusOK || svc.backend != "uv" {
		t.Fatalf("set backend = %d, backend %q", w.Code, svc.backend)
	}
}

func TestSuggestAndPing(t *testing.T) {
	h := NewServer(&stubService{}, Options{})
	w := do(t, h, http.MethodGet, "/api/suggest?q=2%2B2", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"math":"4"`) {
		t.Fatalf("suggest = %d %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodGet, "/api/transport/ping", ""); w.Code != http.StatusBadGateway {
		t.Fatalf("ping status = %d, want 502", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.TabOpened()
	w := do(t, NewServer(&stubService{}, Options{Metrics: m}), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "lunar_tabs_opened_total 1") {
		t.Fatalf("metrics body missing tab counter:\n%s", w.Body.String())
	}

	if w := do(t, NewServer(&stubService{}, Options{}), http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Fatalf("metrics without registry status = %d, want 404", w.Code)
	}
}
