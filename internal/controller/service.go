package controller

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/lunarsession/internal/bookmarks"
	"github.com/dgnsrekt/lunarsession/internal/codec"
	"github.com/dgnsrekt/lunarsession/internal/session"
	"github.com/dgnsrekt/lunarsession/internal/store"
	"github.com/dgnsrekt/lunarsession/internal/suggest"
	"github.com/dgnsrekt/lunarsession/internal/transport"
)

const pingTimeout = 5 * time.Second

// Status summarizes the session for the control API.
type Status struct {
	ActiveTab  int    `json:"active_tab"`
	Tabs       int    `json:"tabs"`
	Address    string `json:"address"`
	Loading    string `json:"loading"`
	Transport  string `json:"transport"`
	Backend    string `json:"backend"`
	Bookmarked bool   `json:"bookmarked"`
}

type PingResult struct {
	URL       string `json:"url"`
	LatencyMS int64  `json:"latency_ms"`
}

// Deps wires the session layer into a Service. Only Sessions and Codecs are
// required.
type Deps struct {
	Sessions  *session.Manager
	Codecs    *codec.Registry
	Bookmarks *bookmarks.List
	Suggest   *suggest.Service
	Tunnel    *transport.Negotiator
	Settings  *store.Store
	Defaults  map[string]any
}

// Service wraps session operations exposed to the control API.
type Service struct {
	sessions *session.Manager
	codecs   *codec.Registry
	marks    *bookmarks.List
	suggest  *suggest.Service
	tunnel   *transport.Negotiator
	settings *store.Store
	defaults map[string]any
}

func NewService(d Deps) *Service {
	return &Service{
		sessions: d.Sessions,
		codecs:   d.Codecs,
		marks:    d.Bookmarks,
		suggest:  d.Suggest,
		tunnel:   d.Tunnel,
		settings: d.Settings,
		defaults: d.Defaults,
	}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &session.CodedError{Code: session.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

func (s *Service) requireTab(id int) (session.TabInfo, error) {
	info, ok := s.sessions.Tab(id)
	if !ok {
		return session.TabInfo{}, &session.CodedError{Code: session.CodeTabNotFound, Message: "tab " + strconv.Itoa(id) + " not found"}
	}
	return info, nil
}

func (s *Service) ListTabs(ctx context.Context) ([]session.TabInfo, error) {
	return s.sessions.Tabs(), nil
}

// OpenTab opens destination in a new active tab. An empty destination opens
// the new-tab page.
func (s *Service) OpenTab(ctx context.Context, destination string) (session.TabInfo, error) {
	id, err := s.sessions.RequestNewTab(ctx, destination)
	if err != nil {
		return session.TabInfo{}, err
	}
	return s.requireTab(id)
}

func (s *Service) CloseTab(ctx context.Context, id int) error {
	if _, err := s.requireTab(id); err != nil {
		return err
	}
	return s.sessions.CloseTab(ctx, id)
}

func (s *Service) ActivateTab(ctx context.Context, id int) (session.TabInfo, error) {
	if _, err := s.requireTab(id); err != nil {
		return session.TabInfo{}, err
	}
	s.sessions.SetActive(ctx, id)
	return s.requireTab(id)
}

func (s *Service) ReorderTabs(ctx context.Context, dragged, target int, after bool) ([]session.TabInfo, error) {
	if _, err := s.requireTab(dragged); err != nil {
		return nil, err
	}
	if _, err := s.requireTab(target); err != nil {
		return nil, err
	}
	s.sessions.Reorder(dragged, target, after)
	return s.sessions.Tabs(), nil
}

func (s *Service) Navigate(ctx context.Context, input string) (session.Submission, error) {
	if err := s.requireNonEmpty(input, "input"); err != nil {
		return session.Submission{}, err
	}
	return s.sessions.Submit(ctx, input)
}

func (s *Service) Back(ctx context.Context) (string, error) {
	return s.sessions.Back(ctx)
}

func (s *Service) Forward(ctx context.Context) (string, error) {
	return s.sessions.Forward(ctx)
}

func (s *Service) Reload(ctx context.Context) (string, error) {
	return s.sessions.Reload(ctx)
}

func (s *Service) ListBookmarks(ctx context.Context) ([]bookmarks.Bookmark, error) {
	if s.marks == nil {
		return []bookmarks.Bookmark{}, nil
	}
	list, err := s.marks.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []bookmarks.Bookmark{}
	}
	return list, nil
}

func (s *Service) ToggleBookmark(ctx context.Context) (bool, error) {
	return s.sessions.ToggleBookmark(ctx)
}

func (s *Service) Suggest(ctx context.Context, q string) (suggest.Result, error) {
	if s.suggest == nil {
		return suggest.Result{Query: q}, nil
	}
	return s.suggest.Suggest(ctx, q), nil
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	tabs := s.sessions.Tabs()
	st := Status{
		ActiveTab:  s.sessions.ActiveTabID(),
		Tabs:       len(tabs),
		Address:    s.sessions.Address(),
		Loading:    s.sessions.LoadingState().String(),
		Backend:    s.sessions.Backend(),
		Bookmarked: s.sessions.Bookmarked(ctx),
	}
	if s.tunnel != nil {
		st.Transport = s.tunnel.ActiveID()
	}
	return st, nil
}

// Encode routes destination through backend, or the active backend when
// backend is empty.
func (s *Service) Encode(ctx context.Context, backend, destination string) (string, error) {
	if err := s.requireNonEmpty(destination, "destination"); err != nil {
		return "", err
	}
	if backend == "" {
		backend = s.sessions.Backend()
	}
	if _, ok := s.codecs.Get(backend); !ok {
		return "", &session.CodedError{Code: session.CodeValidation, Message: "unknown codec backend " + strconv.Quote(backend)}
	}
	return s.codecs.Encode(backend, destination), nil
}

func (s *Service) Decode(ctx context.Context, address string) (string, error) {
	if err := s.requireNonEmpty(address, "address"); err != nil {
		return "", err
	}
	return s.codecs.Decode(address), nil
}

// SetBackend switches the active codec and persists the choice.
func (s *Service) SetBackend(ctx context.Context, backend string) error {
	if err := s.sessions.SetBackend(backend); err != nil {
		return err
	}
	if s.settings == nil {
		return nil
	}
	return s.settings.Set(ctx, store.KeyBackend, backend)
}

// PingTransport measures the wisp handshake latency. An empty url falls back
// to the persisted wisp endpoint.
func (s *Service) PingTransport(ctx context.Context, wsURL string) (PingResult, error) {
	if wsURL == "" && s.settings != nil {
		wsURL = s.settings.GetString(ctx, store.KeyWispURL, "")
	}
	if err := s.requireNonEmpty(wsURL, "url"); err != nil {
		return PingResult{}, err
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	d, err := transport.Ping(pctx, wsURL)
	if err != nil {
		return PingResult{}, &session.CodedError{Code: session.CodeTransportFailure, Message: "wisp ping failed", Cause: err}
	}
	return PingResult{URL: wsURL, LatencyMS: d.Milliseconds()}, nil
}

func (s *Service) Settings(ctx context.Context) (map[string]any, error) {
	if s.settings == nil {
		return map[string]any{}, nil
	}
	return s.settings.All(ctx)
}

// ResetSettings restores the defaults and re-applies the codec backend.
func (s *Service) ResetSettings(ctx context.Context) (map[string]any, error) {
	if s.settings == nil {
		return map[string]any{}, nil
	}
	if err := s.settings.Reset(ctx, s.defaults); err != nil {
		return nil, err
	}
	if backend := s.settings.GetString(ctx, store.KeyBackend, ""); backend != "" {
		if err := s.sessions.SetBackend(backend); err != nil {
			return nil, err
		}
	}
	s.sessions.SetEngine(s.settings.GetString(ctx, store.KeyEngine, ""))
	return s.settings.All(ctx)
}
