package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/lunarsession/internal/bookmarks"
	"github.com/dgnsrekt/lunarsession/internal/controller"
	"github.com/dgnsrekt/lunarsession/internal/events"
	"github.com/dgnsrekt/lunarsession/internal/metrics"
	"github.com/dgnsrekt/lunarsession/internal/session"
	"github.com/dgnsrekt/lunarsession/internal/suggest"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	ListTabs(ctx context.Context) ([]session.TabInfo, error)
	OpenTab(ctx context.Context, destination string) (session.TabInfo, error)
	CloseTab(ctx context.Context, id int) error
	ActivateTab(ctx context.Context, id int) (session.TabInfo, error)
	ReorderTabs(ctx context.Context, dragged, target int, after bool) ([]session.TabInfo, error)
	Navigate(ctx context.Context, input string) (session.Submission, error)
	Back(ctx context.Context) (string, error)
	Forward(ctx context.Context) (string, error)
	Reload(ctx context.Context) (string, error)
	ListBookmarks(ctx context.Context) ([]bookmarks.Bookmark, error)
	ToggleBookmark(ctx context.Context) (bool, error)
	Suggest(ctx context.Context, q string) (suggest.Result, error)
	Status(ctx context.Context) (controller.Status, error)
	Encode(ctx context.Context, backend, destination string) (string, error)
	Decode(ctx context.Context, address string) (string, error)
	SetBackend(ctx context.Context, backend string) error
	PingTransport(ctx context.Context, wsURL string) (controller.PingResult, error)
	Settings(ctx context.Context) (map[string]any, error)
	ResetSettings(ctx context.Context) (map[string]any, error)
}

// Options carries the non-huma surfaces. Both fields may be nil.
type Options struct {
	Broker  *events.Broker
	Metrics *metrics.Metrics
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Lunar Session API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	if opts.Broker != nil {
		router.Get("/events", events.WSHandler(opts.Broker))
		router.Get("/events/sse", events.SSEHandler(opts.Broker))
	}
	router.Handle("/metrics", opts.Metrics.Handler())

	registerTabHandlers(api, svc)
	registerNavigationHandlers(api, svc)
	registerMiscHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *session.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case session.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case session.CodeTabNotFound:
			return huma.Error404NotFound(coded.Message)
		case session.CodeFrameUnavailable, session.CodeTransportFailure:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
