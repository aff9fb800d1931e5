package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/lunarsession/internal/api"
	"github.com/dgnsrekt/lunarsession/internal/bookmarks"
	"github.com/dgnsrekt/lunarsession/internal/codec"
	"github.com/dgnsrekt/lunarsession/internal/config"
	"github.com/dgnsrekt/lunarsession/internal/controller"
	"github.com/dgnsrekt/lunarsession/internal/events"
	"github.com/dgnsrekt/lunarsession/internal/favicon"
	"github.com/dgnsrekt/lunarsession/internal/frame"
	"github.com/dgnsrekt/lunarsession/internal/journal"
	"github.com/dgnsrekt/lunarsession/internal/metrics"
	"github.com/dgnsrekt/lunarsession/internal/netutil"
	"github.com/dgnsrekt/lunarsession/internal/session"
	"github.com/dgnsrekt/lunarsession/internal/store"
	"github.com/dgnsrekt/lunarsession/internal/suggest"
	"github.com/dgnsrekt/lunarsession/internal/transport"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	os.Exit(run())
}

// run owns every deferred cleanup so that failures after the frame host
// starts still close the browser and the store.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		return 1
	}

	slog.Info("lunar config loaded",
		"bind_addr", cfg.BindAddr,
		"port_candidates", cfg.PortCandidates,
		"port_auto_fallback", cfg.PortAutoFallback,
		"frame_host", cfg.FrameHost,
		"proxy_origin", cfg.ProxyOrigin,
		"poll_interval_ms", cfg.PollIntervalMS,
		"store_path", cfg.StorePath,
		"journal_dir", cfg.JournalDir,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		return 1
	}

	ctx := context.Background()
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		slog.Error("failed to open settings store", "path", cfg.StorePath, "error", err)
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Debug("settings store close failed", "error", err)
		}
	}()
	defaults, err := seedSettings(ctx, st, cfg)
	if err != nil {
		slog.Error("failed to seed settings", "error", err)
		return 1
	}

	host, err := newFrameHost(cfg)
	if err != nil {
		slog.Error("failed to start frame host", "frame_host", cfg.FrameHost, "error", err)
		return 1
	}
	defer func() {
		if err := host.Close(); err != nil {
			slog.Debug("frame host close failed", "error", err)
		}
	}()

	mets := metrics.New()
	broker := events.NewBroker(func(delta int) { mets.Subscribers(float64(delta)) })
	codecs := codec.NewDefaultRegistry()
	if cfg.JournalDir != "" {
		j := journal.Start(broker, cfg.JournalDir, 0)
		defer func() {
			if err := j.Close(); err != nil {
				slog.Debug("journal close failed", "error", err)
			}
		}()
	}

	transportID := st.GetString(ctx, store.KeyTransport, transport.Direct)
	params := transport.Params{
		Addr:    cfg.TransportAddr,
		WispURL: st.GetString(ctx, store.KeyWispURL, cfg.WispURL),
	}
	negotiator := transport.NewNegotiator(transport.NewSwitcher(5*time.Second), 15*time.Second, mets)
	icons := favicon.New(favicon.Config{
		Endpoint:  cfg.IconEndpoint,
		Transport: transportID,
		Params:    params,
	}, negotiator, mets)
	marks := bookmarks.New(st)

	mgr, err := session.New(session.Config{
		PollInterval:    cfg.PollInterval(),
		LoadTimeout:     cfg.LoadTimeout(),
		SettleDelay:     cfg.SettleDelay(),
		Backend:         st.GetString(ctx, store.KeyBackend, codec.BackendScramjet),
		Engine:          st.GetString(ctx, store.KeyEngine, ""),
		Transport:       transportID,
		TransportParams: params,
	}, session.Deps{
		Host:      host,
		Codecs:    codecs,
		Tunnel:    negotiator,
		Icons:     icons,
		Bookmarks: marks,
		Broker:    broker,
		Metrics:   mets,
	})
	if err != nil {
		slog.Error("failed to create session manager", "error", err)
		return 1
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			slog.Debug("session close failed", "error", err)
		}
	}()
	if err := mgr.Start(ctx); err != nil {
		slog.Error("failed to open initial tab", "error", err)
		return 1
	}

	svc := controller.NewService(controller.Deps{
		Sessions:  mgr,
		Codecs:    codecs,
		Bookmarks: marks,
		Suggest:   suggest.New(suggest.Config{Endpoint: cfg.SuggestEndpoint, RequestsPerSecond: 5}, mets),
		Tunnel:    negotiator,
		Settings:  st,
		Defaults:  defaults,
	})
	h := api.NewServer(svc, api.Options{Broker: broker, Metrics: mets})

	srv := &http.Server{Addr: bindAddr, Handler: h}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("lunar listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	code := 0
	select {
	case <-sigCh:
	case err := <-serveErr:
		slog.Error("lunar server failed", "error", err)
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("lunar shutdown failed", "error", err)
	}
	return code
}

// seedSettings fills missing settings from the defaults and then writes the
// transport settings given explicitly in the environment, which take
// precedence over stored values. It returns the defaults used for resets.
func seedSettings(ctx context.Context, st *store.Store, cfg *config.Config) (map[string]any, error) {
	defaults := store.Defaults(cfg.WispURL)
	defaults[store.KeyTransport] = cfg.Transport
	if err := st.Init(ctx, defaults); err != nil {
		return nil, err
	}
	if cfg.TransportSet {
		if err := st.Set(ctx, store.KeyTransport, cfg.Transport); err != nil {
			return nil, err
		}
	}
	if cfg.WispURLSet {
		if err := st.Set(ctx, store.KeyWispURL, cfg.WispURL); err != nil {
			return nil, err
		}
	}
	return defaults, nil
}

func newFrameHost(cfg *config.Config) (frame.Host, error) {
	if cfg.FrameHost == config.FrameHostMemory {
		slog.Warn("using in-process memory frames; pages are not rendered")
		return frame.NewMemoryHost(), nil
	}
	cdpCfg := frame.CDPConfig{
		ExecPath: cfg.HeadlessExe,
		Headless: true,
		Origin:   cfg.ProxyOrigin,
		Timeout:  cfg.LoadTimeout(),
	}
	if cfg.HeadlessExe == "" {
		cdpCfg.RemoteURL = cfg.CDPURL()
	}
	return frame.NewCDPHost(cdpCfg)
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
