package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"ChatPanel/internal/backend"
	"ChatPanel/internal/chatbot"
	"ChatPanel/internal/config"
	"ChatPanel/internal/settings"
	"ChatPanel/internal/storage"
	"ChatPanel/internal/telemetry"
)

// runtime holds everything a command needs, built from the config
type runtime struct {
	logger  *slog.Logger
	client  *backend.Client
	manager *settings.Manager
	db      *storage.DB
	bot     *chatbot.ChatBot

	closers []func()
}

func newRuntime(ctx context.Context, cfg config.Config, interactive bool) (*runtime, error) {
	rt := &runtime{}

	logger, logFile, err := telemetry.InitLogger(cfg.LogPath(), cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	rt.logger = logger
	rt.closers = append(rt.closers, func() { logFile.Close() })

	tracer, meter := telemetry.Noop()
	if cfg.Telemetry {
		t, m, cleanup, err := telemetry.InitTelemetry(ctx, cfg.LogPath())
		if err != nil {
			logger.Warn("telemetry disabled", "error", err)
		} else {
			tracer, meter = t, m
			rt.closers = append(rt.closers, cleanup)
		}
	}

	if cfg.Debug {
		logger.Info("Debug mode enabled")
	}

	store, err := rt.openStore(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.manager = settings.NewManager(store)

	rt.client = backend.NewClient(settings.DefaultAPIURL,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		backend.WithLogger(logger),
		backend.WithTracer(tracer),
		backend.WithMeter(meter),
	)

	opts := []chatbot.Option{
		chatbot.WithLogger(logger),
		chatbot.WithTelemetry(tracer, meter),
		chatbot.WithAPIURL(cfg.APIURL),
	}
	if rt.db != nil {
		opts = append(opts, chatbot.WithArchive(rt.db))
	}
	if interactive {
		view, err := chatbot.NewTerminalView(os.Stdout, cfg.Render)
		if err != nil {
			rt.Close()
			return nil, err
		}
		opts = append(opts, chatbot.WithView(view), chatbot.WithOutput(os.Stdout))
	}
	rt.bot = chatbot.NewChatBot(rt.client, rt.manager, opts...)

	return rt, nil
}

// openStore opens the configured settings backend. The SQLite database doubles as
// the transcript archive.
func (rt *runtime) openStore(cfg config.Config) (settings.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return settings.NewMemoryStore(), nil

	case config.StoreFile:
		return storage.NewFileStore(cfg.SettingsFilePath()), nil

	default:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		db, err := storage.OpenSQLite(cfg.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		rt.db = db
		rt.closers = append(rt.closers, func() {
			if err := db.Close(); err != nil {
				rt.logger.Error("failed to close database", "error", err)
			}
		})
		return db, nil
	}
}

// Close releases resources in reverse order of acquisition
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// printf writes to out, ignoring errors like fmt.Printf does
func printf(out io.Writer, format string, args ...any) {
	fmt.Fprintf(out, format, args...)
}
