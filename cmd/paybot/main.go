package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dsakai3418/paybot/internal/config"
	"github.com/dsakai3418/paybot/internal/events"
	"github.com/dsakai3418/paybot/internal/gemini"
	"github.com/dsakai3418/paybot/internal/session"
	"github.com/dsakai3418/paybot/internal/store"
	"github.com/dsakai3418/paybot/internal/syncer"
	"github.com/dsakai3418/paybot/internal/web"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("paybot starting", "port", cfg.Port, "store", cfg.StoreBackend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Oracle
	if cfg.GeminiAPIKey == "" {
		slog.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}
	oracle := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	slog.Info("gemini client ready", "model", cfg.GeminiModel)

	// Customer row store
	rowStore, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open customer store", "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("customer store ready", "backend", cfg.StoreBackend)

	// Outcome events (optional — paybot works without NATS, just no fan-out)
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without outcome events")
	}

	srv := web.NewServer(cfg.Port, web.Deps{
		Store:    rowStore,
		Oracle:   oracle,
		Sync:     syncer.New(rowStore, publisher, slog.Default()),
		Sessions: session.NewRegistry(),
		Backend:  cfg.StoreBackend,
		Model:    cfg.GeminiModel,
		Logger:   slog.Default(),
	})
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("paybot ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("paybot stopped")
}

func buildStore(ctx context.Context, cfg config.Config) (store.RowStore, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			slog.Error("DATABASE_URL is required for the postgres backend")
			os.Exit(1)
		}
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil

	default:
		if cfg.SpreadsheetKey == "" {
			slog.Error("SPREADSHEET_KEY is required for the sheets backend")
			os.Exit(1)
		}
		creds, err := loadCredentials(cfg)
		if err != nil {
			return nil, nil, err
		}
		sh, err := store.NewSheets(ctx, creds, cfg.SpreadsheetKey, cfg.SheetName)
		if err != nil {
			return nil, nil, err
		}
		return sh, func() {}, nil
	}
}

// loadCredentials accepts the service-account key either inline in
// GOOGLE_CREDENTIALS_JSON or as a file path in GOOGLE_CREDENTIALS_FILE.
func loadCredentials(cfg config.Config) ([]byte, error) {
	if cfg.GoogleCredsJSON != "" {
		return []byte(cfg.GoogleCredsJSON), nil
	}
	if cfg.GoogleCredsFile != "" {
		return os.ReadFile(cfg.GoogleCredsFile)
	}
	slog.Error("GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE is required for the sheets backend")
	os.Exit(1)
	return nil, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
