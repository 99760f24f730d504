package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/deskchat/internal/api"
	"github.com/MikeSquared-Agency/deskchat/internal/config"
	"github.com/MikeSquared-Agency/deskchat/internal/gemini"
	"github.com/MikeSquared-Agency/deskchat/internal/hermes"
	"github.com/MikeSquared-Agency/deskchat/internal/session"
	"github.com/MikeSquared-Agency/deskchat/internal/sheets"
	"github.com/MikeSquared-Agency/deskchat/internal/synth"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("deskchat starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sheet export cache (optional)
	var cache sheets.Cache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, sheet cache writes will fail", "error", err)
		}
		cache = sheets.NewRedisCache(rdb, cfg.SheetCacheTTL)
		slog.Info("sheet cache ready", "ttl", cfg.SheetCacheTTL)
	}
	importer := sheets.NewImporter(cfg.SheetsBaseURL, cache, slog.Default())

	// Gemini client. A missing key is not checked here; the first request
	// fails with an auth error instead.
	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, model requests will be rejected")
	}
	llm := gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	slog.Info("gemini client ready", "model", llm.Model())

	synthesizer := synth.New(llm, cfg.DefaultPolicy, slog.Default())

	// NATS/Hermes (optional)
	var events session.Publisher
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		events = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, session events will not be published")
	}

	sessions := session.NewManager(importer, synthesizer, events, slog.Default())

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.GeminiModel, sessions)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("deskchat ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	cancel()
	slog.Info("deskchat stopped")
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
