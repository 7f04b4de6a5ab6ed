package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/soundvault/soundvault/internal/cache"
	"github.com/soundvault/soundvault/internal/catalog/sqlite"
	"github.com/soundvault/soundvault/internal/config"
	"github.com/soundvault/soundvault/internal/downloader"
	"github.com/soundvault/soundvault/internal/fetcher"
	"github.com/soundvault/soundvault/internal/http/rest"
	"github.com/soundvault/soundvault/internal/logctx"
	"github.com/soundvault/soundvault/internal/notifier"
	"github.com/soundvault/soundvault/internal/player"
	"github.com/soundvault/soundvault/internal/telemetry"
	"github.com/soundvault/soundvault/internal/transfer"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("soundvault starting...", "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:     cfg.TelemetryEnabled,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}

	// =========================================================================
	// Start Catalog Store
	database, err := sqlite.InitDB(cfg.CatalogDB)
	if err != nil {
		return fmt.Errorf("failed to open catalog db: %w", err)
	}
	defer database.Close()

	assets := sqlite.NewInstrumentedAssetRepository(sqlite.NewAssetRepository(database), tel)

	// =========================================================================
	// Start Cache and Download Manager
	cacheDir, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to resolve cache dir: %w", err)
	}

	index, err := cache.NewIndex(cacheDir)
	if err != nil {
		return fmt.Errorf("failed to set up cache: %w", err)
	}

	remote := fetcher.NewInstrumented(
		fetcher.NewHTTP(cfg.FetchTimeout, cfg.UserAgent, cfg.RemoteToken), tel)

	events := transfer.NewMulticast()
	manager := downloader.NewManager(index, remote, events, cfg.MaxParallel)

	// =========================================================================
	// Start Observers
	events.Subscribe(telemetry.NewTransferObserver(tel))

	if cfg.WebhookURL != "" {
		events.Subscribe(notifier.NewTransferObserver(
			&notifier.WebhookNotifier{WebhookURL: cfg.WebhookURL},
			func(err error) {
				logger.Error("failed to send notification", "err", err)
			},
		))
	}

	// =========================================================================
	// Start API Service
	audioPlayer := player.NewExecPlayer(cfg.PlayerCommand, cfg.PlayerArgs...)
	handler := rest.NewHandler(
		cfg.API.Username, cfg.API.Password,
		assets, assets, manager, index, player.NewResolver(index), audioPlayer,
	)

	r := chi.NewRouter()
	r.Use(telemetry.RequestID)
	r.Use(telemetry.HTTPLogging)
	r.Use(telemetry.NewHTTPMiddleware(tel).Middleware)
	r.Handle("/metrics", tel.Handler())
	r.Mount("/api", handler.Routes())

	server := &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      otelhttp.NewHandler(r, "soundvault"),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	// Buffered so the goroutine can exit if we never collect the error.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("initializing API support", "host", cfg.Web.BindAddress)
		serverErrors <- server.ListenAndServe()
	}()

	logger.Info("waiting for download requests...",
		"cache_dir", cacheDir,
		"catalog_db", cfg.CatalogDB,
		"max_parallel", cfg.MaxParallel,
	)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("start shutdown")

		defer func() { _ = audioPlayer.Stop() }()

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return nil
	}
}
