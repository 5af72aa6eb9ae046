package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/snagbot/snagd/internal/analyzer"
	"github.com/snagbot/snagd/internal/api"
	"github.com/snagbot/snagd/internal/api/handler"
	"github.com/snagbot/snagd/internal/config"
	"github.com/snagbot/snagd/internal/extractor"
	"github.com/snagbot/snagd/internal/history"
	"github.com/snagbot/snagd/internal/metrics"
	"github.com/snagbot/snagd/internal/notify"
	"github.com/snagbot/snagd/internal/platform"
	"github.com/snagbot/snagd/internal/policy"
	"github.com/snagbot/snagd/internal/queue"
	"github.com/snagbot/snagd/internal/ratelimit"
	"github.com/snagbot/snagd/internal/service"
	"github.com/snagbot/snagd/internal/worker"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("snagd %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Bootstrap logger; replaced once the log config is known
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting snagd",
		"version", Version,
		"build_time", BuildTime,
	)

	// Ensure the download directory exists
	if err := os.MkdirAll(cfg.Download.Dir, 0755); err != nil {
		logger.Error("failed to create download directory", "error", err)
		os.Exit(1)
	}

	// Get a yt-dlp binary in place before accepting work
	installCtx, cancelInstall := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := extractor.Install(installCtx); err != nil {
		cancelInstall()
		logger.Error("failed to install yt-dlp", "error", err)
		os.Exit(1)
	}
	cancelInstall()

	// Initialize dependencies
	store, err := history.NewSQLiteStore(cfg.History.Path, logger)
	if err != nil {
		logger.Error("failed to open history store", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	q := queue.New(cfg.Queue.MaxConcurrent, cfg.Queue.MaxSize, limiter)
	engine := extractor.NewYTDLPEngine(cfg.Download.Dir, logger)

	// Notifications go to the log and to any websocket receivers
	hubCtx, cancelHub := context.WithCancel(context.Background())
	hub := notify.NewHub(logger)
	go hub.Run(hubCtx)
	notifier := notify.NewFanout(notify.NewLogNotifier(logger), hub)

	events := service.NewEventLog(1000, logger)
	m := metrics.NewMetrics()

	// Initialize services
	svc := service.NewDownloadService(
		policy.NewGate(platform.NewClassifier()),
		analyzer.New(),
		q,
		engine,
		store,
		notifier,
		events,
		m,
		cfg.Download,
		logger,
	)

	// Initialize handlers
	downloadHandler := handler.NewDownloadHandler(svc, logger)
	healthHandler := handler.NewHealthHandler(svc)

	// Setup router
	router := api.NewRouter(downloadHandler, healthHandler, hub, m, cfg.Server.APIKey)

	// Initialize worker pool
	pool := worker.NewPool(
		worker.Config{
			Workers: cfg.Queue.MaxConcurrent,
		},
		q,
		svc,
		logger,
	)

	// Start worker pool
	pool.Start()

	// Prune old history records in the background
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	if cfg.History.RetentionDays > 0 {
		go runRetention(cleanupCtx, store, cfg.History.RetentionDays, logger)
	}

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Cancel background tasks
	cancelCleanup()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop workers (allow in-flight downloads to complete)
	if err := pool.Stop(cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	// Disconnect receivers and close shared state
	cancelHub()
	if err := store.Close(); err != nil {
		logger.Error("failed to close history store", "error", err)
	}

	logger.Info("shutdown complete")
}

// setupLogger builds the process logger from the log config. The
// pretty format is meant for terminals during development.
func setupLogger(cfg config.LogConfig) *slog.Logger {
	level := parseLevel(cfg.Level)

	var h slog.Handler
	switch cfg.Format {
	case "text":
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	case "pretty":
		h = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
			AddSource:  true,
		})
	default:
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runRetention deletes history records older than the retention window,
// once at startup and then daily.
func runRetention(ctx context.Context, store history.Store, days int, logger *slog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		cutoff := time.Now().AddDate(0, 0, -days)
		n, err := store.CleanupOlderThan(ctx, cutoff)
		if err != nil {
			logger.Error("history cleanup failed", "error", err)
		} else if n > 0 {
			logger.Info("removed expired history records", "count", n, "cutoff", cutoff.Format(time.DateOnly))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
