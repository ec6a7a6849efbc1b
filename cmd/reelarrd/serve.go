package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	v1 "github.com/vmunix/reelarr/internal/api/v1"
	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/internal/config"
	"github.com/vmunix/reelarr/internal/download"
	"github.com/vmunix/reelarr/internal/events"
	"github.com/vmunix/reelarr/internal/migrations"
	"github.com/vmunix/reelarr/internal/organizer"
	"github.com/vmunix/reelarr/internal/plex"
	"github.com/vmunix/reelarr/internal/scrape"
	"github.com/vmunix/reelarr/internal/server"
	"github.com/vmunix/reelarr/internal/yts"
	"github.com/vmunix/reelarr/pkg/transmission"
)

const shutdownTimeout = 30 * time.Second

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

func openDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func runServer(ctx context.Context, path string) error {
	if path == "" {
		found, err := config.Discover()
		if err != nil {
			return err
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	for _, w := range cfg.Validate() {
		if strings.Contains(w, "warning:") {
			logger.Warn("config", "detail", w)
		}
	}

	db, err := openDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// === Stores ===
	store := catalog.NewStore(db)
	eventLog := events.NewEventLog(db)
	bus := events.NewBus(eventLog, logger)
	defer func() { _ = bus.Close() }()

	// === Clients ===
	daemon := transmission.NewClient(cfg.Transmission.URL, logger,
		transmission.WithSession(&transmission.Session{}),
		transmission.WithTimeout(cfg.Transmission.Timeout))
	ytsClient := yts.NewClient(cfg.YTS.URL, cfg.YTS.Timeout, logger)
	plexClient := plex.NewClient(cfg.Plex.URL, cfg.Plex.Token, cfg.Plex.Timeout, logger)

	// === Services ===
	remote := yts.NewScraper(ytsClient, yts.Options{
		PageSize:        cfg.YTS.PageSize,
		MaxAttempts:     uint(cfg.YTS.MaxAttempts),
		RetryDelay:      cfg.YTS.RetryDelay,
		PageDelay:       cfg.YTS.PageDelay,
		DisallowedTypes: cfg.YTS.DisallowedTypes,
	}, logger)
	local := plex.NewScraper(plexClient, cfg.Plex.BatchSize, logger)
	orchestrator := scrape.New(store, bus, logger, remote, local)

	downloads := download.NewService(store, daemon,
		organizer.New(cfg.Library.Movies, cfg.Library.Downloads, logger),
		orchestrator, bus,
		download.Config{
			Preferences: download.Preferences{Qualities: cfg.Download.Qualities, Types: cfg.Download.Types},
			Trackers:    cfg.Download.Trackers,
			GracePeriod: cfg.Download.GracePeriod,
		}, logger)

	tasks := server.NewTasks(logger)
	notifier := server.NewNotifier(bus, logger)
	runner := server.NewRunner(orchestrator, downloads, server.Config{
		Tick:             cfg.Schedule.Tick,
		ScrapeInterval:   cfg.Schedule.ScrapeInterval,
		DownloadInterval: cfg.Schedule.DownloadInterval,
	}, logger)

	// === HTTP ===
	api, err := v1.New(v1.ServerDeps{
		Catalog:   store,
		Downloads: downloads,
		Scraper:   orchestrator,
		Tasks:     tasks,
		EventLog:  eventLog,
		Version:   version,
	}, logger)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: api.Handler(), ReadHeaderTimeout: 10 * time.Second}

	logger.Info("server starting",
		"addr", addr,
		"config", path,
		"database", cfg.Database.Path,
		"transmission", cfg.Transmission.URL,
		"plex", cfg.Plex.URL,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := runner.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("runner: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return notifier.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if err := tasks.Shutdown(shutdownCtx); err != nil {
			logger.Warn("background tasks abandoned", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
