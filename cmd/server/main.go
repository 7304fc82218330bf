package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/shiplabel/internal/address"
	"github.com/JonMunkholm/shiplabel/internal/config"
	"github.com/JonMunkholm/shiplabel/internal/core"
	"github.com/JonMunkholm/shiplabel/internal/label"
	"github.com/JonMunkholm/shiplabel/internal/logging"
	"github.com/JonMunkholm/shiplabel/internal/store"
	"github.com/JonMunkholm/shiplabel/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	profile := label.DefaultProfile()
	if cfg.Label.ProfilePath != "" {
		profile, err = label.LoadProfile(cfg.Label.ProfilePath)
		if err != nil {
			slog.Error("failed to load label profile", "path", cfg.Label.ProfilePath, "error", err)
			os.Exit(1)
		}
		slog.Info("label profile loaded", "path", cfg.Label.ProfilePath)
	}

	scan, err := address.ParseScanDirection(cfg.Label.CityScan)
	if err != nil {
		slog.Error("invalid city scan direction", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// History is optional; without a database batches live in memory only.
	var history core.HistoryStore
	var db *store.Store
	if cfg.Database.Enabled() {
		db, err = store.Open(ctx, store.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			slog.Error("failed to open history store", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		history = db

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}
	} else {
		slog.Info("DATABASE_URL not set, batch history kept in memory only")
	}

	service := core.NewService(core.Options{
		Extractor: address.New(address.WithCityScan(scan)),
		Profile:   profile,
		Columns: core.ColumnSet{
			Remark: cfg.Label.RemarkColumns,
			Handle: cfg.Label.HandleColumns,
		},
		Limiter:   core.NewBatchLimiter(cfg.Label.MaxConcurrent, cfg.Label.MaxWaitTime),
		History:   history,
		Workers:   cfg.Label.Workers,
		ResultTTL: cfg.Label.ResultTTL,
		MaxRecent: cfg.Label.MaxRecent,
	})

	server := web.NewServer(service, cfg)

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	go service.StartHistoryPurge(jobCtx, core.PurgeConfig{
		Retention: cfg.History.Retention,
		Interval:  cfg.History.PurgeInterval,
	})

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for batches to complete", "active", status.Active)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("batches did not complete in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}
