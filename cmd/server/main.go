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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/datapoint/internal/config"
	"github.com/JonMunkholm/datapoint/internal/core"
	"github.com/JonMunkholm/datapoint/internal/logging"
	"github.com/JonMunkholm/datapoint/internal/model"
	"github.com/JonMunkholm/datapoint/internal/synth"
	"github.com/JonMunkholm/datapoint/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.Enabled(),
		"max_rows", cfg.Generate.MaxRows,
		"default_model", cfg.Generate.DefaultModel,
		"max_concurrent", cfg.Generate.MaxConcurrent,
		"media_root", cfg.Storage.MediaRoot,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Run history goes to PostgreSQL when configured, memory otherwise
	var history core.HistoryStore = core.NewMemoryHistory(core.DefaultHistoryLimit * 4)
	if cfg.Database.Enabled() {
		pool, err := connect(ctx, &cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := core.NewPGHistory(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare run history table", "error", err)
			os.Exit(1)
		}
		history = pg
	} else {
		slog.Info("DATABASE_URL not set, keeping run history in memory")
	}

	limiter := core.NewLimiter(cfg.Generate.MaxConcurrent, cfg.Generate.MaxWaitTime)
	reconciler := synth.NewReconciler(synth.New(uint64(cfg.Generate.Seed)))

	service, err := core.NewService(core.Options{
		OutputRoot:   cfg.Storage.MediaRoot,
		BaseURL:      cfg.Storage.BaseURL,
		MaxRows:      cfg.Generate.MaxRows,
		DefaultModel: model.ParseType(cfg.Generate.DefaultModel),
		Seed:         cfg.Generate.Seed,
		Timeout:      cfg.Generate.Timeout,
	}, reconciler, limiter, history)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active generations to finish (with timeout)
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for generations to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("generations did not complete in time", "error", err)
			} else {
				slog.Info("all generations completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// connect opens and verifies a pgx pool sized from cfg.
func connect(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
