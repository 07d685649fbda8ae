// Package main is the entry point for the duotrip API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/duotrip/backend/internal/changefeed"
	"github.com/pkordes/duotrip/backend/internal/config"
	"github.com/pkordes/duotrip/backend/internal/handler"
	"github.com/pkordes/duotrip/backend/internal/middleware"
	"github.com/pkordes/duotrip/backend/internal/repo"
	"github.com/pkordes/duotrip/backend/internal/service"
	"github.com/pkordes/duotrip/backend/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	if cfg.MigrateOnStart {
		if err := migrate(ctx, cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("database connection established")

	// --- Services ---------------------------------------------------------
	couples := repo.NewCoupleRepo(pool)
	trips := service.NewTripService(repo.NewTripRepo(pool), couples)
	items := repo.NewScheduleItemRepo(pool)
	schedule := service.NewScheduleService(trips, items, logger)

	// The hub fans database notifications out to every open event stream.
	hub := changefeed.NewHub(logger, cfg.FeedBuffer)
	listener := changefeed.NewListener(pool, items, hub, logger)

	api := handler.NewServer(service.NewCoupleService(couples), trips, schedule, hub, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", api.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// The event stream handler lifts the write deadline for its own response.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// Open event streams never go idle; ending them with a resync lets
	// Shutdown finish and tells clients to reconnect elsewhere.
	srv.RegisterOnShutdown(hub.Reset)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listener.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// Graceful shutdown: wait for a signal (or a failed sibling), then give
	// in-flight requests up to 15 seconds to complete.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// migrate applies pending goose migrations through a short-lived
// database/sql handle.
func migrate(ctx context.Context, dsn string, logger *slog.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := migrations.Up(ctx, db)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "versions", applied)
	return nil
}
