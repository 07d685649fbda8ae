package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pkordes/duotrip/backend/internal/changefeed"
	"github.com/pkordes/duotrip/backend/internal/repo"
	"github.com/pkordes/duotrip/backend/internal/service"
	"github.com/pkordes/duotrip/backend/internal/store"
	"github.com/pkordes/duotrip/backend/internal/tripview"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	DatabaseURL string
	Trip        string
	User        string
	LogLevel    string
}

func addRootArgs(cmd *cobra.Command, o *rootOptions) {
	cmd.PersistentFlags().StringVar(&o.DatabaseURL, "database-url", os.Getenv("DATABASE_URL"),
		"Postgres connection string. Defaults to $DATABASE_URL.")
	cmd.PersistentFlags().StringVar(&o.Trip, "trip", "", "Trip id to operate on.")
	cmd.PersistentFlags().StringVar(&o.User, "user", "", "Acting user id; must belong to the trip's couple.")
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", "warn", "debug, info, warn or error.")
}

func (o *rootOptions) validate() (tripID, userID uuid.UUID, err error) {
	if o.DatabaseURL == "" {
		return uuid.Nil, uuid.Nil, errors.New("--database-url or DATABASE_URL is required")
	}
	if tripID, err = uuid.Parse(o.Trip); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("--trip: %w", err)
	}
	if userID, err = uuid.Parse(o.User); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("--user: %w", err)
	}
	return tripID, userID, nil
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "planner",
		Short: "Inspect and reorder a trip's schedule",
		Example: `
planner days --trip $TRIP --user $USER
planner move 2025-06-01 0 2 --trip $TRIP --user $USER
planner watch --trip $TRIP --user $USER
`,
		SilenceUsage: true,
	}
	addRootArgs(cmd, o)

	addDays(cmd, o)
	addMove(cmd, o)
	addAdd(cmd, o)
	addDelete(cmd, o)
	addEdit(cmd, o)
	addWatch(cmd, o)
	return cmd
}

// session is an open view plus the resources backing it.
type session struct {
	view  *tripview.View
	close func()
}

// openSession connects to the database, checks the user may see the trip,
// starts a local change listener and opens the trip's day view on it.
func openSession(ctx context.Context, o *rootOptions, logw io.Writer) (*session, error) {
	tripID, userID, err := o.validate()
	if err != nil {
		return nil, err
	}
	log := o.logger(logw)

	pool, err := pgxpool.New(ctx, o.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	trips := service.NewTripService(repo.NewTripRepo(pool), repo.NewCoupleRepo(pool))
	trip, err := trips.Get(ctx, userID, tripID)
	if err != nil {
		pool.Close()
		return nil, err
	}

	items := repo.NewScheduleItemRepo(pool)
	hub := changefeed.NewHub(log, changefeed.DefaultBuffer)
	listenCtx, stopListener := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := changefeed.NewListener(pool, items, hub, log).Run(listenCtx); err != nil {
			log.Error("change listener stopped", "error", err)
		}
	}()

	client := store.NewClient(items, hub)
	view, err := tripview.Open(ctx, client, trip, userID, tripview.WithLogger(log))
	if err != nil {
		stopListener()
		<-done
		pool.Close()
		return nil, err
	}

	return &session{
		view: view,
		close: func() {
			view.Close()
			stopListener()
			<-done
			pool.Close()
		},
	}, nil
}
