package changefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// Publisher receives decoded events. *Hub implements it.
type Publisher interface {
	Publish(ev domain.ChangeEvent)
	Reset()
}

// RowFetcher reads back rows the trigger left out of a notification.
// repo.ScheduleItemRepo implements it.
type RowFetcher interface {
	GetByID(ctx context.Context, tripID, id uuid.UUID) (domain.ScheduleItem, error)
}

// Listener LISTENs on Channel over a connection taken out of the pool and
// forwards every decoded notification to a Publisher.
type Listener struct {
	pool    *pgxpool.Pool
	rows    RowFetcher
	pub     Publisher
	log     *slog.Logger
	backoff func() retry.Backoff
}

// NewListener constructs a Listener. Reconnects back off exponentially from
// 250ms, capped at 30s, and never give up while ctx is alive.
func NewListener(pool *pgxpool.Pool, rows RowFetcher, pub Publisher, log *slog.Logger) *Listener {
	return &Listener{
		pool: pool,
		rows: rows,
		pub:  pub,
		log:  log,
		backoff: func() retry.Backoff {
			return retry.WithCappedDuration(30*time.Second, retry.NewExponential(250*time.Millisecond))
		},
	}
}

// Run blocks until ctx is done. Every lost connection resets the publisher so
// subscribers re-fetch whatever they may have missed.
func (l *Listener) Run(ctx context.Context) error {
	err := retry.Do(ctx, l.backoff(), func(ctx context.Context) error {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn("change feed disconnected; reconnecting", "error", err)
		l.pub.Reset()
		return retry.RetryableError(err)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (l *Listener) listen(ctx context.Context) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	// The connection keeps LISTEN state, so it must never go back to the pool.
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.log.Info("change feed listening", "channel", Channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait: %w", err)
		}
		note, err := Decode([]byte(n.Payload))
		if err != nil {
			l.log.Error("change feed payload rejected", "error", err)
			continue
		}
		ev, ok := note.Event()
		if !ok {
			ev, err = l.fetch(ctx, note)
			if errors.Is(err, domain.ErrNotFound) {
				// Deleted since; its DELETE notification follows.
				continue
			}
			if err != nil {
				return err
			}
		}
		l.pub.Publish(ev)
	}
}

// fetch reads the current row for a notification sent without one. A failed
// read drops the connection so the publisher is reset.
func (l *Listener) fetch(ctx context.Context, note Notification) (domain.ChangeEvent, error) {
	item, err := l.rows.GetByID(ctx, note.TripID, note.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s row %s: %w", note.Op, note.ID, err)
	}
	note.Item = &item
	ev, _ := note.Event()
	return ev, nil
}
