// Package store is the client-side view of the schedule store: the item
// persistence calls plus a subscription to the trip's change feed.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/repo"
)

// Feed hands out change-event subscriptions per trip.
// *changefeed.Hub implements it.
type Feed interface {
	Subscribe(ctx context.Context, tripID uuid.UUID) (<-chan domain.ChangeEvent, func())
}

// Client implements the store contract the trip view relies on.
// Reads retry transient connection failures; writes are attempted once and
// any failure is returned to the caller, which owns the rollback.
type Client struct {
	items repo.ScheduleItemRepo
	feed  Feed
	reads func() retry.Backoff
}

// NewClient constructs a Client.
func NewClient(items repo.ScheduleItemRepo, feed Feed) *Client {
	return &Client{
		items: items,
		feed:  feed,
		reads: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
		},
	}
}

// ListItems returns every item of a trip ordered by day then order_index.
func (c *Client) ListItems(ctx context.Context, tripID uuid.UUID) ([]domain.ScheduleItem, error) {
	var items []domain.ScheduleItem
	err := c.read(ctx, func(ctx context.Context) (err error) {
		items, err = c.items.ListByTrip(ctx, tripID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store.Client.ListItems: %w", err)
	}
	return items, nil
}

// ListDay returns the items of one day ordered by order_index.
func (c *Client) ListDay(ctx context.Context, tripID uuid.UUID, day domain.DayKey) ([]domain.ScheduleItem, error) {
	var items []domain.ScheduleItem
	err := c.read(ctx, func(ctx context.Context) (err error) {
		items, err = c.items.ListByDay(ctx, tripID, day)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store.Client.ListDay: %w", err)
	}
	return items, nil
}

// InsertItem persists a new item. The caller may pre-assign item.ID.
func (c *Client) InsertItem(ctx context.Context, item domain.ScheduleItem) (domain.ScheduleItem, error) {
	created, err := c.items.Create(ctx, item)
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("store.Client.InsertItem: %w", err)
	}
	return created, nil
}

// UpdateItem applies a partial update to one item.
func (c *Client) UpdateItem(ctx context.Context, tripID, id uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error) {
	updated, err := c.items.Update(ctx, tripID, id, patch)
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("store.Client.UpdateItem: %w", err)
	}
	return updated, nil
}

// DeleteItem removes one item.
func (c *Client) DeleteItem(ctx context.Context, tripID, id uuid.UUID) error {
	if err := c.items.Delete(ctx, tripID, id); err != nil {
		return fmt.Errorf("store.Client.DeleteItem: %w", err)
	}
	return nil
}

// Subscribe opens a change-event stream for a trip.
func (c *Client) Subscribe(ctx context.Context, tripID uuid.UUID) (<-chan domain.ChangeEvent, func(), error) {
	ch, cancel := c.feed.Subscribe(ctx, tripID)
	return ch, cancel, nil
}

func (c *Client) read(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, c.reads(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && pgconn.SafeToRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
