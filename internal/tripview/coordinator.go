package tripview

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/schedule"
)

// AddPlace appends a place to day. The item id is assigned here so the
// change-feed echo of the insert is recognized and ignored.
func (v *View) AddPlace(ctx context.Context, day domain.DayKey, c domain.PlaceCandidate) (domain.ScheduleItem, error) {
	if strings.TrimSpace(c.PlaceName) == "" {
		return domain.ScheduleItem{}, fmt.Errorf("tripview.View.AddPlace: %w: place name is required", domain.ErrValidation)
	}
	d, err := v.acquire(ctx, day)
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("tripview.View.AddPlace: %w", err)
	}
	defer v.release(d)

	item := domain.ScheduleItem{
		ID:           uuid.New(),
		TripID:       v.tripID,
		PlaceName:    c.PlaceName,
		PlaceAddress: c.Address,
		PlacePhone:   c.Phone,
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		VisitDate:    day,
		CreatedBy:    v.userID,
		CreatedAt:    v.now().UTC(),
	}

	v.mu.Lock()
	snapshot, err := v.beginLocked(d)
	if err != nil {
		v.mu.Unlock()
		return domain.ScheduleItem{}, fmt.Errorf("tripview.View.AddPlace: %w", err)
	}
	next, idx := schedule.AppendInsert(d.items, item)
	item.OrderIndex = idx
	v.setItemsLocked(d, next)
	v.notify()
	v.mu.Unlock()

	created, err := v.store.InsertItem(ctx, item)
	if err != nil {
		return domain.ScheduleItem{}, v.fail(d, snapshot, &domain.PersistenceError{
			Op: domain.OpAdd, Day: day, ItemIDs: []uuid.UUID{item.ID}, Err: err,
		})
	}

	v.confirm(d, func() {
		v.replaceLocked(d, created)
	})
	return created, nil
}

// MoveItem moves the item at from to position to within day. Changed order
// indexes are written one at a time; a failed write does not stop the rest,
// and any failure rolls the day back and re-fetches it.
func (v *View) MoveItem(ctx context.Context, day domain.DayKey, from, to int) error {
	d, err := v.acquire(ctx, day)
	if err != nil {
		return fmt.Errorf("tripview.View.MoveItem: %w", err)
	}
	defer v.release(d)

	v.mu.Lock()
	if err := v.checkLocked(d); err != nil {
		v.mu.Unlock()
		return fmt.Errorf("tripview.View.MoveItem: %w", err)
	}
	next, writes, err := schedule.Reorder(d.items, from, to)
	if err != nil {
		v.mu.Unlock()
		return fmt.Errorf("tripview.View.MoveItem: %w", err)
	}
	if len(writes) == 0 {
		v.mu.Unlock()
		return nil
	}
	snapshot, err := v.beginLocked(d)
	if err != nil {
		v.mu.Unlock()
		return fmt.Errorf("tripview.View.MoveItem: %w", err)
	}
	v.setItemsLocked(d, next)
	v.notify()
	v.mu.Unlock()

	if err := v.writeOrder(ctx, writes); err != nil {
		return v.fail(d, snapshot, &domain.PersistenceError{
			Op: domain.OpMove, Day: day, ItemIDs: writeIDs(writes), Fields: []string{"order_index"}, Err: err,
		})
	}
	v.confirm(d, nil)
	return nil
}

// DeleteItem removes an item from day and compacts the remaining order
// indexes. The delete is written first, then each shifted neighbour.
func (v *View) DeleteItem(ctx context.Context, day domain.DayKey, id uuid.UUID) error {
	d, err := v.acquire(ctx, day)
	if err != nil {
		return fmt.Errorf("tripview.View.DeleteItem: %w", err)
	}
	defer v.release(d)

	v.mu.Lock()
	if err := v.checkLocked(d); err != nil {
		v.mu.Unlock()
		return fmt.Errorf("tripview.View.DeleteItem: %w", err)
	}
	next, writes, err := schedule.RemoveAndCompact(d.items, id)
	if err != nil {
		v.mu.Unlock()
		return fmt.Errorf("tripview.View.DeleteItem: %w", err)
	}
	snapshot, err := v.beginLocked(d)
	if err != nil {
		v.mu.Unlock()
		return fmt.Errorf("tripview.View.DeleteItem: %w", err)
	}
	v.setItemsLocked(d, next)
	v.notify()
	v.mu.Unlock()

	var errs error
	if err := v.store.DeleteItem(ctx, v.tripID, id); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", id, err))
	}
	errs = multierr.Append(errs, v.writeOrder(ctx, writes))
	if errs != nil {
		return v.fail(d, snapshot, &domain.PersistenceError{
			Op:      domain.OpDelete,
			Day:     day,
			ItemIDs: append([]uuid.UUID{id}, writeIDs(writes)...),
			Fields:  []string{"order_index"},
			Err:     errs,
		})
	}
	v.confirm(d, nil)
	return nil
}

// EditFields merges patch into one item. It never changes ordering, so a
// patch carrying an order index is rejected.
func (v *View) EditFields(ctx context.Context, id uuid.UUID, patch domain.ItemPatch) error {
	if patch.OrderIndex != nil {
		return fmt.Errorf("tripview.View.EditFields: %w: order index is changed by MoveItem", domain.ErrValidation)
	}
	if patch.PlaceName != nil && strings.TrimSpace(*patch.PlaceName) == "" {
		return fmt.Errorf("tripview.View.EditFields: %w: place name must not be empty", domain.ErrValidation)
	}
	if patch.Empty() {
		return nil
	}

	v.mu.Lock()
	day, ok := v.dayOf[id]
	v.mu.Unlock()
	if !ok {
		return fmt.Errorf("tripview.View.EditFields: item %s: %w", id, domain.ErrNotFound)
	}
	d, err := v.acquire(ctx, day)
	if err != nil {
		return fmt.Errorf("tripview.View.EditFields: %w", err)
	}
	defer v.release(d)

	v.mu.Lock()
	// The item may have moved or gone while we waited for the day.
	i := slices.IndexFunc(d.items, func(it domain.ScheduleItem) bool { return it.ID == id })
	if i < 0 {
		v.mu.Unlock()
		return fmt.Errorf("tripview.View.EditFields: item %s: %w", id, domain.ErrNotFound)
	}
	snapshot, err := v.beginLocked(d)
	if err != nil {
		v.mu.Unlock()
		return fmt.Errorf("tripview.View.EditFields: %w", err)
	}
	d.items[i] = patch.Apply(d.items[i])
	v.notify()
	v.mu.Unlock()

	updated, err := v.store.UpdateItem(ctx, v.tripID, id, patch)
	if err != nil {
		return v.fail(d, snapshot, &domain.PersistenceError{
			Op: domain.OpEdit, Day: day, ItemIDs: []uuid.UUID{id}, Fields: patch.Fields(), Err: err,
		})
	}
	v.confirm(d, func() {
		v.replaceLocked(d, updated)
	})
	return nil
}

// Refresh re-fetches day from the store, clearing a stale mark.
func (v *View) Refresh(ctx context.Context, day domain.DayKey) error {
	d, err := v.acquire(ctx, day)
	if err != nil {
		return fmt.Errorf("tripview.View.Refresh: %w", err)
	}
	defer v.release(d)

	if err := v.refetch(ctx, d); err != nil {
		return fmt.Errorf("tripview.View.Refresh: %w", err)
	}
	return nil
}

// acquire takes the day's mutation slot, waiting for an earlier mutation of
// the same day to finish.
func (v *View) acquire(ctx context.Context, day domain.DayKey) (*dayState, error) {
	v.mu.Lock()
	closed := v.closed
	d, ok := v.days[day]
	v.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDay, day)
	}
	select {
	case d.sem <- struct{}{}:
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (v *View) release(d *dayState) { <-d.sem }

// checkLocked rejects edits on a closed view or a stale day.
func (v *View) checkLocked(d *dayState) error {
	if v.closed {
		return ErrClosed
	}
	if d.stale {
		return fmt.Errorf("%w: %s", domain.ErrStaleDay, d.key)
	}
	return nil
}

// beginLocked moves d to pending and returns the pre-mutation snapshot.
func (v *View) beginLocked(d *dayState) ([]domain.ScheduleItem, error) {
	if err := v.checkLocked(d); err != nil {
		return nil, err
	}
	if err := fire(d.machine, eventBegin); err != nil {
		return nil, err
	}
	return slices.Clone(d.items), nil
}

// confirm settles a successful mutation: apply runs first against the
// settled state, then queued remote events drain in arrival order.
func (v *View) confirm(d *dayState, apply func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := fire(d.machine, eventConfirm); err != nil {
		v.log.Error("tripview confirm", "day", d.key, "error", err)
		return
	}
	if apply != nil && !v.closed {
		apply()
	}
	v.settleLocked(d, true)
}

// settleLocked drains or discards the queue after a confirm and returns the
// day to idle. With retryStale, a queued event that no longer matches local
// state schedules a re-fetch.
func (v *View) settleLocked(d *dayState, retryStale bool) {
	queue := d.queue
	d.queue = nil

	if d.resync {
		d.resync = false
		v.scheduleRefetchLocked(d)
	} else {
		for _, ev := range queue {
			err := v.applyLocked(d.key, ev)
			var stale *domain.StaleStateError
			if errors.As(err, &stale) {
				v.log.Debug("queued event is stale", "day", d.key, "item_id", stale.ItemID)
				if retryStale {
					v.scheduleRefetchLocked(d)
				}
			}
		}
	}
	if err := fire(d.machine, eventSettle); err != nil {
		v.log.Error("tripview settle", "day", d.key, "error", err)
	}
	v.notify()
}

// fail rolls d back to snapshot, discards queued events, and re-fetches the
// day once. The returned error is always perr; if the re-fetch fails too the
// day stays stale until Refresh. A re-fetched day left with duplicate or
// missing indexes by the partial write is compacted.
func (v *View) fail(d *dayState, snapshot []domain.ScheduleItem, perr *domain.PersistenceError) error {
	v.mu.Lock()
	v.rollbackLocked(d, snapshot)
	v.mu.Unlock()

	v.log.Warn("schedule write failed; re-fetching day", "day", d.key, "op", perr.Op, "error", perr.Err)

	ctx, cancel := context.WithTimeout(v.runCtx, v.refetchTimeout)
	defer cancel()
	if err := v.refetch(ctx, d); err != nil {
		if !errors.Is(err, ErrClosed) {
			v.log.Error("day re-fetch failed; marked stale", "day", d.key, "error", err)
		}
		return perr
	}
	v.compact(ctx, d)
	return perr
}

// compact renumbers d 0..n-1 when its stored indexes are not, writing only
// the items that change. A failed write rolls back and re-fetches once more
// without compacting again. The caller holds d's slot.
func (v *View) compact(ctx context.Context, d *dayState) {
	v.mu.Lock()
	next, writes := schedule.Compact(d.items)
	if len(writes) == 0 {
		v.mu.Unlock()
		return
	}
	snapshot, err := v.beginLocked(d)
	if err != nil {
		v.mu.Unlock()
		return
	}
	v.setItemsLocked(d, next)
	v.notify()
	v.mu.Unlock()

	v.log.Info("compacting day order", "day", d.key, "writes", len(writes))
	if err := v.writeOrder(ctx, writes); err != nil {
		v.mu.Lock()
		v.rollbackLocked(d, snapshot)
		v.mu.Unlock()
		v.log.Warn("day compaction failed; re-fetching day", "day", d.key, "error", err)
		if err := v.refetch(ctx, d); err != nil && !errors.Is(err, ErrClosed) {
			v.log.Error("day re-fetch failed; marked stale", "day", d.key, "error", err)
		}
		return
	}
	v.confirm(d, nil)
}

// rollbackLocked restores snapshot, drops queued events and fails the
// pending mutation of d.
func (v *View) rollbackLocked(d *dayState, snapshot []domain.ScheduleItem) {
	if !v.closed {
		v.setItemsLocked(d, snapshot)
	}
	d.queue = nil
	d.resync = false
	if err := fire(d.machine, eventFail); err != nil {
		v.log.Error("tripview fail", "day", d.key, "error", err)
	}
	v.notify()
}

// refetch replaces d's items with the store's. The caller holds d's slot.
// Events arriving during the fetch are queued and replayed on the result.
func (v *View) refetch(ctx context.Context, d *dayState) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	d.refetchQueued = false
	if err := fire(d.machine, eventBegin); err != nil {
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()

	items, err := v.store.ListDay(ctx, v.tripID, d.key)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		d.queue = nil
		d.stale = true
		if ferr := fire(d.machine, eventFail); ferr != nil {
			v.log.Error("tripview fail", "day", d.key, "error", ferr)
		}
		v.notify()
		return err
	}
	if ferr := fire(d.machine, eventConfirm); ferr != nil {
		return ferr
	}
	d.stale = false
	if !v.closed {
		v.setItemsLocked(d, items)
	}
	v.settleLocked(d, false)
	return nil
}

// scheduleRefetchLocked re-fetches d in the background once its slot frees.
func (v *View) scheduleRefetchLocked(d *dayState) {
	if d.refetchQueued || v.closed {
		return
	}
	d.refetchQueued = true
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		select {
		case d.sem <- struct{}{}:
		case <-v.runCtx.Done():
			return
		}
		defer v.release(d)

		ctx, cancel := context.WithTimeout(v.runCtx, v.refetchTimeout)
		defer cancel()
		if err := v.refetch(ctx, d); err != nil && !errors.Is(err, ErrClosed) {
			v.log.Error("day re-fetch failed; marked stale", "day", d.key, "error", err)
		}
	}()
}

// writeOrder persists writes sequentially, continuing past failures, and
// returns every failure combined.
func (v *View) writeOrder(ctx context.Context, writes []domain.OrderWrite) error {
	var errs error
	for _, w := range writes {
		idx := w.OrderIndex
		if _, err := v.store.UpdateItem(ctx, v.tripID, w.ID, domain.ItemPatch{OrderIndex: &idx}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s=%d: %w", w.ID, w.OrderIndex, err))
		}
	}
	return errs
}

// replaceLocked swaps in the committed row for an item of d.
func (v *View) replaceLocked(d *dayState, item domain.ScheduleItem) {
	if item.VisitDate != d.key {
		return
	}
	next := slices.Clone(d.items)
	i := slices.IndexFunc(next, func(it domain.ScheduleItem) bool { return it.ID == item.ID })
	if i < 0 {
		return
	}
	next[i] = item
	v.setItemsLocked(d, next)
}

func writeIDs(writes []domain.OrderWrite) []uuid.UUID {
	ids := make([]uuid.UUID, len(writes))
	for i, w := range writes {
		ids[i] = w.ID
	}
	return ids
}
