package tripview

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/schedule"
)

// run consumes the change feed until Close. A closed subscription means
// events may have been lost: the view resubscribes and reloads the trip.
func (v *View) run(events <-chan domain.ChangeEvent, unsubscribe func()) {
	defer close(v.done)
	for {
		v.consume(events)
		unsubscribe()
		if v.runCtx.Err() != nil {
			return
		}

		v.log.Warn("change feed subscription lost; resubscribing", "trip_id", v.tripID)
		v.mu.Lock()
		v.resubscribe = true
		v.notify()
		v.mu.Unlock()

		var err error
		events, unsubscribe, err = v.resync(v.runCtx)
		if err != nil {
			return
		}
	}
}

func (v *View) consume(events <-chan domain.ChangeEvent) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			v.handle(ev)
		case <-v.runCtx.Done():
			return
		}
	}
}

// resync opens a new subscription and reloads every day that is not pending.
// Pending days are flagged to re-fetch once their mutation settles.
func (v *View) resync(ctx context.Context) (<-chan domain.ChangeEvent, func(), error) {
	var (
		events      <-chan domain.ChangeEvent
		unsubscribe func()
	)
	err := retry.Do(ctx, v.backoff(), func(ctx context.Context) error {
		ch, cancel, err := v.store.Subscribe(ctx, v.tripID)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("subscribe: %w", err))
		}
		items, err := v.store.ListItems(ctx, v.tripID)
		if err != nil {
			cancel()
			return retry.RetryableError(fmt.Errorf("list items: %w", err))
		}

		groups, dropped := schedule.GroupByDay(items, v.keys)
		if dropped > 0 {
			v.log.Warn("schedule items outside trip range ignored", "trip_id", v.tripID, "dropped", dropped)
		}
		v.mu.Lock()
		for _, k := range v.keys {
			d := v.days[k]
			if d.pending() {
				d.resync = true
				continue
			}
			v.setItemsLocked(d, groups[k])
		}
		v.resubscribe = false
		v.notify()
		v.mu.Unlock()

		events, unsubscribe = ch, cancel
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return events, unsubscribe, nil
}

// handle routes one remote event: queued if its day is pending, applied
// immediately otherwise.
func (v *View) handle(ev domain.ChangeEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || ev.Trip() != v.tripID {
		return
	}

	day := v.homeDayLocked(ev)
	if d, ok := v.days[day]; ok && d.pending() {
		d.queue = append(d.queue, ev)
		return
	}

	if err := v.applyLocked(day, ev); err != nil {
		v.log.Debug("remote event is stale; re-fetching day", "day", day, "error", err)
		if d, ok := v.days[day]; ok {
			v.scheduleRefetchLocked(d)
		}
	}
	v.notify()
}

// homeDayLocked is the day whose queue an event belongs to: where the item
// currently lives locally, or the row's own date for items not seen yet.
func (v *View) homeDayLocked(ev domain.ChangeEvent) domain.DayKey {
	switch e := ev.(type) {
	case domain.ItemInserted:
		return e.Item.VisitDate
	case domain.ItemUpdated:
		if day, ok := v.dayOf[e.Item.ID]; ok {
			return day
		}
		return e.Item.VisitDate
	case domain.ItemDeleted:
		return v.dayOf[e.ID]
	}
	return ""
}

// applyLocked applies ev to current state. Order comes from the event's
// order_index; the ordering engine is not re-run for remote changes.
// An update for an item not held locally returns *domain.StaleStateError.
func (v *View) applyLocked(day domain.DayKey, ev domain.ChangeEvent) error {
	switch e := ev.(type) {
	case domain.ItemInserted:
		if _, ok := v.dayOf[e.Item.ID]; ok {
			return nil
		}
		v.putLocked(e.Item)
		return nil

	case domain.ItemUpdated:
		if _, ok := v.dayOf[e.Item.ID]; !ok {
			return &domain.StaleStateError{Day: day, ItemID: e.Item.ID}
		}
		v.removeLocked(e.Item.ID)
		v.putLocked(e.Item)
		return nil

	case domain.ItemDeleted:
		v.removeLocked(e.ID)
		return nil
	}
	return nil
}

func (v *View) putLocked(item domain.ScheduleItem) {
	d, ok := v.days[item.VisitDate]
	if !ok {
		v.log.Warn("remote item outside trip range ignored", "item_id", item.ID, "visit_date", item.VisitDate)
		return
	}
	v.setItemsLocked(d, append(slices.Clone(d.items), item))
}

func (v *View) removeLocked(id uuid.UUID) {
	day, ok := v.dayOf[id]
	if !ok {
		return
	}
	d := v.days[day]
	next := make([]domain.ScheduleItem, 0, len(d.items))
	for _, it := range d.items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	v.setItemsLocked(d, next)
}
