// Package tripview keeps an in-memory, day-grouped schedule of one trip in
// sync with the store. Local edits are applied optimistically and persisted
// through a Store; remote changes arrive on the store's change feed and are
// reconciled into the same state.
//
// Each day runs its own mutation state machine. While a day is pending,
// remote events for it are queued and replayed once the local write settles,
// so edits of different days never wait for each other.
package tripview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/sethvargo/go-retry"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/schedule"
)

// ErrClosed is returned by operations on a closed View.
var ErrClosed = errors.New("tripview: view closed")

// Store is the persistence and change-feed contract the view depends on.
// *store.Client implements it.
type Store interface {
	ListItems(ctx context.Context, tripID uuid.UUID) ([]domain.ScheduleItem, error)
	ListDay(ctx context.Context, tripID uuid.UUID, day domain.DayKey) ([]domain.ScheduleItem, error)
	InsertItem(ctx context.Context, item domain.ScheduleItem) (domain.ScheduleItem, error)
	UpdateItem(ctx context.Context, tripID, id uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error)
	DeleteItem(ctx context.Context, tripID, id uuid.UUID) error
	Subscribe(ctx context.Context, tripID uuid.UUID) (<-chan domain.ChangeEvent, func(), error)
}

// SyncStatus summarizes whether local state matches the store.
type SyncStatus string

const (
	StatusSynced  SyncStatus = "synced"
	StatusSyncing SyncStatus = "syncing"
	// StatusStale means some day could not be re-fetched after a failed
	// write and holds possibly outdated items until Refresh.
	StatusStale SyncStatus = "stale"
)

// Marker is a map pin for a placed item.
type Marker struct {
	ID         uuid.UUID     `json:"id"`
	Day        domain.DayKey `json:"day"`
	Latitude   float64       `json:"latitude"`
	Longitude  float64       `json:"longitude"`
	OrderIndex int           `json:"order_index"`
}

// Option customizes a View.
type Option func(*View)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(v *View) { v.log = log }
}

// WithRefetchTimeout bounds each day re-fetch issued after a failure.
func WithRefetchTimeout(d time.Duration) Option {
	return func(v *View) { v.refetchTimeout = d }
}

// WithResubscribeBackoff sets the backoff used when the change feed drops.
func WithResubscribeBackoff(b func() retry.Backoff) Option {
	return func(v *View) { v.backoff = b }
}

// WithClock overrides time.Now for optimistic created_at values.
func WithClock(now func() time.Time) Option {
	return func(v *View) { v.now = now }
}

type dayState struct {
	key     domain.DayKey
	items   []domain.ScheduleItem
	machine *fsm.FSM
	queue   []domain.ChangeEvent
	// sem serializes local mutations and re-fetches of this day.
	sem chan struct{}
	// stale is set when a re-fetch after a failed write also failed.
	stale bool
	// resync discards the queue on the next confirm and re-fetches instead;
	// set when the feed dropped while the day was pending.
	resync        bool
	refetchQueued bool
}

func (d *dayState) pending() bool { return d.machine.Is(string(PhasePending)) }

// View is the live schedule of one trip for one user.
type View struct {
	store          Store
	log            *slog.Logger
	tripID         uuid.UUID
	userID         uuid.UUID
	keys           []domain.DayKey
	refetchTimeout time.Duration
	backoff        func() retry.Backoff
	now            func() time.Time

	runCtx context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	changes chan struct{}

	mu          sync.Mutex
	days        map[domain.DayKey]*dayState
	dayOf       map[uuid.UUID]domain.DayKey
	resubscribe bool
	closed      bool
}

// Open subscribes to the trip's change feed, loads its items and starts
// reconciling. The subscription is opened before the initial fetch so no
// change committed in between is missed. ctx bounds only the initial load;
// the view lives until Close.
func Open(ctx context.Context, st Store, trip domain.Trip, userID uuid.UUID, opts ...Option) (*View, error) {
	keys, err := schedule.TripDays(trip)
	if err != nil {
		return nil, fmt.Errorf("tripview.Open: %w", err)
	}

	v := &View{
		store:          st,
		log:            slog.Default(),
		tripID:         trip.ID,
		userID:         userID,
		keys:           keys,
		refetchTimeout: 10 * time.Second,
		backoff: func() retry.Backoff {
			return retry.WithCappedDuration(10*time.Second, retry.NewExponential(200*time.Millisecond))
		},
		now:     time.Now,
		done:    make(chan struct{}),
		changes: make(chan struct{}, 1),
		days:    make(map[domain.DayKey]*dayState, len(keys)),
		dayOf:   make(map[uuid.UUID]domain.DayKey),
	}
	for _, opt := range opts {
		opt(v)
	}
	for _, k := range keys {
		v.days[k] = &dayState{key: k, machine: newDayMachine(), sem: make(chan struct{}, 1)}
	}

	v.runCtx, v.cancel = context.WithCancel(context.Background())
	events, unsubscribe, err := st.Subscribe(v.runCtx, trip.ID)
	if err != nil {
		v.cancel()
		return nil, fmt.Errorf("tripview.Open: subscribe: %w", err)
	}
	items, err := st.ListItems(ctx, trip.ID)
	if err != nil {
		unsubscribe()
		v.cancel()
		return nil, fmt.Errorf("tripview.Open: list items: %w", err)
	}

	v.mu.Lock()
	v.loadLocked(items)
	v.mu.Unlock()

	go v.run(events, unsubscribe)
	return v, nil
}

// Close stops reconciling and drops all state. Writes already issued finish
// in the background and are not observed.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.cancel()
	<-v.done
	v.wg.Wait()

	v.mu.Lock()
	v.days = map[domain.DayKey]*dayState{}
	v.dayOf = map[uuid.UUID]domain.DayKey{}
	v.mu.Unlock()
}

// TripID returns the trip this view follows.
func (v *View) TripID() uuid.UUID { return v.tripID }

// Days returns the trip's day keys in calendar order.
func (v *View) Days() []domain.DayKey { return slices.Clone(v.keys) }

// Day returns the items of day in display order. Unknown days yield nil.
func (v *View) Day(day domain.DayKey) []domain.ScheduleItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, ok := v.days[day]
	if !ok {
		return nil
	}
	return slices.Clone(d.items)
}

// PlacedItems returns every item with coordinates in day-then-order order.
func (v *View) PlacedItems() []domain.ScheduleItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []domain.ScheduleItem
	for _, k := range v.keys {
		d, ok := v.days[k]
		if !ok {
			continue
		}
		for _, it := range d.items {
			if it.Placed() {
				out = append(out, it)
			}
		}
	}
	return out
}

// Markers projects PlacedItems into map pins.
func (v *View) Markers() []Marker {
	placed := v.PlacedItems()
	out := make([]Marker, 0, len(placed))
	for _, it := range placed {
		out = append(out, Marker{
			ID:         it.ID,
			Day:        it.VisitDate,
			Latitude:   *it.Latitude,
			Longitude:  *it.Longitude,
			OrderIndex: it.OrderIndex,
		})
	}
	return out
}

// Phase reports the mutation state of day.
func (v *View) Phase(day domain.DayKey) Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, ok := v.days[day]
	if !ok {
		return PhaseIdle
	}
	return Phase(d.machine.Current())
}

// IsStale reports whether day needs a manual Refresh before it accepts edits.
func (v *View) IsStale(day domain.DayKey) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, ok := v.days[day]
	return ok && d.stale
}

// Status is StatusSyncing while any write, re-fetch or resubscribe is in
// flight. Otherwise it is StatusStale if any day is stale, and StatusSynced
// when none is.
func (v *View) Status() SyncStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.resubscribe {
		return StatusSyncing
	}
	stale := false
	for _, d := range v.days {
		if d.pending() || d.refetchQueued {
			return StatusSyncing
		}
		stale = stale || d.stale
	}
	if stale {
		return StatusStale
	}
	return StatusSynced
}

// Changes signals after every state change. Signals coalesce; readers should
// re-read the state they care about on each receive.
func (v *View) Changes() <-chan struct{} { return v.changes }

func (v *View) notify() {
	select {
	case v.changes <- struct{}{}:
	default:
	}
}

// loadLocked replaces every day's items from a full trip listing.
func (v *View) loadLocked(items []domain.ScheduleItem) {
	groups, dropped := schedule.GroupByDay(items, v.keys)
	if dropped > 0 {
		v.log.Warn("schedule items outside trip range ignored", "trip_id", v.tripID, "dropped", dropped)
	}
	for _, k := range v.keys {
		v.setItemsLocked(v.days[k], groups[k])
	}
	v.notify()
}

// setItemsLocked replaces a day's items and keeps the id index in step.
func (v *View) setItemsLocked(d *dayState, items []domain.ScheduleItem) {
	for _, it := range d.items {
		if v.dayOf[it.ID] == d.key {
			delete(v.dayOf, it.ID)
		}
	}
	d.items = schedule.Normalize(items)
	for _, it := range d.items {
		v.dayOf[it.ID] = d.key
	}
}
