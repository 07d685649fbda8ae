package tripview_test

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/schedule"
	"github.com/pkordes/duotrip/backend/internal/tripview"
)

// fakeStore is an in-memory tripview.Store. Every committed write is echoed
// to open subscriptions, the way the schedule_items trigger does.
type fakeStore struct {
	mu      sync.Mutex
	items   map[uuid.UUID]domain.ScheduleItem
	subs    map[int]chan domain.ChangeEvent
	nextSub int
	calls   []string

	subscribeCalls int

	// beforeWrite runs without the lock before every write; a non-nil error
	// fails the write without committing it.
	beforeWrite func(op string, item domain.ScheduleItem, patch domain.ItemPatch) error
	listDayErr  error
	listErr     error
}

var _ tripview.Store = (*fakeStore)(nil)

func newFakeStore(seed ...domain.ScheduleItem) *fakeStore {
	f := &fakeStore{items: make(map[uuid.UUID]domain.ScheduleItem), subs: make(map[int]chan domain.ChangeEvent)}
	for _, it := range seed {
		f.items[it.ID] = it
	}
	return f
}

func (f *fakeStore) ListItems(_ context.Context, tripID uuid.UUID) ([]domain.ScheduleItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.ScheduleItem
	for _, it := range f.items {
		if it.TripID == tripID {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b domain.ScheduleItem) int {
		if a.VisitDate != b.VisitDate {
			if a.VisitDate < b.VisitDate {
				return -1
			}
			return 1
		}
		return a.OrderIndex - b.OrderIndex
	})
	return out, nil
}

func (f *fakeStore) ListDay(_ context.Context, tripID uuid.UUID, day domain.DayKey) ([]domain.ScheduleItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listDayErr != nil {
		return nil, f.listDayErr
	}
	return f.dayLocked(tripID, day), nil
}

func (f *fakeStore) InsertItem(_ context.Context, item domain.ScheduleItem) (domain.ScheduleItem, error) {
	if err := f.hook("insert", item, domain.ItemPatch{}); err != nil {
		return domain.ScheduleItem{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "insert "+item.PlaceName)
	f.items[item.ID] = item
	f.emitLocked(domain.ItemInserted{Item: item})
	return item, nil
}

func (f *fakeStore) UpdateItem(_ context.Context, tripID, id uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error) {
	f.mu.Lock()
	cur, ok := f.items[id]
	f.mu.Unlock()
	if !ok || cur.TripID != tripID {
		return domain.ScheduleItem{}, domain.ErrNotFound
	}
	if err := f.hook("update", cur, patch); err != nil {
		return domain.ScheduleItem{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok = f.items[id]
	if !ok {
		return domain.ScheduleItem{}, domain.ErrNotFound
	}
	next := patch.Apply(cur)
	f.items[id] = next
	call := "update " + cur.PlaceName
	if patch.OrderIndex != nil {
		call += fmt.Sprintf("=%d", *patch.OrderIndex)
	}
	f.calls = append(f.calls, call)
	f.emitLocked(domain.ItemUpdated{Item: next})
	return next, nil
}

func (f *fakeStore) DeleteItem(_ context.Context, tripID, id uuid.UUID) error {
	f.mu.Lock()
	cur, ok := f.items[id]
	f.mu.Unlock()
	if !ok || cur.TripID != tripID {
		return domain.ErrNotFound
	}
	if err := f.hook("delete", cur, domain.ItemPatch{}); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	f.calls = append(f.calls, "delete "+cur.PlaceName)
	f.emitLocked(domain.ItemDeleted{TripID: tripID, ID: id})
	return nil
}

func (f *fakeStore) Subscribe(_ context.Context, _ uuid.UUID) (<-chan domain.ChangeEvent, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeCalls++
	ch := make(chan domain.ChangeEvent, 256)
	id := f.nextSub
	f.nextSub++
	f.subs[id] = ch
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c, ok := f.subs[id]; ok {
			close(c)
			delete(f.subs, id)
		}
	}, nil
}

// dropSubscriptions closes every open subscription, as the hub does after a
// feed reconnect.
func (f *fakeStore) dropSubscriptions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.subs {
		close(c)
		delete(f.subs, id)
	}
}

// put writes an item without emitting an event, as if the notification was
// lost.
func (f *fakeStore) put(item domain.ScheduleItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
}

func (f *fakeStore) day(tripID uuid.UUID, day domain.DayKey) []domain.ScheduleItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dayLocked(tripID, day)
}

func (f *fakeStore) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeStore) openSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeStore) setListDayErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listDayErr = err
}

func (f *fakeStore) dayLocked(tripID uuid.UUID, day domain.DayKey) []domain.ScheduleItem {
	var out []domain.ScheduleItem
	for _, it := range f.items {
		if it.TripID == tripID && it.VisitDate == day {
			out = append(out, it)
		}
	}
	return schedule.Normalize(out)
}

func (f *fakeStore) hook(op string, item domain.ScheduleItem, patch domain.ItemPatch) error {
	f.mu.Lock()
	h := f.beforeWrite
	f.mu.Unlock()
	if h == nil {
		return nil
	}
	return h(op, item, patch)
}

func (f *fakeStore) emitLocked(ev domain.ChangeEvent) {
	for _, c := range f.subs {
		c <- ev
	}
}

func (f *fakeStore) onWrite(h func(op string, item domain.ScheduleItem, patch domain.ItemPatch) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beforeWrite = h
}
