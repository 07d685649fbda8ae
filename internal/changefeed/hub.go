package changefeed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// DefaultBuffer is the per-subscriber event buffer used when NewHub is given
// a non-positive size.
const DefaultBuffer = 256

// Hub fans change events out to subscribers keyed by trip.
//
// Publish never blocks. A subscriber whose buffer is full is dropped and its
// channel closed: skipping events would break per-day delivery order, so a
// lagging consumer must resubscribe and re-fetch instead.
type Hub struct {
	log    *slog.Logger
	buffer int

	mu   sync.Mutex
	subs map[uuid.UUID]map[*subscriber]struct{}
}

type subscriber struct {
	ch chan domain.ChangeEvent
}

// NewHub returns an empty Hub.
func NewHub(log *slog.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{log: log, buffer: buffer, subs: make(map[uuid.UUID]map[*subscriber]struct{})}
}

// Subscribe registers for events of tripID. The returned channel is closed
// when cancel is called, when ctx is done, when the subscriber lags, or when
// the hub is Reset. cancel is idempotent.
func (h *Hub) Subscribe(ctx context.Context, tripID uuid.UUID) (<-chan domain.ChangeEvent, func()) {
	s := &subscriber{ch: make(chan domain.ChangeEvent, h.buffer)}

	h.mu.Lock()
	if h.subs[tripID] == nil {
		h.subs[tripID] = make(map[*subscriber]struct{})
	}
	h.subs[tripID][s] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.removeLocked(tripID, s)
	}
	stop := context.AfterFunc(ctx, cancel)
	return s.ch, func() {
		stop()
		cancel()
	}
}

// Publish delivers ev to every subscriber of its trip.
func (h *Hub) Publish(ev domain.ChangeEvent) {
	tripID := ev.Trip()

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[tripID] {
		select {
		case s.ch <- ev:
		default:
			h.log.Warn("change feed subscriber lagged; dropping", "trip_id", tripID)
			h.removeLocked(tripID, s)
		}
	}
}

// Reset closes every subscription. The listener calls it after reconnecting,
// since notifications sent while it was away are lost.
func (h *Hub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for tripID, set := range h.subs {
		for s := range set {
			h.removeLocked(tripID, s)
		}
	}
}

// Subscribers reports how many subscriptions tripID currently has.
func (h *Hub) Subscribers(tripID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[tripID])
}

func (h *Hub) removeLocked(tripID uuid.UUID, s *subscriber) {
	set, ok := h.subs[tripID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	close(s.ch)
	if len(set) == 0 {
		delete(h.subs, tripID)
	}
}
