package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// DeletedItem is the data of a "delete" stream event.
type DeletedItem struct {
	ID     uuid.UUID `json:"id"`
	TripID uuid.UUID `json:"trip_id"`
}

// StreamEvents handles GET /trips/{tripId}/events as a server-sent event
// stream of the trip's schedule changes.
//
// Event names are insert, update and delete. When the server drops the
// subscription (slow reader or lost database feed) a final "resync" event
// is sent and the stream ends; the client should reload and reconnect.
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripId")
	if !ok {
		return
	}
	if _, err := s.trips.Get(r.Context(), userID(r), tripID); err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}

	events, cancel := s.events.Subscribe(r.Context(), tripID)
	defer cancel()

	rc := http.NewResponseController(w)
	// The server's write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.log.WarnContext(r.Context(), "event stream not flushable", "error", err)
		return
	}

	ping := time.NewTicker(s.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				_, _ = fmt.Fprint(w, "event: resync\ndata: {}\n\n")
				_ = rc.Flush()
				return
			}
			if err := writeEvent(w, ev); err != nil {
				s.log.WarnContext(r.Context(), "write event", "trip_id", tripID, "error", err)
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev domain.ChangeEvent) error {
	var (
		name string
		data any
	)
	switch e := ev.(type) {
	case domain.ItemInserted:
		name, data = "insert", e.Item
	case domain.ItemUpdated:
		name, data = "update", e.Item
	case domain.ItemDeleted:
		name, data = "delete", DeletedItem{ID: e.ID, TripID: e.TripID}
	default:
		return fmt.Errorf("handler.writeEvent: unknown event %T", ev)
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("handler.writeEvent: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, b)
	return err
}
