package handler

import (
	"net/http"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// CreateItemRequest is the body of POST /trips/{tripId}/items.
type CreateItemRequest struct {
	PlaceName    string   `json:"place_name"`
	PlaceAddress string   `json:"place_address,omitempty"`
	PlacePhone   string   `json:"place_phone,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	VisitDate    string   `json:"visit_date"`
	VisitTime    string   `json:"visit_time,omitempty"`
	Memo         string   `json:"memo,omitempty"`
}

// UpdateItemRequest is the body of PATCH /trips/{tripId}/items/{itemId}.
// Absent fields are left unchanged; order is changed through the move endpoint.
type UpdateItemRequest struct {
	PlaceName *string `json:"place_name,omitempty"`
	VisitTime *string `json:"visit_time,omitempty"`
	Memo      *string `json:"memo,omitempty"`
}

// MoveRequest is the body of POST /trips/{tripId}/days/{day}/move.
type MoveRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

// ItemList wraps a list of schedule items.
type ItemList struct {
	Data []domain.ScheduleItem `json:"data"`
}

// DayList is the body of GET /trips/{tripId}/days.
type DayList struct {
	Data []domain.DaySchedule `json:"data"`
}

// PlaceList is the body of GET /places.
type PlaceList struct {
	Data []domain.PlacedItem `json:"data"`
}

// ListPlaces handles GET /places: every placed item across the caller's
// trips, or one trip's when trip_id is given.
func (s *Server) ListPlaces(w http.ResponseWriter, r *http.Request) {
	tripID, ok := queryUUID(w, r, "trip_id")
	if !ok {
		return
	}
	placed, err := s.schedule.Places(r.Context(), userID(r), tripID)
	if err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusOK, PlaceList{Data: placed})
}

// ListItems handles GET /trips/{tripId}/items.
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripId")
	if !ok {
		return
	}
	items, err := s.schedule.ListItems(r.Context(), userID(r), tripID)
	if err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusOK, ItemList{Data: items})
}

// ListDays handles GET /trips/{tripId}/days.
func (s *Server) ListDays(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripId")
	if !ok {
		return
	}
	days, err := s.schedule.Days(r.Context(), userID(r), tripID)
	if err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusOK, DayList{Data: days})
}

// CreateItem handles POST /trips/{tripId}/items. The new item is appended
// to the end of its day.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripId")
	if !ok {
		return
	}
	var body CreateItemRequest
	if !decodeBody(w, r, &body) {
		return
	}
	day, err := domain.ParseDayKey(body.VisitDate)
	if err != nil {
		requestError(w, "visit_date must be YYYY-MM-DD")
		return
	}

	created, err := s.schedule.AddItem(r.Context(), userID(r), domain.ScheduleItem{
		TripID:       tripID,
		PlaceName:    body.PlaceName,
		PlaceAddress: body.PlaceAddress,
		PlacePhone:   body.PlacePhone,
		Latitude:     body.Latitude,
		Longitude:    body.Longitude,
		VisitDate:    day,
		VisitTime:    body.VisitTime,
		Memo:         body.Memo,
	})
	if err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateItem handles PATCH /trips/{tripId}/items/{itemId}.
func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripId")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}
	var body UpdateItemRequest
	if !decodeBody(w, r, &body) {
		return
	}

	updated, err := s.schedule.UpdateItem(r.Context(), userID(r), tripID, itemID, domain.ItemPatch{
		PlaceName: body.PlaceName,
		VisitTime: body.VisitTime,
		Memo:      body.Memo,
	})
	if err != nil {
		s.serviceError(w, r, "schedule item", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteItem handles DELETE /trips/{tripId}/items/{itemId}. The remaining
// items of the day are compacted in the same transaction.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripId")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}
	if err := s.schedule.DeleteItem(r.Context(), userID(r), tripID, itemID); err != nil {
		s.serviceError(w, r, "schedule item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveItem handles POST /trips/{tripId}/days/{day}/move and returns the
// day's new order.
func (s *Server) MoveItem(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripId")
	if !ok {
		return
	}
	day, ok := pathDay(w, r, "day")
	if !ok {
		return
	}
	var body MoveRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.From == nil || body.To == nil {
		requestError(w, "from and to are required")
		return
	}

	items, err := s.schedule.Move(r.Context(), userID(r), tripID, day, *body.From, *body.To)
	if err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusOK, ItemList{Data: items})
}
