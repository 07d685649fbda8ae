package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// TripRequest is the body of POST /trips and PUT /trips/{tripId}.
type TripRequest struct {
	Title       string              `json:"title"`
	Destination string              `json:"destination,omitempty"`
	StartDate   *openapi_types.Date `json:"start_date"`
	EndDate     *openapi_types.Date `json:"end_date"`
}

// TripResponse is the API shape of a trip, including the values derived
// from today's date.
type TripResponse struct {
	ID           uuid.UUID          `json:"id"`
	CoupleID     uuid.UUID          `json:"couple_id"`
	Title        string             `json:"title"`
	Destination  string             `json:"destination,omitempty"`
	StartDate    openapi_types.Date `json:"start_date"`
	EndDate      openapi_types.Date `json:"end_date"`
	Status       domain.TripStatus  `json:"status"`
	DDay         string             `json:"d_day"`
	DurationDays int                `json:"duration_days"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TripList is the body of GET /trips.
type TripList struct {
	Data       []TripResponse `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// CreateTrip handles POST /trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body TripRequest
	if !decodeBody(w, r, &body) {
		return
	}
	created, err := s.trips.Create(r.Context(), userID(r), requestToTrip(uuid.Nil, body))
	if err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusCreated, s.tripToResponse(created))
}

// ListTrips handles GET /trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	params := pageRequest(r)
	trips, total, err := s.trips.List(r.Context(), userID(r), params)
	if err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}

	data := make([]TripResponse, len(trips))
	for i, t := range trips {
		data[i] = s.tripToResponse(t)
	}
	writeJSON(w, http.StatusOK, TripList{
		Data:       data,
		Pagination: Pagination{Page: params.Page, Limit: params.Limit, Total: int(total)},
	})
}

// GetTrip handles GET /trips/{tripId}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "tripId")
	if !ok {
		return
	}
	trip, err := s.trips.Get(r.Context(), userID(r), id)
	if err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusOK, s.tripToResponse(trip))
}

// UpdateTrip handles PUT /trips/{tripId}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "tripId")
	if !ok {
		return
	}
	var body TripRequest
	if !decodeBody(w, r, &body) {
		return
	}
	updated, err := s.trips.Update(r.Context(), userID(r), requestToTrip(id, body))
	if err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusOK, s.tripToResponse(updated))
}

// DeleteTrip handles DELETE /trips/{tripId}.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "tripId")
	if !ok {
		return
	}
	if err := s.trips.Delete(r.Context(), userID(r), id); err != nil {
		s.serviceError(w, r, "trip", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- mapping helpers --------------------------------------------------------

// requestToTrip converts a request body into a domain.Trip. Missing dates
// stay zero and are rejected by the service.
func requestToTrip(id uuid.UUID, body TripRequest) domain.Trip {
	t := domain.Trip{
		ID:          id,
		Title:       body.Title,
		Destination: body.Destination,
	}
	if body.StartDate != nil {
		t.StartDate = body.StartDate.Time
	}
	if body.EndDate != nil {
		t.EndDate = body.EndDate.Time
	}
	return t
}

func (s *Server) tripToResponse(t domain.Trip) TripResponse {
	now := s.now()
	return TripResponse{
		ID:           t.ID,
		CoupleID:     t.CoupleID,
		Title:        t.Title,
		Destination:  t.Destination,
		StartDate:    openapi_types.Date{Time: t.StartDate},
		EndDate:      openapi_types.Date{Time: t.EndDate},
		Status:       t.Status(now),
		DDay:         t.DDay(now),
		DurationDays: t.DurationDays(),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
