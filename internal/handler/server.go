// Package handler implements the HTTP handlers for the trip planner API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, etc.) but all share the same Server struct so
// they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/middleware"
)

// CoupleServicer defines the pairing operations the couple handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type CoupleServicer interface {
	Create(ctx context.Context, userID uuid.UUID) (domain.Couple, error)
	Join(ctx context.Context, userID uuid.UUID, code string) (domain.Couple, error)
	Mine(ctx context.Context, userID uuid.UUID) (domain.Couple, error)
}

// TripServicer defines the business operations the trip handlers depend on.
type TripServicer interface {
	Create(ctx context.Context, userID uuid.UUID, trip domain.Trip) (domain.Trip, error)
	Get(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error)
	List(ctx context.Context, userID uuid.UUID, p domain.PageRequest) ([]domain.Trip, int64, error)
	Update(ctx context.Context, userID uuid.UUID, trip domain.Trip) (domain.Trip, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ScheduleServicer defines the schedule operations the item and day handlers
// depend on.
type ScheduleServicer interface {
	ListItems(ctx context.Context, userID, tripID uuid.UUID) ([]domain.ScheduleItem, error)
	Days(ctx context.Context, userID, tripID uuid.UUID) ([]domain.DaySchedule, error)
	AddItem(ctx context.Context, userID uuid.UUID, item domain.ScheduleItem) (domain.ScheduleItem, error)
	UpdateItem(ctx context.Context, userID, tripID, itemID uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error)
	DeleteItem(ctx context.Context, userID, tripID, itemID uuid.UUID) error
	Move(ctx context.Context, userID, tripID uuid.UUID, day domain.DayKey, from, to int) ([]domain.ScheduleItem, error)
	Places(ctx context.Context, userID uuid.UUID, tripID *uuid.UUID) ([]domain.PlacedItem, error)
}

// EventSource hands out per-trip change-event subscriptions.
// *changefeed.Hub implements it.
type EventSource interface {
	Subscribe(ctx context.Context, tripID uuid.UUID) (<-chan domain.ChangeEvent, func())
}

// Server holds the dependencies of every endpoint.
// Methods are in domain-specific files but all operate on this struct.
type Server struct {
	couples   CoupleServicer
	trips     TripServicer
	schedule  ScheduleServicer
	events    EventSource
	log       *slog.Logger
	now       func() time.Time
	keepAlive time.Duration
}

// NewServer constructs the Server with all its dependencies.
func NewServer(couples CoupleServicer, trips TripServicer, schedule ScheduleServicer, events EventSource, log *slog.Logger) *Server {
	return &Server{
		couples:   couples,
		trips:     trips,
		schedule:  schedule,
		events:    events,
		log:       log,
		now:       time.Now,
		keepAlive: 25 * time.Second,
	}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil, slog.Default())
}

// Routes returns the API router. Everything except /healthz and
// /openapi.yaml requires the X-User-ID header.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRequireUser())

		r.Post("/couples", s.CreateCouple)
		r.Post("/couples/join", s.JoinCouple)
		r.Get("/couples/me", s.GetMyCouple)

		r.Post("/trips", s.CreateTrip)
		r.Get("/trips", s.ListTrips)
		r.Get("/places", s.ListPlaces)
		r.Route("/trips/{tripId}", func(r chi.Router) {
			r.Get("/", s.GetTrip)
			r.Put("/", s.UpdateTrip)
			r.Delete("/", s.DeleteTrip)

			r.Get("/items", s.ListItems)
			r.Post("/items", s.CreateItem)
			r.Patch("/items/{itemId}", s.UpdateItem)
			r.Delete("/items/{itemId}", s.DeleteItem)

			r.Get("/days", s.ListDays)
			r.Post("/days/{day}/move", s.MoveItem)

			r.Get("/events", s.StreamEvents)
		})
	})
	return r
}

// userID returns the caller set by the RequireUser middleware.
func userID(r *http.Request) uuid.UUID {
	id, _ := middleware.UserID(r.Context())
	return id
}
