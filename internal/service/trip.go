// Package service contains the business logic for the trip planner API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/repo"
	"github.com/pkordes/duotrip/backend/internal/schedule"
)

// TripService implements business logic for Trip operations. Every call is
// made on behalf of a user, who must belong to the trip's couple.
type TripService struct {
	trips   repo.TripRepo
	couples repo.CoupleRepo
}

// NewTripService constructs a TripService backed by the provided repos.
func NewTripService(trips repo.TripRepo, couples repo.CoupleRepo) *TripService {
	return &TripService{trips: trips, couples: couples}
}

// Create validates and persists a new trip for the user's couple.
// Returns domain.ErrForbidden if the user is not in a couple yet.
func (s *TripService) Create(ctx context.Context, userID uuid.UUID, trip domain.Trip) (domain.Trip, error) {
	couple, err := s.couples.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w: create or join a couple first", domain.ErrForbidden)
	}
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	trip.CoupleID = couple.ID
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, err
	}

	result, err := s.trips.Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	return result, nil
}

// Get returns a trip the user may access.
// Returns domain.ErrNotFound if it does not exist, domain.ErrForbidden if the
// user is not a member of its couple.
func (s *TripService) Get(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Get: %w", err)
	}
	couple, err := s.couples.GetByID(ctx, trip.CoupleID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Get: %w", err)
	}
	if !couple.HasMember(userID) {
		return domain.Trip{}, fmt.Errorf("service.TripService.Get: %w", domain.ErrForbidden)
	}
	return trip, nil
}

// CoupleOf returns the user's couple.
// Returns domain.ErrNotFound if the user has not created or joined one.
func (s *TripService) CoupleOf(ctx context.Context, userID uuid.UUID) (domain.Couple, error) {
	couple, err := s.couples.GetByUser(ctx, userID)
	if err != nil {
		return domain.Couple{}, fmt.Errorf("service.TripService.CoupleOf: %w", err)
	}
	return couple, nil
}

// List returns one page of the user's couple's trips, newest first, and the
// total count. A user without a couple simply has no trips.
func (s *TripService) List(ctx context.Context, userID uuid.UUID, p domain.PageRequest) ([]domain.Trip, int64, error) {
	couple, err := s.couples.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Trip{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.List: %w", err)
	}

	trips, total, err := s.trips.ListByCouple(ctx, couple.ID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, total, nil
}

// Update validates and persists changes to a trip. The owning couple cannot
// be changed.
func (s *TripService) Update(ctx context.Context, userID uuid.UUID, trip domain.Trip) (domain.Trip, error) {
	existing, err := s.Get(ctx, userID, trip.ID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	trip.CoupleID = existing.CoupleID
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, err
	}

	result, err := s.trips.Update(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return result, nil
}

// Delete removes a trip and, by cascade, its schedule.
func (s *TripService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// validateTrip enforces business rules common to both Create and Update.
//   - Title must be non-empty (whitespace-only titles are rejected).
//   - The date range must be valid; a one-day trip is allowed.
func validateTrip(trip domain.Trip) error {
	if strings.TrimSpace(trip.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if trip.StartDate.IsZero() || trip.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", domain.ErrValidation)
	}
	if _, err := schedule.TripDays(trip); err != nil {
		return err
	}
	return nil
}
