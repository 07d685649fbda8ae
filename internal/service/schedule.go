package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/repo"
	"github.com/pkordes/duotrip/backend/internal/schedule"
)

// visitTimePattern accepts HH:MM or HH:MM:SS on a 24-hour clock.
var visitTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)

// TripAccess resolves a trip or couple for a user, enforcing couple
// membership. *TripService implements it.
type TripAccess interface {
	Get(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error)
	CoupleOf(ctx context.Context, userID uuid.UUID) (domain.Couple, error)
}

// ScheduleService manages the ordered schedule items of a trip.
// Order changes made here are applied in a single transaction per request.
type ScheduleService struct {
	trips TripAccess
	items repo.ScheduleItemRepo
	log   *slog.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(trips TripAccess, items repo.ScheduleItemRepo, log *slog.Logger) *ScheduleService {
	return &ScheduleService{trips: trips, items: items, log: log}
}

// ListItems returns every item of the trip ordered by day then order_index.
// Always returns a non-nil slice.
func (s *ScheduleService) ListItems(ctx context.Context, userID, tripID uuid.UUID) ([]domain.ScheduleItem, error) {
	if _, err := s.trips.Get(ctx, userID, tripID); err != nil {
		return nil, fmt.Errorf("service.ScheduleService.ListItems: %w", err)
	}
	items, err := s.items.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ScheduleService.ListItems: %w", err)
	}
	if items == nil {
		return []domain.ScheduleItem{}, nil
	}
	return items, nil
}

// Days returns the trip's timeline: one entry per day of its date range, in
// order, each holding that day's items.
func (s *ScheduleService) Days(ctx context.Context, userID, tripID uuid.UUID) ([]domain.DaySchedule, error) {
	trip, err := s.trips.Get(ctx, userID, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ScheduleService.Days: %w", err)
	}
	days, err := schedule.TripDays(trip)
	if err != nil {
		return nil, fmt.Errorf("service.ScheduleService.Days: %w", err)
	}
	items, err := s.items.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ScheduleService.Days: %w", err)
	}

	groups, dropped := schedule.GroupByDay(items, days)
	if dropped > 0 {
		s.log.WarnContext(ctx, "schedule items outside trip range", "trip_id", tripID, "dropped", dropped)
	}
	out := make([]domain.DaySchedule, 0, len(days))
	for _, d := range days {
		out = append(out, domain.DaySchedule{Day: d, Items: groups[d]})
	}
	return out, nil
}

// Places returns every item with coordinates across the trips of the user's
// couple, or only tripID's when it is non-nil. A user without a couple has
// no places. Always returns a non-nil slice.
func (s *ScheduleService) Places(ctx context.Context, userID uuid.UUID, tripID *uuid.UUID) ([]domain.PlacedItem, error) {
	var coupleID uuid.UUID
	if tripID != nil {
		trip, err := s.trips.Get(ctx, userID, *tripID)
		if err != nil {
			return nil, fmt.Errorf("service.ScheduleService.Places: %w", err)
		}
		coupleID = trip.CoupleID
	} else {
		couple, err := s.trips.CoupleOf(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.PlacedItem{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("service.ScheduleService.Places: %w", err)
		}
		coupleID = couple.ID
	}

	placed, err := s.items.ListPlacedByCouple(ctx, coupleID, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ScheduleService.Places: %w", err)
	}
	if placed == nil {
		return []domain.PlacedItem{}, nil
	}
	return placed, nil
}

// AddItem appends a new item to the end of its day.
// Returns domain.ErrValidation for invalid input or a day outside the trip.
func (s *ScheduleService) AddItem(ctx context.Context, userID uuid.UUID, item domain.ScheduleItem) (domain.ScheduleItem, error) {
	trip, err := s.trips.Get(ctx, userID, item.TripID)
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("service.ScheduleService.AddItem: %w", err)
	}
	if err := validateItem(item); err != nil {
		return domain.ScheduleItem{}, err
	}
	if err := requireTripDay(trip, item.VisitDate); err != nil {
		return domain.ScheduleItem{}, err
	}

	day, err := s.items.ListByDay(ctx, item.TripID, item.VisitDate)
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("service.ScheduleService.AddItem: %w", err)
	}
	_, item.OrderIndex = schedule.AppendInsert(day, item)
	item.CreatedBy = userID

	created, err := s.items.Create(ctx, item)
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("service.ScheduleService.AddItem: %w", err)
	}
	return created, nil
}

// UpdateItem merges patch into one item. Ordering is changed through Move
// only, so a patch with an order index is rejected.
func (s *ScheduleService) UpdateItem(ctx context.Context, userID, tripID, itemID uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error) {
	if _, err := s.trips.Get(ctx, userID, tripID); err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("service.ScheduleService.UpdateItem: %w", err)
	}
	if err := validatePatch(patch); err != nil {
		return domain.ScheduleItem{}, err
	}
	if patch.Empty() {
		item, err := s.items.GetByID(ctx, tripID, itemID)
		if err != nil {
			return domain.ScheduleItem{}, fmt.Errorf("service.ScheduleService.UpdateItem: %w", err)
		}
		return item, nil
	}

	item, err := s.items.Update(ctx, tripID, itemID, patch)
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("service.ScheduleService.UpdateItem: %w", err)
	}
	return item, nil
}

// DeleteItem removes an item and compacts the rest of its day, atomically.
func (s *ScheduleService) DeleteItem(ctx context.Context, userID, tripID, itemID uuid.UUID) error {
	if _, err := s.trips.Get(ctx, userID, tripID); err != nil {
		return fmt.Errorf("service.ScheduleService.DeleteItem: %w", err)
	}
	item, err := s.items.GetByID(ctx, tripID, itemID)
	if err != nil {
		return fmt.Errorf("service.ScheduleService.DeleteItem: %w", err)
	}
	day, err := s.items.ListByDay(ctx, tripID, item.VisitDate)
	if err != nil {
		return fmt.Errorf("service.ScheduleService.DeleteItem: %w", err)
	}
	_, writes, err := schedule.RemoveAndCompact(day, itemID)
	if err != nil {
		return fmt.Errorf("service.ScheduleService.DeleteItem: %w", err)
	}
	if err := s.items.DeleteAndApplyOrder(ctx, tripID, itemID, writes); err != nil {
		return fmt.Errorf("service.ScheduleService.DeleteItem: %w", err)
	}
	return nil
}

// Move repositions the item at from to position to within day and persists
// the changed order indexes in one transaction. Returns the day's new order.
// Returns *domain.InvalidIndexError if from is out of bounds.
func (s *ScheduleService) Move(ctx context.Context, userID, tripID uuid.UUID, day domain.DayKey, from, to int) ([]domain.ScheduleItem, error) {
	trip, err := s.trips.Get(ctx, userID, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ScheduleService.Move: %w", err)
	}
	if err := requireTripDay(trip, day); err != nil {
		return nil, err
	}

	items, err := s.items.ListByDay(ctx, tripID, day)
	if err != nil {
		return nil, fmt.Errorf("service.ScheduleService.Move: %w", err)
	}
	next, writes, err := schedule.Reorder(items, from, to)
	if err != nil {
		return nil, fmt.Errorf("service.ScheduleService.Move: %w", err)
	}
	if len(writes) == 0 {
		return next, nil
	}
	if err := s.items.ApplyOrder(ctx, tripID, writes); err != nil {
		return nil, fmt.Errorf("service.ScheduleService.Move: %w", err)
	}
	return next, nil
}

// validateItem enforces the rules for a new schedule item.
//   - PlaceName must be non-empty.
//   - VisitTime, if set, must be HH:MM or HH:MM:SS.
//   - Coordinates are both present or both absent, and in range.
func validateItem(item domain.ScheduleItem) error {
	if strings.TrimSpace(item.PlaceName) == "" {
		return fmt.Errorf("%w: place_name is required", domain.ErrValidation)
	}
	if item.VisitTime != "" && !visitTimePattern.MatchString(item.VisitTime) {
		return fmt.Errorf("%w: visit_time must be HH:MM or HH:MM:SS", domain.ErrValidation)
	}
	if (item.Latitude == nil) != (item.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", domain.ErrValidation)
	}
	if item.Latitude != nil && (*item.Latitude < -90 || *item.Latitude > 90) {
		return fmt.Errorf("%w: latitude out of range", domain.ErrValidation)
	}
	if item.Longitude != nil && (*item.Longitude < -180 || *item.Longitude > 180) {
		return fmt.Errorf("%w: longitude out of range", domain.ErrValidation)
	}
	return nil
}

func validatePatch(p domain.ItemPatch) error {
	if p.OrderIndex != nil {
		return fmt.Errorf("%w: order_index changes go through move", domain.ErrValidation)
	}
	if p.PlaceName != nil && strings.TrimSpace(*p.PlaceName) == "" {
		return fmt.Errorf("%w: place_name must not be empty", domain.ErrValidation)
	}
	if p.VisitTime != nil && *p.VisitTime != "" && !visitTimePattern.MatchString(*p.VisitTime) {
		return fmt.Errorf("%w: visit_time must be HH:MM or HH:MM:SS", domain.ErrValidation)
	}
	return nil
}

func requireTripDay(trip domain.Trip, day domain.DayKey) error {
	days, err := schedule.TripDays(trip)
	if err != nil {
		return err
	}
	if !slices.Contains(days, day) {
		return fmt.Errorf("%w: %s is outside the trip (%w)", domain.ErrValidation, day, domain.ErrUnknownDay)
	}
	return nil
}
