package service_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/repo"
	"github.com/pkordes/duotrip/backend/internal/service"
)

// mockTripRepo is a hand-written test double for repo.TripRepo.
// Each method is a function field; set only the ones your test needs.
type mockTripRepo struct {
	create       func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID      func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	listByCouple func(ctx context.Context, coupleID uuid.UUID, p domain.PageRequest) ([]domain.Trip, int64, error)
	update       func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	delete       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) ListByCouple(ctx context.Context, coupleID uuid.UUID, p domain.PageRequest) ([]domain.Trip, int64, error) {
	return m.listByCouple(ctx, coupleID, p)
}
func (m *mockTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.update(ctx, trip)
}
func (m *mockTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

// compile-time check: mockTripRepo must satisfy repo.TripRepo.
var _ repo.TripRepo = (*mockTripRepo)(nil)

type mockCoupleRepo struct {
	create          func(ctx context.Context, user1ID uuid.UUID, inviteCode string) (domain.Couple, error)
	getByID         func(ctx context.Context, id uuid.UUID) (domain.Couple, error)
	getByUser       func(ctx context.Context, userID uuid.UUID) (domain.Couple, error)
	getByInviteCode func(ctx context.Context, code string) (domain.Couple, error)
	setPartner      func(ctx context.Context, id, user2ID uuid.UUID) (domain.Couple, error)
}

func (m *mockCoupleRepo) Create(ctx context.Context, user1ID uuid.UUID, inviteCode string) (domain.Couple, error) {
	return m.create(ctx, user1ID, inviteCode)
}
func (m *mockCoupleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Couple, error) {
	return m.getByID(ctx, id)
}
func (m *mockCoupleRepo) GetByUser(ctx context.Context, userID uuid.UUID) (domain.Couple, error) {
	return m.getByUser(ctx, userID)
}
func (m *mockCoupleRepo) GetByInviteCode(ctx context.Context, code string) (domain.Couple, error) {
	return m.getByInviteCode(ctx, code)
}
func (m *mockCoupleRepo) SetPartner(ctx context.Context, id, user2ID uuid.UUID) (domain.Couple, error) {
	return m.setPartner(ctx, id, user2ID)
}

var _ repo.CoupleRepo = (*mockCoupleRepo)(nil)

type mockItemRepo struct {
	create              func(ctx context.Context, item domain.ScheduleItem) (domain.ScheduleItem, error)
	getByID             func(ctx context.Context, tripID, id uuid.UUID) (domain.ScheduleItem, error)
	listByTrip          func(ctx context.Context, tripID uuid.UUID) ([]domain.ScheduleItem, error)
	listByDay           func(ctx context.Context, tripID uuid.UUID, day domain.DayKey) ([]domain.ScheduleItem, error)
	listPlacedByCouple  func(ctx context.Context, coupleID uuid.UUID, tripID *uuid.UUID) ([]domain.PlacedItem, error)
	update              func(ctx context.Context, tripID, id uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error)
	delete              func(ctx context.Context, tripID, id uuid.UUID) error
	applyOrder          func(ctx context.Context, tripID uuid.UUID, writes []domain.OrderWrite) error
	deleteAndApplyOrder func(ctx context.Context, tripID, id uuid.UUID, writes []domain.OrderWrite) error
}

func (m *mockItemRepo) Create(ctx context.Context, item domain.ScheduleItem) (domain.ScheduleItem, error) {
	return m.create(ctx, item)
}
func (m *mockItemRepo) GetByID(ctx context.Context, tripID, id uuid.UUID) (domain.ScheduleItem, error) {
	return m.getByID(ctx, tripID, id)
}
func (m *mockItemRepo) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.ScheduleItem, error) {
	return m.listByTrip(ctx, tripID)
}
func (m *mockItemRepo) ListByDay(ctx context.Context, tripID uuid.UUID, day domain.DayKey) ([]domain.ScheduleItem, error) {
	return m.listByDay(ctx, tripID, day)
}
func (m *mockItemRepo) ListPlacedByCouple(ctx context.Context, coupleID uuid.UUID, tripID *uuid.UUID) ([]domain.PlacedItem, error) {
	return m.listPlacedByCouple(ctx, coupleID, tripID)
}
func (m *mockItemRepo) Update(ctx context.Context, tripID, id uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error) {
	return m.update(ctx, tripID, id, patch)
}
func (m *mockItemRepo) Delete(ctx context.Context, tripID, id uuid.UUID) error {
	return m.delete(ctx, tripID, id)
}
func (m *mockItemRepo) ApplyOrder(ctx context.Context, tripID uuid.UUID, writes []domain.OrderWrite) error {
	return m.applyOrder(ctx, tripID, writes)
}
func (m *mockItemRepo) DeleteAndApplyOrder(ctx context.Context, tripID, id uuid.UUID, writes []domain.OrderWrite) error {
	return m.deleteAndApplyOrder(ctx, tripID, id, writes)
}

var _ repo.ScheduleItemRepo = (*mockItemRepo)(nil)

// stubAccess grants access to a fixed trip and couple, or fails with err.
// coupleErr fails CoupleOf alone.
type stubAccess struct {
	trip      domain.Trip
	couple    domain.Couple
	err       error
	coupleErr error
}

func (s stubAccess) Get(_ context.Context, _, _ uuid.UUID) (domain.Trip, error) {
	return s.trip, s.err
}

func (s stubAccess) CoupleOf(_ context.Context, _ uuid.UUID) (domain.Couple, error) {
	if s.coupleErr != nil {
		return domain.Couple{}, s.coupleErr
	}
	return s.couple, s.err
}

var _ service.TripAccess = stubAccess{}
