package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/handler"
	"github.com/pkordes/duotrip/backend/internal/middleware"
)

// ---- mocks -----------------------------------------------------------------

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	create func(ctx context.Context, userID uuid.UUID, trip domain.Trip) (domain.Trip, error)
	get    func(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error)
	list   func(ctx context.Context, userID uuid.UUID, p domain.PageRequest) ([]domain.Trip, int64, error)
	update func(ctx context.Context, userID uuid.UUID, trip domain.Trip) (domain.Trip, error)
	delete func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockTripServicer) Create(ctx context.Context, userID uuid.UUID, t domain.Trip) (domain.Trip, error) {
	return m.create(ctx, userID, t)
}
func (m *mockTripServicer) Get(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error) {
	return m.get(ctx, userID, id)
}
func (m *mockTripServicer) List(ctx context.Context, userID uuid.UUID, p domain.PageRequest) ([]domain.Trip, int64, error) {
	return m.list(ctx, userID, p)
}
func (m *mockTripServicer) Update(ctx context.Context, userID uuid.UUID, t domain.Trip) (domain.Trip, error) {
	return m.update(ctx, userID, t)
}
func (m *mockTripServicer) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.delete(ctx, userID, id)
}

// compile-time check: mockTripServicer must satisfy handler.TripServicer.
var _ handler.TripServicer = (*mockTripServicer)(nil)

type mockCoupleServicer struct {
	create func(ctx context.Context, userID uuid.UUID) (domain.Couple, error)
	join   func(ctx context.Context, userID uuid.UUID, code string) (domain.Couple, error)
	mine   func(ctx context.Context, userID uuid.UUID) (domain.Couple, error)
}

func (m *mockCoupleServicer) Create(ctx context.Context, userID uuid.UUID) (domain.Couple, error) {
	return m.create(ctx, userID)
}
func (m *mockCoupleServicer) Join(ctx context.Context, userID uuid.UUID, code string) (domain.Couple, error) {
	return m.join(ctx, userID, code)
}
func (m *mockCoupleServicer) Mine(ctx context.Context, userID uuid.UUID) (domain.Couple, error) {
	return m.mine(ctx, userID)
}

var _ handler.CoupleServicer = (*mockCoupleServicer)(nil)

type mockScheduleServicer struct {
	listItems  func(ctx context.Context, userID, tripID uuid.UUID) ([]domain.ScheduleItem, error)
	days       func(ctx context.Context, userID, tripID uuid.UUID) ([]domain.DaySchedule, error)
	addItem    func(ctx context.Context, userID uuid.UUID, item domain.ScheduleItem) (domain.ScheduleItem, error)
	updateItem func(ctx context.Context, userID, tripID, itemID uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error)
	deleteItem func(ctx context.Context, userID, tripID, itemID uuid.UUID) error
	move       func(ctx context.Context, userID, tripID uuid.UUID, day domain.DayKey, from, to int) ([]domain.ScheduleItem, error)
	places     func(ctx context.Context, userID uuid.UUID, tripID *uuid.UUID) ([]domain.PlacedItem, error)
}

func (m *mockScheduleServicer) ListItems(ctx context.Context, userID, tripID uuid.UUID) ([]domain.ScheduleItem, error) {
	return m.listItems(ctx, userID, tripID)
}
func (m *mockScheduleServicer) Days(ctx context.Context, userID, tripID uuid.UUID) ([]domain.DaySchedule, error) {
	return m.days(ctx, userID, tripID)
}
func (m *mockScheduleServicer) AddItem(ctx context.Context, userID uuid.UUID, item domain.ScheduleItem) (domain.ScheduleItem, error) {
	return m.addItem(ctx, userID, item)
}
func (m *mockScheduleServicer) UpdateItem(ctx context.Context, userID, tripID, itemID uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error) {
	return m.updateItem(ctx, userID, tripID, itemID, patch)
}
func (m *mockScheduleServicer) DeleteItem(ctx context.Context, userID, tripID, itemID uuid.UUID) error {
	return m.deleteItem(ctx, userID, tripID, itemID)
}
func (m *mockScheduleServicer) Move(ctx context.Context, userID, tripID uuid.UUID, day domain.DayKey, from, to int) ([]domain.ScheduleItem, error) {
	return m.move(ctx, userID, tripID, day, from, to)
}

func (m *mockScheduleServicer) Places(ctx context.Context, userID uuid.UUID, tripID *uuid.UUID) ([]domain.PlacedItem, error) {
	return m.places(ctx, userID, tripID)
}

var _ handler.ScheduleServicer = (*mockScheduleServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// caller is the user every authenticated test request is sent as.
var caller = uuid.MustParse("0b9f8a4e-3c1d-4e5f-8a9b-112233445566")

// deps collects the services a test wires into the server. Nil fields are
// replaced by empty mocks that panic if called.
type deps struct {
	couples  handler.CoupleServicer
	trips    handler.TripServicer
	schedule handler.ScheduleServicer
	events   handler.EventSource
}

// newHTTPHandler wires a Server with the given mocks into its router.
// This mirrors how main.go wires it in production.
func newHTTPHandler(d deps) http.Handler {
	if d.couples == nil {
		d.couples = &mockCoupleServicer{}
	}
	if d.trips == nil {
		d.trips = &mockTripServicer{}
	}
	if d.schedule == nil {
		d.schedule = &mockScheduleServicer{}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handler.NewServer(d.couples, d.trips, d.schedule, d.events, log).Routes()
}

// newRequest builds a request authenticated as caller.
func newRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserIDHeader, caller.String())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	if s, ok := v.(string); ok {
		return bytes.NewBufferString(s)
	}
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}
