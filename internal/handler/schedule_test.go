package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/handler"
)

var tripID = uuid.MustParse("5d2c7a10-9e44-4b1a-9f3e-a0b1c2d3e4f5")

func itemFixture(name string, index int) domain.ScheduleItem {
	return domain.ScheduleItem{
		ID:         uuid.New(),
		TripID:     tripID,
		PlaceName:  name,
		VisitDate:  "2025-06-01",
		OrderIndex: index,
		CreatedBy:  caller,
		CreatedAt:  time.Now().UTC(),
	}
}

func tripPath(rest string) string {
	return "/trips/" + tripID.String() + rest
}

// ---- GET /places -------------------------------------------------------------

func TestListPlaces_200_AllTrips(t *testing.T) {
	lat, lon := 33.45, 126.56
	beach := itemFixture("Beach", 0)
	beach.Latitude, beach.Longitude = &lat, &lon
	svc := &mockScheduleServicer{
		places: func(_ context.Context, userID uuid.UUID, id *uuid.UUID) ([]domain.PlacedItem, error) {
			assert.Equal(t, caller, userID)
			assert.Nil(t, id)
			return []domain.PlacedItem{{ScheduleItem: beach, TripTitle: "Jeju"}}, nil
		},
	}

	rec := serve(newHTTPHandler(deps{schedule: svc}), newRequest(t, http.MethodGet, "/places", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Beach", resp.Data[0]["place_name"])
	assert.Equal(t, "Jeju", resp.Data[0]["trip_title"])
	assert.Equal(t, tripID.String(), resp.Data[0]["trip_id"])
	assert.InDelta(t, 33.45, resp.Data[0]["latitude"], 1e-9)
}

func TestListPlaces_200_OneTrip(t *testing.T) {
	svc := &mockScheduleServicer{
		places: func(_ context.Context, _ uuid.UUID, id *uuid.UUID) ([]domain.PlacedItem, error) {
			require.NotNil(t, id)
			assert.Equal(t, tripID, *id)
			return []domain.PlacedItem{}, nil
		},
	}

	rec := serve(newHTTPHandler(deps{schedule: svc}), newRequest(t, http.MethodGet, "/places?trip_id="+tripID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestListPlaces_422_BadTripID(t *testing.T) {
	// places left nil: the request must be rejected before the service.
	rec := serve(newHTTPHandler(deps{}), newRequest(t, http.MethodGet, "/places?trip_id=not-a-uuid", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListPlaces_403_NotMember(t *testing.T) {
	svc := &mockScheduleServicer{
		places: func(_ context.Context, _ uuid.UUID, _ *uuid.UUID) ([]domain.PlacedItem, error) {
			return nil, fmt.Errorf("service.ScheduleService.Places: %w", domain.ErrForbidden)
		},
	}

	rec := serve(newHTTPHandler(deps{schedule: svc}), newRequest(t, http.MethodGet, "/places?trip_id="+tripID.String(), nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ---- GET /trips/{tripId}/items ---------------------------------------------

func TestListItems_200(t *testing.T) {
	items := []domain.ScheduleItem{itemFixture("Market", 0), itemFixture("Beach", 1)}
	svc := &mockScheduleServicer{
		listItems: func(_ context.Context, userID, id uuid.UUID) ([]domain.ScheduleItem, error) {
			assert.Equal(t, caller, userID)
			assert.Equal(t, tripID, id)
			return items, nil
		},
	}

	rec := serve(newHTTPHandler(deps{schedule: svc}), newRequest(t, http.MethodGet, tripPath("/items"), nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.ItemList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Beach", resp.Data[1].PlaceName)
}

func TestListItems_403_NotMember(t *testing.T) {
	svc := &mockScheduleServicer{
		listItems: func(_ context.Context, _, _ uuid.UUID) ([]domain.ScheduleItem, error) {
			return nil, fmt.Errorf("service.ScheduleService.ListItems: %w", domain.ErrForbidden)
		},
	}

	rec := serve(newHTTPHandler(deps{schedule: svc}), newRequest(t, http.MethodGet, tripPath("/items"), nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Code)
}

// ---- GET /trips/{tripId}/days ----------------------------------------------

func TestListDays_200(t *testing.T) {
	svc := &mockScheduleServicer{
		days: func(_ context.Context, _, _ uuid.UUID) ([]domain.DaySchedule, error) {
			return []domain.DaySchedule{
				{Day: "2025-06-01", Items: []domain.ScheduleItem{itemFixture("Market", 0)}},
				{Day: "2025-06-02", Items: []domain.ScheduleItem{}},
			}, nil
		},
	}

	rec := serve(newHTTPHandler(deps{schedule: svc}), newRequest(t, http.MethodGet, tripPath("/days"), nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.DayList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, domain.DayKey("2025-06-02"), resp.Data[1].Day)
	assert.Empty(t, resp.Data[1].Items)
}

// ---- POST /trips/{tripId}/items --------------------------------------------

func TestCreateItem_201(t *testing.T) {
	var got domain.ScheduleItem
	svc := &mockScheduleServicer{
		addItem: func(_ context.Context, _ uuid.UUID, item domain.ScheduleItem) (domain.ScheduleItem, error) {
			got = item
			item.ID = uuid.New()
			item.OrderIndex = 3
			return item, nil
		},
	}

	req := newRequest(t, http.MethodPost, tripPath("/items"), map[string]any{
		"place_name": "Seongsan Ilchulbong",
		"latitude":   33.458,
		"longitude":  126.942,
		"visit_date": "2025-06-02",
		"visit_time": "05:30",
	})

	rec := serve(newHTTPHandler(deps{schedule: svc}), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, tripID, got.TripID)
	assert.Equal(t, domain.DayKey("2025-06-02"), got.VisitDate)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 33.458, *got.Latitude, 1e-9)

	var resp domain.ScheduleItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.OrderIndex)
}

func TestCreateItem_422_BadVisitDate(t *testing.T) {
	req := newRequest(t, http.MethodPost, tripPath("/items"), map[string]any{
		"place_name": "Market",
		"visit_date": "tomorrow",
	})

	rec := serve(newHTTPHandler(deps{}), req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "visit_date must be YYYY-MM-DD", decodeError(t, rec).Message)
}

func TestCreateItem_422_DayOutsideTrip(t *testing.T) {
	svc := &mockScheduleServicer{
		addItem: func(_ context.Context, _ uuid.UUID, _ domain.ScheduleItem) (domain.ScheduleItem, error) {
			return domain.ScheduleItem{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrUnknownDay)
		},
	}

	req := newRequest(t, http.MethodPost, tripPath("/items"), map[string]any{
		"place_name": "Market",
		"visit_date": "2030-01-01",
	})

	rec := serve(newHTTPHandler(deps{schedule: svc}), req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, domain.ErrUnknownDay.Error(), decodeError(t, rec).Message)
}

func TestCreateItem_413_BodyTooLarge(t *testing.T) {
	req := newRequest(t, http.MethodPost, tripPath("/items"), map[string]any{
		"place_name": strings.Repeat("x", 256),
		"visit_date": "2025-06-01",
	})
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 32)

	newHTTPHandler(deps{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// ---- PATCH /trips/{tripId}/items/{itemId} ----------------------------------

func TestUpdateItem_200(t *testing.T) {
	item := itemFixture("Market", 0)
	var gotPatch domain.ItemPatch
	svc := &mockScheduleServicer{
		updateItem: func(_ context.Context, _, _, id uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error) {
			assert.Equal(t, item.ID, id)
			gotPatch = patch
			return patch.Apply(item), nil
		},
	}

	req := newRequest(t, http.MethodPatch, tripPath("/items/"+item.ID.String()), map[string]any{"memo": "bring cash"})
	rec := serve(newHTTPHandler(deps{schedule: svc}), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, gotPatch.PlaceName)
	require.NotNil(t, gotPatch.Memo)
	assert.Equal(t, "bring cash", *gotPatch.Memo)

	var resp domain.ScheduleItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "bring cash", resp.Memo)
}

func TestUpdateItem_422_OrderIndexNotAccepted(t *testing.T) {
	req := newRequest(t, http.MethodPatch, tripPath("/items/"+uuid.New().String()), map[string]any{"order_index": 2})

	rec := serve(newHTTPHandler(deps{}), req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateItem_404(t *testing.T) {
	svc := &mockScheduleServicer{
		updateItem: func(_ context.Context, _, _, _ uuid.UUID, _ domain.ItemPatch) (domain.ScheduleItem, error) {
			return domain.ScheduleItem{}, domain.ErrNotFound
		},
	}

	req := newRequest(t, http.MethodPatch, tripPath("/items/"+uuid.New().String()), map[string]any{"memo": "x"})
	rec := serve(newHTTPHandler(deps{schedule: svc}), req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "schedule item not found", decodeError(t, rec).Message)
}

// ---- DELETE /trips/{tripId}/items/{itemId} ---------------------------------

func TestDeleteItem_204(t *testing.T) {
	id := uuid.New()
	svc := &mockScheduleServicer{
		deleteItem: func(_ context.Context, _, trip, item uuid.UUID) error {
			assert.Equal(t, tripID, trip)
			assert.Equal(t, id, item)
			return nil
		},
	}

	rec := serve(newHTTPHandler(deps{schedule: svc}), newRequest(t, http.MethodDelete, tripPath("/items/"+id.String()), nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// ---- POST /trips/{tripId}/days/{day}/move ----------------------------------

func TestMoveItem_200(t *testing.T) {
	var gotDay domain.DayKey
	var gotFrom, gotTo int
	svc := &mockScheduleServicer{
		move: func(_ context.Context, _, _ uuid.UUID, day domain.DayKey, from, to int) ([]domain.ScheduleItem, error) {
			gotDay, gotFrom, gotTo = day, from, to
			return []domain.ScheduleItem{itemFixture("B", 0), itemFixture("A", 1)}, nil
		},
	}

	req := newRequest(t, http.MethodPost, tripPath("/days/2025-06-01/move"), map[string]any{"from": 0, "to": 1})
	rec := serve(newHTTPHandler(deps{schedule: svc}), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DayKey("2025-06-01"), gotDay)
	assert.Equal(t, 0, gotFrom)
	assert.Equal(t, 1, gotTo)

	var resp handler.ItemList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "B", resp.Data[0].PlaceName)
}

func TestMoveItem_422_MissingTo(t *testing.T) {
	req := newRequest(t, http.MethodPost, tripPath("/days/2025-06-01/move"), map[string]any{"from": 0})

	rec := serve(newHTTPHandler(deps{}), req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "from and to are required", decodeError(t, rec).Message)
}

func TestMoveItem_422_BadDay(t *testing.T) {
	req := newRequest(t, http.MethodPost, tripPath("/days/2025-13-01/move"), map[string]any{"from": 0, "to": 1})

	rec := serve(newHTTPHandler(deps{}), req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMoveItem_422_IndexOutOfRange(t *testing.T) {
	svc := &mockScheduleServicer{
		move: func(_ context.Context, _, _ uuid.UUID, _ domain.DayKey, from, _ int) ([]domain.ScheduleItem, error) {
			return nil, fmt.Errorf("service.ScheduleService.Move: %w", &domain.InvalidIndexError{Index: from, Len: 2})
		},
	}

	req := newRequest(t, http.MethodPost, tripPath("/days/2025-06-01/move"), map[string]any{"from": 5, "to": 0})
	rec := serve(newHTTPHandler(deps{schedule: svc}), req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "index 5 out of range [0, 2)", decodeError(t, rec).Message)
}

func TestMoveItem_500(t *testing.T) {
	svc := &mockScheduleServicer{
		move: func(_ context.Context, _, _ uuid.UUID, _ domain.DayKey, _, _ int) ([]domain.ScheduleItem, error) {
			return nil, errors.New("tx aborted")
		},
	}

	req := newRequest(t, http.MethodPost, tripPath("/days/2025-06-01/move"), map[string]any{"from": 0, "to": 1})
	rec := serve(newHTTPHandler(deps{schedule: svc}), req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Code)
}
