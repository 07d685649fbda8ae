// Package changefeed turns Postgres NOTIFY messages about schedule_items into
// typed domain.ChangeEvent values and fans them out to per-trip subscribers.
//
// The trigger installed by migration 00003 publishes one JSON payload per
// row change on Channel. Rows too large for a NOTIFY payload are announced
// by id only. A Listener holds a dedicated connection that LISTENs on the
// channel, reads omitted rows back and hands events to a Hub.
package changefeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// Channel is the NOTIFY channel the schedule_items trigger publishes on.
const Channel = "schedule_items"

// Trigger operation names.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Notification is one decoded NOTIFY payload. Item is nil for deletes and
// for inserts or updates whose row was left out of the payload.
type Notification struct {
	Op     string
	TripID uuid.UUID
	ID     uuid.UUID
	Item   *domain.ScheduleItem
}

// Event returns the change event the notification describes. It reports
// false when the row is needed but was not included.
func (n Notification) Event() (domain.ChangeEvent, bool) {
	switch {
	case n.Op == OpDelete:
		return domain.ItemDeleted{TripID: n.TripID, ID: n.ID}, true
	case n.Item == nil:
		return nil, false
	case n.Op == OpInsert:
		return domain.ItemInserted{Item: *n.Item}, true
	default:
		return domain.ItemUpdated{Item: *n.Item}, true
	}
}

type payload struct {
	Op     string          `json:"op"`
	TripID uuid.UUID       `json:"trip_id"`
	ID     uuid.UUID       `json:"id"`
	Row    json.RawMessage `json:"row"`
}

// itemRow mirrors row_to_json(schedule_items).
type itemRow struct {
	ID           uuid.UUID `json:"id"`
	TripID       uuid.UUID `json:"trip_id"`
	PlaceName    string    `json:"place_name"`
	PlaceAddress string    `json:"place_address"`
	PlacePhone   string    `json:"place_phone"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	VisitDate    string    `json:"visit_date"`
	VisitTime    *string   `json:"visit_time"`
	Memo         string    `json:"memo"`
	OrderIndex   int       `json:"order_index"`
	CreatedBy    uuid.UUID `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Decode parses one NOTIFY payload.
func Decode(raw []byte) (Notification, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Notification{}, fmt.Errorf("changefeed.Decode: %w", err)
	}
	if p.TripID == uuid.Nil || p.ID == uuid.Nil {
		return Notification{}, fmt.Errorf("changefeed.Decode: %s without trip_id or id", p.Op)
	}

	n := Notification{Op: p.Op, TripID: p.TripID, ID: p.ID}
	switch p.Op {
	case OpDelete:
		return n, nil
	case OpInsert, OpUpdate:
		if len(p.Row) == 0 {
			return n, nil
		}
		item, err := decodeRow(p.Row)
		if err != nil {
			return Notification{}, fmt.Errorf("changefeed.Decode: %s row: %w", p.Op, err)
		}
		n.Item = &item
		return n, nil
	default:
		return Notification{}, fmt.Errorf("changefeed.Decode: unknown op %q", p.Op)
	}
}

func decodeRow(raw json.RawMessage) (domain.ScheduleItem, error) {
	var r itemRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.ScheduleItem{}, err
	}
	day, err := domain.ParseDayKey(r.VisitDate)
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("visit_date: %w", err)
	}

	item := domain.ScheduleItem{
		ID:           r.ID,
		TripID:       r.TripID,
		PlaceName:    r.PlaceName,
		PlaceAddress: r.PlaceAddress,
		PlacePhone:   r.PlacePhone,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		VisitDate:    day,
		Memo:         r.Memo,
		OrderIndex:   r.OrderIndex,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
	}
	if r.VisitTime != nil {
		item.VisitTime = *r.VisitTime
	}
	return item, nil
}
