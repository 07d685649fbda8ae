package domain

import (
	"time"

	"github.com/google/uuid"
)

// DayKeyLayout is the calendar date format used for day keys and visit dates.
const DayKeyLayout = "2006-01-02"

// DayKey identifies one calendar day of a trip, formatted as DayKeyLayout.
// Keys in the same layout compare correctly as strings.
type DayKey string

// DayKeyOf returns the day key for the calendar date of t in t's location.
func DayKeyOf(t time.Time) DayKey {
	return DayKey(t.Format(DayKeyLayout))
}

// ParseDayKey parses s as a DayKeyLayout date.
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.Parse(DayKeyLayout, s)
	if err != nil {
		return "", err
	}
	return DayKeyOf(t), nil
}

// Time returns midnight UTC of the day. An unparsable key yields the zero time.
func (d DayKey) Time() time.Time {
	t, _ := time.Parse(DayKeyLayout, string(d))
	return t
}

func (d DayKey) String() string { return string(d) }

// ScheduleItem is one visit to a place on one day of one trip.
// OrderIndex positions the item within (TripID, VisitDate); for a settled day
// the indexes are exactly 0..n-1.
type ScheduleItem struct {
	ID           uuid.UUID `json:"id"`
	TripID       uuid.UUID `json:"trip_id"`
	PlaceName    string    `json:"place_name"`
	PlaceAddress string    `json:"place_address,omitempty"`
	PlacePhone   string    `json:"place_phone,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	VisitDate    DayKey    `json:"visit_date"`
	VisitTime    string    `json:"visit_time,omitempty"` // HH:MM[:SS], empty when unset
	Memo         string    `json:"memo,omitempty"`
	OrderIndex   int       `json:"order_index"`
	CreatedBy    uuid.UUID `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Placed reports whether the item has both coordinates.
func (s ScheduleItem) Placed() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// ItemPatch is a partial update of a schedule item. Nil fields are left
// untouched by the store.
type ItemPatch struct {
	PlaceName  *string
	VisitTime  *string
	Memo       *string
	OrderIndex *int
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.PlaceName == nil && p.VisitTime == nil && p.Memo == nil && p.OrderIndex == nil
}

// Apply returns item with the patch merged in.
func (p ItemPatch) Apply(item ScheduleItem) ScheduleItem {
	if p.PlaceName != nil {
		item.PlaceName = *p.PlaceName
	}
	if p.VisitTime != nil {
		item.VisitTime = *p.VisitTime
	}
	if p.Memo != nil {
		item.Memo = *p.Memo
	}
	if p.OrderIndex != nil {
		item.OrderIndex = *p.OrderIndex
	}
	return item
}

// Fields lists the column names the patch touches, in a fixed order.
func (p ItemPatch) Fields() []string {
	var f []string
	if p.PlaceName != nil {
		f = append(f, "place_name")
	}
	if p.VisitTime != nil {
		f = append(f, "visit_time")
	}
	if p.Memo != nil {
		f = append(f, "memo")
	}
	if p.OrderIndex != nil {
		f = append(f, "order_index")
	}
	return f
}

// OrderWrite is a single persisted order_index change produced by the
// ordering engine.
type OrderWrite struct {
	ID         uuid.UUID
	OrderIndex int
}

// PlaceCandidate is the normalized result of a place search, consumed when
// adding a place to a day.
type PlaceCandidate struct {
	PlaceName string   `json:"place_name"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// PlacedItem is a schedule item with coordinates, tagged with its trip's
// title for the couple-wide map.
type PlacedItem struct {
	ScheduleItem
	TripTitle string `json:"trip_title"`
}

// DaySchedule is one day of a trip's timeline.
type DaySchedule struct {
	Day   DayKey         `json:"day"`
	Items []ScheduleItem `json:"items"`
}
