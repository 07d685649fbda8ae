// Package domain contains the core data types for the duotrip backend.
// This package depends only on uuid and is imported by every other internal
// package (repo, service, schedule, tripview, handler).
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trip is a dated journey owned by one couple. StartDate and EndDate form an
// inclusive range of calendar days; both are stored as midnight UTC.
type Trip struct {
	ID          uuid.UUID `json:"id"`
	CoupleID    uuid.UUID `json:"couple_id"`
	Title       string    `json:"title"`
	Destination string    `json:"destination,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TripStatus describes where today falls relative to a trip's date range.
type TripStatus string

const (
	TripUpcoming TripStatus = "upcoming"
	TripOngoing  TripStatus = "ongoing"
	TripPast     TripStatus = "past"
)

// Status reports whether the trip is upcoming, ongoing, or past on the
// calendar day containing now.
func (t Trip) Status(now time.Time) TripStatus {
	today := DayKeyOf(now)
	switch {
	case today < DayKeyOf(t.StartDate):
		return TripUpcoming
	case today > DayKeyOf(t.EndDate):
		return TripPast
	default:
		return TripOngoing
	}
}

// DDay returns the countdown label for the trip start: "D-3" three days
// before, "D-Day" on the day, "D+2" two days after.
func (t Trip) DDay(now time.Time) string {
	today := DayKeyOf(now).Time()
	diff := int(DayKeyOf(t.StartDate).Time().Sub(today).Hours() / 24)
	switch {
	case diff == 0:
		return "D-Day"
	case diff < 0:
		return fmt.Sprintf("D+%d", -diff)
	default:
		return fmt.Sprintf("D-%d", diff)
	}
}

// DurationDays is the number of calendar days the trip covers, counting both
// the start and end day. It returns 0 for an inverted range.
func (t Trip) DurationDays() int {
	d := int(DayKeyOf(t.EndDate).Time().Sub(DayKeyOf(t.StartDate).Time()).Hours()/24) + 1
	if d < 0 {
		return 0
	}
	return d
}
