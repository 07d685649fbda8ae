// Package schedule holds the pure planning logic for a trip's timeline:
// splitting a trip into day keys, grouping items by day, and computing
// order_index changes for inserts, moves and deletions.
// Nothing here performs I/O; callers persist the returned writes.
package schedule

import (
	"fmt"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// DaysBetween enumerates every calendar day from start to end inclusive.
// Returns *domain.InvalidRangeError if end is before start, and a wrapped
// domain.ErrValidation if either key is not a valid date.
func DaysBetween(start, end domain.DayKey) ([]domain.DayKey, error) {
	s, err := domain.ParseDayKey(string(start))
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q: %v", domain.ErrValidation, start, err)
	}
	e, err := domain.ParseDayKey(string(end))
	if err != nil {
		return nil, fmt.Errorf("%w: end date %q: %v", domain.ErrValidation, end, err)
	}
	if e < s {
		return nil, &domain.InvalidRangeError{Start: s, End: e}
	}

	last := e.Time()
	var days []domain.DayKey
	for cur := s.Time(); !cur.After(last); cur = cur.AddDate(0, 0, 1) {
		days = append(days, domain.DayKeyOf(cur))
	}
	return days, nil
}

// TripDays returns the day keys covered by trip.
func TripDays(trip domain.Trip) ([]domain.DayKey, error) {
	return DaysBetween(domain.DayKeyOf(trip.StartDate), domain.DayKeyOf(trip.EndDate))
}

// GroupByDay buckets items by visit date. Every key in days gets an entry,
// possibly empty, and each bucket is ordered by ascending order_index with
// ties broken by id. Items whose visit date is not in days are left out and
// counted in dropped so callers can log the anomaly.
func GroupByDay(items []domain.ScheduleItem, days []domain.DayKey) (groups map[domain.DayKey][]domain.ScheduleItem, dropped int) {
	groups = make(map[domain.DayKey][]domain.ScheduleItem, len(days))
	for _, d := range days {
		groups[d] = []domain.ScheduleItem{}
	}
	for _, it := range items {
		g, ok := groups[it.VisitDate]
		if !ok {
			dropped++
			continue
		}
		groups[it.VisitDate] = append(g, it)
	}
	for d, g := range groups {
		sortItems(g)
		groups[d] = g
	}
	return groups, dropped
}

// Flatten concatenates groups in the order of days.
func Flatten(groups map[domain.DayKey][]domain.ScheduleItem, days []domain.DayKey) []domain.ScheduleItem {
	var out []domain.ScheduleItem
	for _, d := range days {
		out = append(out, groups[d]...)
	}
	return out
}
