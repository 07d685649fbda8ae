package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/tripview"
)

// dayView is the part of *tripview.View the printers read.
type dayView interface {
	Days() []domain.DayKey
	Day(day domain.DayKey) []domain.ScheduleItem
	IsStale(day domain.DayKey) bool
	Status() tripview.SyncStatus
}

func printSchedule(w io.Writer, v dayView) {
	fmt.Fprintf(w, "status: %s\n", v.Status())
	for _, day := range v.Days() {
		label := string(day)
		if v.IsStale(day) {
			label += " (stale)"
		}
		printDay(w, label, v.Day(day))
	}
}

func printDay(w io.Writer, label string, items []domain.ScheduleItem) {
	fmt.Fprintln(w, label)
	if len(items) == 0 {
		fmt.Fprintln(w, "  (nothing planned)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", it.OrderIndex, orDash(it.VisitTime), it.PlaceName, it.ID)
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
