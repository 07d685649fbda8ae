package schedule

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// Normalize returns a copy of day sorted by order_index, ties broken by id.
// The input slice is never modified.
func Normalize(day []domain.ScheduleItem) []domain.ScheduleItem {
	out := slices.Clone(day)
	sortItems(out)
	return out
}

// Reorder moves the item at from to position to and renumbers the day 0..n-1.
// to is clamped to [0, len-1]. writes lists only items whose order_index
// changed. Moving an item onto its own position returns the normalized day and
// no writes. Returns *domain.InvalidIndexError if from is out of bounds.
func Reorder(day []domain.ScheduleItem, from, to int) ([]domain.ScheduleItem, []domain.OrderWrite, error) {
	items := Normalize(day)
	if from < 0 || from >= len(items) {
		return nil, nil, &domain.InvalidIndexError{Index: from, Len: len(items)}
	}
	to = max(0, min(to, len(items)-1))
	if from == to {
		return items, nil, nil
	}

	moved := items[from]
	items = slices.Delete(items, from, from+1)
	items = slices.Insert(items, to, moved)
	writes := renumber(items)
	return items, writes, nil
}

// AppendInsert places item at the end of day. Its order index is one past the
// current maximum, or 0 for an empty day; gaps left by earlier deletions are
// not reused.
func AppendInsert(day []domain.ScheduleItem, item domain.ScheduleItem) ([]domain.ScheduleItem, int) {
	items := Normalize(day)
	idx := 0
	if len(items) > 0 {
		idx = items[len(items)-1].OrderIndex + 1
	}
	item.OrderIndex = idx
	return append(items, item), idx
}

// RemoveAndCompact drops the item with id from day and renumbers the rest
// 0..n-1 in their existing relative order. writes covers every item whose
// order index changed. Returns a wrapped domain.ErrNotFound if id is absent.
func RemoveAndCompact(day []domain.ScheduleItem, id uuid.UUID) ([]domain.ScheduleItem, []domain.OrderWrite, error) {
	items := Normalize(day)
	i := slices.IndexFunc(items, func(it domain.ScheduleItem) bool { return it.ID == id })
	if i < 0 {
		return nil, nil, fmt.Errorf("schedule.RemoveAndCompact: item %s: %w", id, domain.ErrNotFound)
	}
	items = slices.Delete(items, i, i+1)
	writes := renumber(items)
	return items, writes, nil
}

// Compact renumbers day 0..n-1 in its current order and returns the writes
// needed to persist that numbering.
func Compact(day []domain.ScheduleItem) ([]domain.ScheduleItem, []domain.OrderWrite) {
	items := Normalize(day)
	return items, renumber(items)
}

// renumber assigns sequential order indexes in place and reports the changes.
func renumber(items []domain.ScheduleItem) []domain.OrderWrite {
	var writes []domain.OrderWrite
	for i := range items {
		if items[i].OrderIndex != i {
			items[i].OrderIndex = i
			writes = append(writes, domain.OrderWrite{ID: items[i].ID, OrderIndex: i})
		}
	}
	return writes
}

func sortItems(items []domain.ScheduleItem) {
	slices.SortStableFunc(items, func(a, b domain.ScheduleItem) int {
		if c := cmp.Compare(a.OrderIndex, b.OrderIndex); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
}
