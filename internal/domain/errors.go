package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing place name, end date before start date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrForbidden is returned when the acting user is not a member of the couple
// that owns the requested trip. Handlers map it to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write would break a uniqueness rule, such as
// joining a couple that already has two members. Handlers map it to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrUnknownDay is returned by the trip view when a day key is not part of the
// open trip's date range.
var ErrUnknownDay = errors.New("day is outside the trip date range")

// ErrStaleDay is returned by the trip view for edits on a day whose local
// state could not be recovered after a failed write. Refresh clears it.
var ErrStaleDay = errors.New("day state is stale")

// InvalidRangeError reports a trip date range whose end precedes its start.
// It matches ErrValidation with errors.Is so services and handlers can treat
// it as any other validation failure.
type InvalidRangeError struct {
	Start DayKey
	End   DayKey
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: end %s is before start %s", e.End, e.Start)
}

// Is reports whether target is ErrValidation.
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidIndexError reports a position outside a day's current bounds.
type InvalidIndexError struct {
	Index int
	Len   int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

// Is reports whether target is ErrValidation.
func (e *InvalidIndexError) Is(target error) bool {
	return target == ErrValidation
}

// Op names the intent of a persistence call.
type Op string

const (
	OpAdd    Op = "add"
	OpMove   Op = "move"
	OpDelete Op = "delete"
	OpEdit   Op = "edit"
)

// PersistenceError wraps a failed store call together with what the caller
// was trying to do, so a rollback can target exactly the affected items.
type PersistenceError struct {
	Op      Op
	Day     DayKey
	ItemIDs []uuid.UUID
	Fields  []string
	Err     error
}

func (e *PersistenceError) Error() string {
	ids := make([]string, len(e.ItemIDs))
	for i, id := range e.ItemIDs {
		ids[i] = id.String()
	}
	msg := fmt.Sprintf("persist %s on %s [%s]", e.Op, e.Day, strings.Join(ids, ","))
	if len(e.Fields) > 0 {
		msg += " fields=" + strings.Join(e.Fields, ",")
	}
	return msg + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StaleStateError reports a remote change that refers to an item the local
// view no longer holds. It is resolved by re-fetching the day.
type StaleStateError struct {
	Day    DayKey
	ItemID uuid.UUID
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("stale state on %s: item %s not present", e.Day, e.ItemID)
}
