package domain

import "github.com/google/uuid"

// ChangeEvent is a real-time notification about one schedule item of a trip.
// It is a closed set: ItemInserted, ItemUpdated, ItemDeleted.
type ChangeEvent interface {
	// Trip returns the owning trip of the changed item.
	Trip() uuid.UUID
	changeEvent()
}

// ItemInserted reports a newly created schedule item.
type ItemInserted struct{ Item ScheduleItem }

// ItemUpdated reports the full row of a schedule item after an update.
type ItemUpdated struct{ Item ScheduleItem }

// ItemDeleted reports a removed schedule item. Only the identity survives.
type ItemDeleted struct {
	TripID uuid.UUID
	ID     uuid.UUID
}

func (e ItemInserted) Trip() uuid.UUID { return e.Item.TripID }
func (e ItemUpdated) Trip() uuid.UUID  { return e.Item.TripID }
func (e ItemDeleted) Trip() uuid.UUID  { return e.TripID }

func (ItemInserted) changeEvent() {}
func (ItemUpdated) changeEvent()  {}
func (ItemDeleted) changeEvent()  {}
