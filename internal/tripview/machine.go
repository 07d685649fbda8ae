package tripview

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Phase is the mutation state of one day.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseConfirmed Phase = "confirmed"
	PhaseFailed    Phase = "failed"
)

const (
	eventBegin   = "begin"
	eventConfirm = "confirm"
	eventFail    = "fail"
	eventSettle  = "settle"
)

// newDayMachine builds the per-day machine:
//
//	idle|failed --begin--> pending --confirm--> confirmed --settle--> idle
//	                       pending --fail-----> failed
//
// A day re-fetch is itself a pending write-free mutation, so recovering from
// failed goes through begin again.
func newDayMachine() *fsm.FSM {
	return fsm.NewFSM(string(PhaseIdle), fsm.Events{
		{Name: eventBegin, Src: []string{string(PhaseIdle), string(PhaseFailed)}, Dst: string(PhasePending)},
		{Name: eventConfirm, Src: []string{string(PhasePending)}, Dst: string(PhaseConfirmed)},
		{Name: eventFail, Src: []string{string(PhasePending)}, Dst: string(PhaseFailed)},
		{Name: eventSettle, Src: []string{string(PhaseConfirmed)}, Dst: string(PhaseIdle)},
	}, fsm.Callbacks{})
}

func fire(m *fsm.FSM, event string) error {
	if err := m.Event(context.Background(), event); err != nil {
		return fmt.Errorf("day machine %s from %s: %w", event, m.Current(), err)
	}
	return nil
}
