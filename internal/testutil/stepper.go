// Package testutil provides deterministic test doubles shared by the
// rollback test suites.
package testutil

import (
	"github.com/roach88/rewind/internal/sim"
	"github.com/roach88/rewind/internal/tick"
)

// TickRecorder wraps a Stepper and records every tick it is asked to
// simulate, in invocation order. Tests use the recording to assert how many
// times and for which ticks the host step function ran, which is how live
// stepping is distinguished from resimulation from the outside.
type TickRecorder struct {
	Inner sim.Stepper
	Ticks []tick.Tick
}

// NewTickRecorder wraps inner; a nil inner records ticks and does nothing
// else.
func NewTickRecorder(inner sim.Stepper) *TickRecorder {
	return &TickRecorder{Inner: inner}
}

// Step records t and forwards to the wrapped stepper.
func (r *TickRecorder) Step(t tick.Tick) {
	r.Ticks = append(r.Ticks, t)
	if r.Inner != nil {
		r.Inner.Step(t)
	}
}

// Reset clears the recording.
func (r *TickRecorder) Reset() {
	r.Ticks = nil
}
