// Package sim defines the contract between the rollback core and the host
// simulation.
//
// The core never owns the simulation loop or its scheduler. It calls into
// the host through Stepper exactly once per simulated tick, whether that
// tick is being simulated live or resimulated during a rollback. Step logic
// must not be able to distinguish the two cases: inputs are looked up by
// tick, not consumed from a live stream, so replaying a tick reads the same
// values the live pass read.
package sim

import "github.com/roach88/rewind/internal/tick"

// EntityID identifies a simulated entity. Assignment is owned by the host;
// the core only uses IDs as stable keys into history and input buffers.
type EntityID uint64

// Stepper runs one step of the host simulation for the given tick.
//
// Requirements on the implementation:
//   - Deterministic: identical starting state and inputs for a tick must
//     produce identical resulting state, bit for bit.
//   - Synchronous: Step must complete before returning. A resimulation pass
//     runs many steps back to back within one scheduling invocation.
//   - Single-threaded: Step is only ever called from the goroutine driving
//     the Reconciler; no internal locking is expected or wanted.
type Stepper interface {
	Step(t tick.Tick)
}

// StepFunc adapts a plain function to the Stepper interface.
type StepFunc func(t tick.Tick)

// Step calls f(t).
func (f StepFunc) Step(t tick.Tick) {
	f(t)
}
