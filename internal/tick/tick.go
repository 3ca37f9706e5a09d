// Package tick defines the simulation tick type and its arithmetic.
//
// A Tick identifies one discrete step of the fixed-timestep simulation.
// Ticks are pure values: comparison and distance are computed with wrapping
// arithmetic so a fixed-width counter keeps working after overflow, as long
// as two compared ticks are within half the representable range of each
// other. That holds in practice because the retention window is tiny
// compared to the tick space.
package tick

import "fmt"

// Tick is a totally-ordered identifier for one simulation step.
//
// The zero value is a valid starting tick. Ticks advance by exactly one per
// simulation step; the only place the "current" tick moves backwards is a
// rollback, which always ends by returning to or passing the pre-rollback
// tick.
type Tick uint32

// Next returns the successor tick.
func (t Tick) Next() Tick {
	return t + 1
}

// Delta returns the signed distance t - other, accounting for wraparound.
//
// A positive result means t is later than other.
func (t Tick) Delta(other Tick) int32 {
	return int32(t - other)
}

// After reports whether t is strictly later than other.
func (t Tick) After(other Tick) bool {
	return t.Delta(other) > 0
}

// Before reports whether t is strictly earlier than other.
func (t Tick) Before(other Tick) bool {
	return t.Delta(other) < 0
}

// Distance returns the absolute number of steps between t and other.
// Used for retention-window checks against a buffer capacity.
func (t Tick) Distance(other Tick) uint32 {
	d := t.Delta(other)
	if d < 0 {
		return uint32(-d)
	}
	return uint32(d)
}

// Max returns the later of a and b.
func Max(a, b Tick) Tick {
	if a.After(b) {
		return a
	}
	return b
}

// Min returns the earlier of a and b.
func Min(a, b Tick) Tick {
	if a.Before(b) {
		return a
	}
	return b
}

func (t Tick) String() string {
	return fmt.Sprintf("tick(%d)", uint32(t))
}
