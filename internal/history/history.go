// Package history implements the bounded per-tick snapshot store that
// rollback rewinds into.
//
// The buffer is a ring of `capacity` slots indexed by tick modulo capacity.
// Recording a new tick implicitly overwrites whatever occupied that slot
// `capacity` ticks ago; nothing is ever explicitly deallocated. This trades
// unlimited history for a bounded worst-case rewind depth, which is fine
// because network round-trip time bounds how far back a correction can
// plausibly arrive.
//
// Lookups on evicted or never-recorded ticks report a miss. A miss is an
// expected, recoverable outcome (a correction older than the retention
// horizon clamps to the oldest retained tick), never silently-wrong data.
package history

import (
	"errors"
	"fmt"

	"github.com/roach88/rewind/internal/sim"
	"github.com/roach88/rewind/internal/tick"
)

// ErrOutOfWindow is returned by Record when the target tick is older than
// the retention window. Callers treat it as a logic error: live recording
// always targets the newest tick, and resimulation only writes ticks that
// are still retained.
var ErrOutOfWindow = errors.New("tick older than retention window")

// Snapshot holds the captured values of all registered components for one
// entity at one tick, keyed by component name.
//
// A snapshot is owned by the buffer slot it occupies and is superseded when
// the ring wraps. Values are opaque to the buffer; the component registry
// produced them and knows how to restore them.
type Snapshot map[string]any

// Clone returns a shallow copy. Component values are immutable by contract
// (capture returns a copy), so sharing them between clones is safe.
func (s Snapshot) Clone() Snapshot {
	c := make(Snapshot, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

type slot struct {
	tick  tick.Tick
	valid bool
	snaps map[sim.EntityID]Snapshot
}

// Buffer is a fixed-capacity ring of per-tick entity snapshots.
//
// Not safe for concurrent use: the reconciler during a rollback pass and the
// live recording path are the only writers, and they are mutually exclusive
// within a scheduling tick by construction.
type Buffer struct {
	capacity int
	slots    []slot
	newest   tick.Tick
	started  bool
}

// NewBuffer creates a buffer retaining at most capacity consecutive ticks.
// capacity must be at least 1; anything else is a programming error.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		panic(fmt.Sprintf("history: capacity must be >= 1, got %d", capacity))
	}
	return &Buffer{
		capacity: capacity,
		slots:    make([]slot, capacity),
	}
}

// Capacity returns the maximum number of consecutive ticks retained.
func (b *Buffer) Capacity() int {
	return b.capacity
}

func (b *Buffer) index(t tick.Tick) int {
	return int(uint32(t) % uint32(b.capacity))
}

// reset prepares the slot for t, discarding whatever occupied it.
func (b *Buffer) reset(t tick.Tick) *slot {
	s := &b.slots[b.index(t)]
	s.tick = t
	s.valid = true
	s.snaps = make(map[sim.EntityID]Snapshot)
	return s
}

// Record stores a snapshot for one entity at the given tick.
//
// Recording a tick newer than the newest retained tick advances the ring,
// implicitly evicting the slots it wraps over; skipped ticks in between are
// left as gaps that report misses. Recording a tick at or before the newest
// retained tick overwrites in place, which is how resimulation replaces
// invalidated predictions. Recording a tick older than the retention window
// fails with ErrOutOfWindow.
func (b *Buffer) Record(e sim.EntityID, t tick.Tick, snap Snapshot) error {
	if !b.started {
		b.started = true
		b.newest = t
		b.reset(t).snaps[e] = snap
		return nil
	}

	d := t.Delta(b.newest)
	switch {
	case d > 0:
		if int64(d) >= int64(b.capacity) {
			// Everything currently retained falls out of the window
			for i := range b.slots {
				b.slots[i].valid = false
				b.slots[i].snaps = nil
			}
		} else {
			// Invalidate skipped slots so stale ticks can't alias
			for c := b.newest.Next(); c.Before(t); c = c.Next() {
				s := &b.slots[b.index(c)]
				s.valid = false
				s.snaps = nil
			}
		}
		b.newest = t
		b.reset(t).snaps[e] = snap

	case d < 0:
		if uint32(-d) >= uint32(b.capacity) {
			return fmt.Errorf("record at %s with newest %s: %w", t, b.newest, ErrOutOfWindow)
		}
		s := &b.slots[b.index(t)]
		if !s.valid || s.tick != t {
			// Slot was a gap or held an evicted tick
			s = b.reset(t)
		}
		s.snaps[e] = snap

	default:
		s := &b.slots[b.index(t)]
		if !s.valid || s.tick != t {
			s = b.reset(t)
		}
		s.snaps[e] = snap
	}
	return nil
}

// Lookup returns the snapshot recorded for the entity at the given tick.
// The second return is false on a miss: the tick was never recorded, has
// aged out of the window, or holds no snapshot for this entity.
func (b *Buffer) Lookup(e sim.EntityID, t tick.Tick) (Snapshot, bool) {
	if !b.started || t.After(b.newest) {
		return nil, false
	}
	if b.newest.Distance(t) >= uint32(b.capacity) {
		return nil, false
	}
	s := &b.slots[b.index(t)]
	if !s.valid || s.tick != t {
		return nil, false
	}
	snap, ok := s.snaps[e]
	return snap, ok
}

// OldestAvailable returns the earliest tick still retained. Used to clamp
// rewind targets. Returns false if nothing has been recorded yet.
func (b *Buffer) OldestAvailable() (tick.Tick, bool) {
	if !b.started {
		return 0, false
	}
	for ago := b.capacity - 1; ago >= 0; ago-- {
		c := b.newest - tick.Tick(ago)
		s := &b.slots[b.index(c)]
		if s.valid && s.tick == c {
			return c, true
		}
	}
	return 0, false
}

// Newest returns the most recently recorded tick.
// Returns false if nothing has been recorded yet.
func (b *Buffer) Newest() (tick.Tick, bool) {
	if !b.started {
		return 0, false
	}
	return b.newest, true
}
