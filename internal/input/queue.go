// Package input buffers per-tick input values for rollback resimulation.
//
// Each predicted entity gets one Queue. Inputs are pushed as they are
// produced (locally captured, or delivered over the network possibly late
// and out of order) and looked up by tick, never consumed: a resimulation
// pass re-reads the same ticks the live pass read, so lookups must be
// repeatable. Retention is bounded to the same depth as the history buffer,
// so every tick that can be rewound to also has a retrievable input.
package input

import (
	"log/slog"
	"sort"

	"github.com/roach88/rewind/internal/tick"
)

// DefaultRepeatHorizon is the number of ticks a last-known input keeps
// repeating when no recorded input exists. Past the horizon the queue falls
// back to the zero input, on the theory that a long gap means the source
// stopped sending rather than that packets are late.
const DefaultRepeatHorizon = 5

type entry[T any] struct {
	tick  tick.Tick
	value T
}

// Queue is a bounded, tick-keyed input buffer.
//
// Missing-entry policy: Get for a tick with no recorded input substitutes
// the most recent earlier input if it is within the repeat horizon, and the
// configured fallback otherwise. Replay therefore always gets a value; the
// substitution is observable through Misses and the debug log but is never
// an error, because total determinism requires a value regardless.
//
// Not safe for concurrent use; producers and the reconciler run on the same
// goroutine by design.
type Queue[T any] struct {
	capacity int
	horizon  uint32
	fallback T
	entries  []entry[T] // sorted ascending by tick
	misses   uint64
	log      *slog.Logger
}

// Option configures a Queue.
type Option[T any] func(*Queue[T])

// WithRepeatHorizon sets how many ticks the last-known input repeats.
// Zero disables repeating entirely.
func WithRepeatHorizon[T any](ticks uint32) Option[T] {
	return func(q *Queue[T]) {
		q.horizon = ticks
	}
}

// WithFallback sets the input substituted when nothing can be repeated.
func WithFallback[T any](v T) Option[T] {
	return func(q *Queue[T]) {
		q.fallback = v
	}
}

// WithLogger sets the logger used for substitution diagnostics.
func WithLogger[T any](log *slog.Logger) Option[T] {
	return func(q *Queue[T]) {
		q.log = log
	}
}

// NewQueue creates a queue retaining at most capacity inputs. The capacity
// should match the history buffer depth.
func NewQueue[T any](capacity int, opts ...Option[T]) *Queue[T] {
	if capacity < 1 {
		panic("input: capacity must be >= 1")
	}
	q := &Queue[T]{
		capacity: capacity,
		horizon:  DefaultRepeatHorizon,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push records an input for a tick, evicting the oldest entry if the queue
// is full. A push for a tick the queue already holds overwrites it (late
// authoritative delivery supersedes a locally predicted input). Returns
// false if the input was rejected because it is older than everything the
// full queue retains.
func (q *Queue[T]) Push(t tick.Tick, v T) bool {
	i := sort.Search(len(q.entries), func(i int) bool {
		return !q.entries[i].tick.Before(t)
	})
	if i < len(q.entries) && q.entries[i].tick == t {
		q.entries[i].value = v
		return true
	}
	if len(q.entries) == q.capacity && i == 0 {
		return false
	}

	q.entries = append(q.entries, entry[T]{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = entry[T]{tick: t, value: v}

	if len(q.entries) > q.capacity {
		// FIFO eviction, mirroring the bounded rewind horizon
		copy(q.entries, q.entries[1:])
		q.entries = q.entries[:len(q.entries)-1]
	}
	return true
}

// Get returns the input to use when simulating the given tick. The second
// return reports whether a recorded input existed for exactly that tick;
// false means the repeat/fallback policy supplied the value.
func (q *Queue[T]) Get(t tick.Tick) (T, bool) {
	i := sort.Search(len(q.entries), func(i int) bool {
		return !q.entries[i].tick.Before(t)
	})
	if i < len(q.entries) && q.entries[i].tick == t {
		return q.entries[i].value, true
	}

	q.misses++
	if i > 0 {
		last := q.entries[i-1]
		if t.Distance(last.tick) <= q.horizon {
			q.log.Debug("input miss, repeating last known",
				"tick", t, "from", last.tick)
			return last.value, false
		}
	}
	q.log.Debug("input miss, using fallback", "tick", t)
	return q.fallback, false
}

// Misses returns how many lookups were served by the substitution policy
// instead of a recorded input. Diagnostics only.
func (q *Queue[T]) Misses() uint64 {
	return q.misses
}

// Len returns the number of retained inputs.
func (q *Queue[T]) Len() int {
	return len(q.entries)
}

// OldestTick returns the earliest tick with a retained input.
// Returns false if the queue is empty.
func (q *Queue[T]) OldestTick() (tick.Tick, bool) {
	if len(q.entries) == 0 {
		return 0, false
	}
	return q.entries[0].tick, true
}
