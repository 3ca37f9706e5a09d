package harness

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/rewind/internal/input"
	"github.com/roach88/rewind/internal/rollback"
	"github.com/roach88/rewind/internal/sim"
	"github.com/roach88/rewind/internal/tick"
)

// World is a deterministic 1-D driving simulation used by scenarios: each
// car has a position driven by a velocity, and buffered throttle inputs
// accelerate it. Position is server-owned; velocity is recomputed during
// replay from the same inputs.
type World struct {
	cars     map[sim.EntityID]*car
	throttle map[sim.EntityID]*input.Queue[float64]
	order    []sim.EntityID

	frames  int
	horizon int
	log     *slog.Logger

	steps int
}

type car struct {
	pos float64
	vel float64
}

// CarState is one car's externally visible state.
type CarState struct {
	Entity sim.EntityID `json:"entity"`
	Pos    float64      `json:"pos"`
	Vel    float64      `json:"vel"`
}

// NewWorld creates an empty world. frames bounds input retention to match
// the reconciler's history depth; horizon is the input repeat horizon.
func NewWorld(frames, horizon int, log *slog.Logger) *World {
	return &World{
		cars:     make(map[sim.EntityID]*car),
		throttle: make(map[sim.EntityID]*input.Queue[float64]),
		frames:   frames,
		horizon:  horizon,
		log:      log,
	}
}

// Spawn adds a car. Spawning an existing entity resets its state.
func (w *World) Spawn(e sim.EntityID, pos, vel float64) {
	if _, exists := w.cars[e]; !exists {
		i, _ := slices.BinarySearch(w.order, e)
		w.order = slices.Insert(w.order, i, e)
	}
	w.cars[e] = &car{pos: pos, vel: vel}
}

// PushInput buffers a throttle input for a car at a tick.
func (w *World) PushInput(e sim.EntityID, t tick.Tick, throttle float64) error {
	if _, ok := w.cars[e]; !ok {
		return fmt.Errorf("harness: input for unknown car %d", e)
	}
	q, ok := w.throttle[e]
	if !ok {
		q = input.NewQueue[float64](w.frames,
			input.WithRepeatHorizon[float64](uint32(w.horizon)),
			input.WithLogger[float64](w.log),
		)
		w.throttle[e] = q
	}
	q.Push(t, throttle)
	return nil
}

// Step advances every car one tick: throttle accelerates, velocity moves.
// Iteration follows entity order so replay is deterministic.
func (w *World) Step(t tick.Tick) {
	w.steps++
	for _, e := range w.order {
		c := w.cars[e]
		if q, ok := w.throttle[e]; ok {
			thr, _ := q.Get(t)
			c.vel += thr
		}
		c.pos += c.vel
	}
}

// Registry classifies the world's components: position is authoritative
// (the server replicates it), velocity is predicted (replay recomputes it).
func (w *World) Registry() (*rollback.Registry, error) {
	reg := rollback.NewRegistry()
	err := reg.RegisterAuthoritative("pos",
		func(e sim.EntityID) (any, bool) {
			c, ok := w.cars[e]
			if !ok {
				return nil, false
			}
			return c.pos, true
		},
		func(e sim.EntityID, v any) {
			if c, ok := w.cars[e]; ok {
				c.pos = v.(float64)
			}
		},
	)
	if err != nil {
		return nil, err
	}
	err = reg.RegisterPredicted("vel",
		func(e sim.EntityID) (any, bool) {
			c, ok := w.cars[e]
			if !ok {
				return nil, false
			}
			return c.vel, true
		},
		func(e sim.EntityID, v any) {
			if c, ok := w.cars[e]; ok {
				c.vel = v.(float64)
			}
		},
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// States returns every car's state in entity order.
func (w *World) States() []CarState {
	states := make([]CarState, 0, len(w.order))
	for _, e := range w.order {
		c := w.cars[e]
		states = append(states, CarState{Entity: e, Pos: c.pos, Vel: c.vel})
	}
	return states
}

// StepCount returns how many simulation steps have run, replays included.
func (w *World) StepCount() int {
	return w.steps
}

// InputMisses returns the total missing-input substitutions across cars.
func (w *World) InputMisses() uint64 {
	var total uint64
	for _, q := range w.throttle {
		total += q.Misses()
	}
	return total
}
