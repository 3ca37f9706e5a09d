package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/tick"
)

type throttle struct {
	Accel float64
}

func TestQueue_PushGet(t *testing.T) {
	q := NewQueue[throttle](8)

	assert.True(t, q.Push(10, throttle{1}))
	assert.True(t, q.Push(11, throttle{2}))

	got, recorded := q.Get(10)
	assert.True(t, recorded)
	assert.Equal(t, throttle{1}, got)

	got, recorded = q.Get(11)
	assert.True(t, recorded)
	assert.Equal(t, throttle{2}, got)

	assert.Equal(t, uint64(0), q.Misses())
}

func TestQueue_GetIsRepeatable(t *testing.T) {
	q := NewQueue[throttle](8)
	q.Push(10, throttle{1})

	// Resimulation re-reads the same tick on every pass
	for i := 0; i < 3; i++ {
		got, recorded := q.Get(10)
		assert.True(t, recorded)
		assert.Equal(t, throttle{1}, got)
	}
}

func TestQueue_OutOfOrderPush(t *testing.T) {
	q := NewQueue[throttle](8)

	q.Push(12, throttle{3})
	q.Push(10, throttle{1})
	q.Push(11, throttle{2})

	for i, want := range []float64{1, 2, 3} {
		got, recorded := q.Get(tick.Tick(10 + i))
		assert.True(t, recorded)
		assert.Equal(t, want, got.Accel)
	}

	oldest, ok := q.OldestTick()
	require.True(t, ok)
	assert.Equal(t, tick.Tick(10), oldest)
}

func TestQueue_OverwriteSameTick(t *testing.T) {
	q := NewQueue[throttle](8)

	q.Push(10, throttle{1})
	q.Push(10, throttle{5})

	got, recorded := q.Get(10)
	assert.True(t, recorded)
	assert.Equal(t, throttle{5}, got)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_RepeatsLastKnownWithinHorizon(t *testing.T) {
	q := NewQueue[throttle](8)
	q.Push(10, throttle{1})

	// Within the horizon the last known input repeats
	for i := tick.Tick(11); i <= 15; i++ {
		got, recorded := q.Get(i)
		assert.False(t, recorded, "tick %d has no recorded input", i)
		assert.Equal(t, throttle{1}, got)
	}

	// Past the horizon the fallback (zero value) is substituted
	got, recorded := q.Get(16)
	assert.False(t, recorded)
	assert.Equal(t, throttle{}, got)

	assert.Equal(t, uint64(6), q.Misses())
}

func TestQueue_CustomFallbackAndHorizon(t *testing.T) {
	q := NewQueue[throttle](8,
		WithRepeatHorizon[throttle](0),
		WithFallback(throttle{-1}))
	q.Push(10, throttle{1})

	got, recorded := q.Get(11)
	assert.False(t, recorded)
	assert.Equal(t, throttle{-1}, got, "horizon 0 disables repeating")
}

func TestQueue_FallbackBeforeAnyInput(t *testing.T) {
	q := NewQueue[throttle](8)

	got, recorded := q.Get(10)
	assert.False(t, recorded)
	assert.Equal(t, throttle{}, got)
	assert.Equal(t, uint64(1), q.Misses())
}

func TestQueue_EvictsOldestAtCapacity(t *testing.T) {
	q := NewQueue[throttle](60)

	for i := tick.Tick(101); i <= 160; i++ {
		require.True(t, q.Push(i, throttle{float64(i)}))
	}
	require.Equal(t, 60, q.Len())

	// Pushing tick 161 evicts tick 101
	require.True(t, q.Push(161, throttle{161}))
	assert.Equal(t, 60, q.Len())

	oldest, ok := q.OldestTick()
	require.True(t, ok)
	assert.Equal(t, tick.Tick(102), oldest)

	// Tick 101 is now served by the fallback policy, not recorded data
	_, recorded := q.Get(101)
	assert.False(t, recorded)
}

func TestQueue_RejectsTooOldWhenFull(t *testing.T) {
	q := NewQueue[throttle](3)

	q.Push(10, throttle{1})
	q.Push(11, throttle{2})
	q.Push(12, throttle{3})

	assert.False(t, q.Push(5, throttle{0}), "older than everything retained")
	assert.Equal(t, 3, q.Len())
}

func TestQueue_InvalidCapacityPanics(t *testing.T) {
	assert.Panics(t, func() { NewQueue[throttle](0) })
}
