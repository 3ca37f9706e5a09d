package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/sim"
	"github.com/roach88/rewind/internal/tick"
)

const car sim.EntityID = 1

func snap(x float64) Snapshot {
	return Snapshot{"pos": x}
}

func TestBuffer_RoundTrip(t *testing.T) {
	b := NewBuffer(5)

	require.NoError(t, b.Record(car, 10, snap(1.5)))

	got, ok := b.Lookup(car, 10)
	require.True(t, ok)
	assert.Equal(t, snap(1.5), got, "lookup must return the recorded values unchanged")
}

func TestBuffer_MissBeforeRecord(t *testing.T) {
	b := NewBuffer(5)

	_, ok := b.Lookup(car, 0)
	assert.False(t, ok)

	_, ok = b.OldestAvailable()
	assert.False(t, ok)

	_, ok = b.Newest()
	assert.False(t, ok)
}

func TestBuffer_EvictsOldestOnWrap(t *testing.T) {
	b := NewBuffer(3)

	for i := tick.Tick(0); i <= 3; i++ {
		require.NoError(t, b.Record(car, i, snap(float64(i))))
	}

	// Tick 0 was overwritten by tick 3 (same ring slot)
	_, ok := b.Lookup(car, 0)
	assert.False(t, ok, "evicted tick must report a miss")

	for i := tick.Tick(1); i <= 3; i++ {
		got, ok := b.Lookup(car, i)
		require.True(t, ok, "tick %d should be retained", i)
		assert.Equal(t, snap(float64(i)), got)
	}

	oldest, ok := b.OldestAvailable()
	require.True(t, ok)
	assert.Equal(t, tick.Tick(1), oldest)
}

func TestBuffer_OverwriteInPlace(t *testing.T) {
	b := NewBuffer(5)

	require.NoError(t, b.Record(car, 10, snap(1)))
	require.NoError(t, b.Record(car, 11, snap(2)))
	require.NoError(t, b.Record(car, 12, snap(3)))

	// Resimulation rewrites an already-recorded tick
	require.NoError(t, b.Record(car, 11, snap(20)))

	got, ok := b.Lookup(car, 11)
	require.True(t, ok)
	assert.Equal(t, snap(20), got)

	newest, ok := b.Newest()
	require.True(t, ok)
	assert.Equal(t, tick.Tick(12), newest, "in-place overwrite must not advance the ring")
}

func TestBuffer_RecordTooOld(t *testing.T) {
	b := NewBuffer(3)

	require.NoError(t, b.Record(car, 10, snap(1)))

	err := b.Record(car, 7, snap(0))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfWindow)
}

func TestBuffer_GapLeavesMiss(t *testing.T) {
	b := NewBuffer(5)

	require.NoError(t, b.Record(car, 10, snap(1)))
	require.NoError(t, b.Record(car, 13, snap(4)))

	_, ok := b.Lookup(car, 11)
	assert.False(t, ok, "skipped tick is a gap")
	_, ok = b.Lookup(car, 12)
	assert.False(t, ok, "skipped tick is a gap")

	got, ok := b.Lookup(car, 10)
	require.True(t, ok)
	assert.Equal(t, snap(1), got)

	oldest, ok := b.OldestAvailable()
	require.True(t, ok)
	assert.Equal(t, tick.Tick(10), oldest)
}

func TestBuffer_GapLargerThanCapacity(t *testing.T) {
	b := NewBuffer(3)

	require.NoError(t, b.Record(car, 10, snap(1)))
	require.NoError(t, b.Record(car, 100, snap(2)))

	_, ok := b.Lookup(car, 10)
	assert.False(t, ok)

	got, ok := b.Lookup(car, 100)
	require.True(t, ok)
	assert.Equal(t, snap(2), got)

	oldest, ok := b.OldestAvailable()
	require.True(t, ok)
	assert.Equal(t, tick.Tick(100), oldest)
}

func TestBuffer_FillGapInsideWindow(t *testing.T) {
	b := NewBuffer(5)

	require.NoError(t, b.Record(car, 10, snap(1)))
	require.NoError(t, b.Record(car, 13, snap(4)))

	// A late write can fill a gap that is still inside the window
	require.NoError(t, b.Record(car, 12, snap(3)))

	got, ok := b.Lookup(car, 12)
	require.True(t, ok)
	assert.Equal(t, snap(3), got)

	_, ok = b.Lookup(car, 11)
	assert.False(t, ok, "untouched gap tick still misses")
}

func TestBuffer_MultipleEntities(t *testing.T) {
	b := NewBuffer(5)
	const other sim.EntityID = 2

	require.NoError(t, b.Record(car, 10, snap(1)))
	require.NoError(t, b.Record(other, 10, snap(9)))

	got, ok := b.Lookup(car, 10)
	require.True(t, ok)
	assert.Equal(t, snap(1), got)

	got, ok = b.Lookup(other, 10)
	require.True(t, ok)
	assert.Equal(t, snap(9), got)

	_, ok = b.Lookup(sim.EntityID(3), 10)
	assert.False(t, ok, "entity without a snapshot at the tick misses")
}

func TestBuffer_LookupFutureTick(t *testing.T) {
	b := NewBuffer(5)
	require.NoError(t, b.Record(car, 10, snap(1)))

	_, ok := b.Lookup(car, 11)
	assert.False(t, ok)
}

func TestBuffer_CapacityOne(t *testing.T) {
	b := NewBuffer(1)

	require.NoError(t, b.Record(car, 5, snap(1)))
	require.NoError(t, b.Record(car, 6, snap(2)))

	_, ok := b.Lookup(car, 5)
	assert.False(t, ok)

	got, ok := b.Lookup(car, 6)
	require.True(t, ok)
	assert.Equal(t, snap(2), got)
}

func TestBuffer_InvalidCapacityPanics(t *testing.T) {
	assert.Panics(t, func() { NewBuffer(0) })
	assert.Panics(t, func() { NewBuffer(-1) })
}

func TestSnapshot_Clone(t *testing.T) {
	s := Snapshot{"pos": 1.0, "vel": 2.0}
	c := s.Clone()

	c["pos"] = 9.0
	assert.Equal(t, 1.0, s["pos"], "clone must not alias the original map")
	assert.Equal(t, 2.0, c["vel"])
}
