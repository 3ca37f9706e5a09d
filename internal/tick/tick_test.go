package tick

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTick_Next(t *testing.T) {
	assert.Equal(t, Tick(1), Tick(0).Next())
	assert.Equal(t, Tick(101), Tick(100).Next())

	// Successor wraps at the end of the representable range
	assert.Equal(t, Tick(0), Tick(math.MaxUint32).Next())
}

func TestTick_Delta_Signed(t *testing.T) {
	assert.Equal(t, int32(5), Tick(100).Delta(95))
	assert.Equal(t, int32(-5), Tick(95).Delta(100))
	assert.Equal(t, int32(0), Tick(7).Delta(7))
}

func TestTick_Delta_Wraparound(t *testing.T) {
	// A tick just past the wrap point is still "later" than one just before it
	before := Tick(math.MaxUint32 - 1)
	after := before.Next().Next() // wrapped to 0

	assert.Equal(t, Tick(0), after)
	assert.Equal(t, int32(2), after.Delta(before))
	assert.Equal(t, int32(-2), before.Delta(after))
	assert.True(t, after.After(before))
	assert.True(t, before.Before(after))
}

func TestTick_Ordering(t *testing.T) {
	assert.True(t, Tick(10).After(9))
	assert.False(t, Tick(10).After(10))
	assert.False(t, Tick(10).After(11))

	assert.True(t, Tick(9).Before(10))
	assert.False(t, Tick(10).Before(10))
	assert.False(t, Tick(11).Before(10))
}

func TestTick_Distance(t *testing.T) {
	assert.Equal(t, uint32(5), Tick(100).Distance(95))
	assert.Equal(t, uint32(5), Tick(95).Distance(100))
	assert.Equal(t, uint32(0), Tick(42).Distance(42))

	// Distance across the wrap point stays small
	assert.Equal(t, uint32(3), Tick(1).Distance(math.MaxUint32-1))
}

func TestTick_MinMax(t *testing.T) {
	assert.Equal(t, Tick(10), Max(10, 3))
	assert.Equal(t, Tick(10), Max(3, 10))
	assert.Equal(t, Tick(3), Min(10, 3))
	assert.Equal(t, Tick(3), Min(3, 10))
	assert.Equal(t, Tick(7), Min(7, 7))
}

func TestTick_String(t *testing.T) {
	assert.Equal(t, "tick(95)", Tick(95).String())
}
