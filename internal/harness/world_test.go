package harness

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/tick"
)

func testWorld() *World {
	return NewWorld(32, DefaultRepeatHorizon, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWorld_Step_MovesCars(t *testing.T) {
	w := testWorld()
	w.Spawn(1, 0, 1)
	w.Spawn(2, 10, -2)

	for i := 1; i <= 3; i++ {
		w.Step(tick.Tick(i))
	}

	states := w.States()
	require.Len(t, states, 2)
	assert.Equal(t, 3.0, states[0].Pos)
	assert.Equal(t, 4.0, states[1].Pos)
	assert.Equal(t, 3, w.StepCount())
}

func TestWorld_ThrottleAccelerates(t *testing.T) {
	w := testWorld()
	w.Spawn(1, 0, 0)
	require.NoError(t, w.PushInput(1, 1, 2.0))
	require.NoError(t, w.PushInput(1, 2, 2.0))

	w.Step(1)
	w.Step(2)

	states := w.States()
	assert.Equal(t, 4.0, states[0].Vel)
	assert.Equal(t, 6.0, states[0].Pos)
	assert.Equal(t, uint64(0), w.InputMisses())
}

func TestWorld_PushInput_UnknownCar(t *testing.T) {
	w := testWorld()
	assert.Error(t, w.PushInput(9, 1, 1.0))
}

func TestWorld_Registry_Classification(t *testing.T) {
	w := testWorld()
	w.Spawn(1, 5, 2)

	reg, err := w.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"pos", "vel"}, reg.Components())

	entry, ok := reg.Lookup("pos")
	require.True(t, ok)
	v, ok := entry.Capture(1)
	require.True(t, ok)
	assert.Equal(t, 5.0, v)

	entry.Restore(1, 9.0)
	states := w.States()
	assert.Equal(t, 9.0, states[0].Pos)
}
