package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/rewind/internal/sim"
	"github.com/roach88/rewind/internal/tick"
)

func TestTickRecorder_RecordsAndForwards(t *testing.T) {
	var forwarded []tick.Tick
	rec := NewTickRecorder(sim.StepFunc(func(tk tick.Tick) {
		forwarded = append(forwarded, tk)
	}))

	rec.Step(1)
	rec.Step(2)
	rec.Step(2)

	assert.Equal(t, []tick.Tick{1, 2, 2}, rec.Ticks)
	assert.Equal(t, []tick.Tick{1, 2, 2}, forwarded)
}

func TestTickRecorder_NilInner(t *testing.T) {
	rec := NewTickRecorder(nil)
	rec.Step(5)
	assert.Equal(t, []tick.Tick{5}, rec.Ticks)

	rec.Reset()
	assert.Empty(t, rec.Ticks)
}
