package harness

import (
	"fmt"
	"math"
)

// floatTolerance bounds acceptable drift when comparing expected car state.
// The simulation is pure float64 arithmetic replayed in a fixed order, so
// results are bit-identical in practice; the epsilon only absorbs decimal
// literals in scenario files that have no exact binary form.
const floatTolerance = 1e-9

// evaluateExpect checks the expect clause against the final state and
// returns one message per mismatch. All checks are evaluated; evaluation
// never fails fast.
func evaluateExpect(result *Result, expect *ExpectClause) []string {
	var failures []string

	if expect.Tick != nil && uint32(result.Final.Tick) != *expect.Tick {
		failures = append(failures, fmt.Sprintf(
			"final tick: expected %d, got %d", *expect.Tick, uint32(result.Final.Tick)))
	}

	for _, want := range expect.Cars {
		failures = append(failures, checkCar(result, &want)...)
	}

	if expect.Diagnostics != nil {
		failures = append(failures, checkDiagnostics(result, expect.Diagnostics)...)
	}

	return failures
}

func checkCar(result *Result, want *ExpectCar) []string {
	var got *CarState
	for i := range result.Final.Cars {
		if uint64(result.Final.Cars[i].Entity) == want.Entity {
			got = &result.Final.Cars[i]
			break
		}
	}
	if got == nil {
		return []string{fmt.Sprintf("car %d: not present in final state", want.Entity)}
	}

	var failures []string
	if want.Pos != nil && !closeEnough(got.Pos, *want.Pos) {
		failures = append(failures, fmt.Sprintf(
			"car %d pos: expected %v, got %v", want.Entity, *want.Pos, got.Pos))
	}
	if want.Vel != nil && !closeEnough(got.Vel, *want.Vel) {
		failures = append(failures, fmt.Sprintf(
			"car %d vel: expected %v, got %v", want.Entity, *want.Vel, got.Vel))
	}
	return failures
}

func checkDiagnostics(result *Result, want *ExpectDiagnostics) []string {
	var failures []string
	d := result.Final.Diagnostics

	check := func(name string, expected *uint64, actual uint64) {
		if expected != nil && actual != *expected {
			failures = append(failures, fmt.Sprintf(
				"diagnostics.%s: expected %d, got %d", name, *expected, actual))
		}
	}
	check("reconciliations", want.Reconciliations, d.Reconciliations)
	check("resimulated_ticks", want.ResimulatedTicks, d.ResimulatedTicks)
	check("clamped_corrections", want.ClampedCorrections, d.ClampedCorrections)
	check("stale_corrections", want.StaleCorrections, d.StaleCorrections)
	check("fast_forwards", want.FastForwards, d.FastForwards)

	return failures
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= floatTolerance
}
