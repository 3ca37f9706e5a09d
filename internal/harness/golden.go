package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rewind/internal/canon"
)

// toCanonicalMap reduces a result to the plain JSON data model so that the
// canonical encoder controls field order and float formatting. Zero-valued
// optional event fields are omitted, mirroring the JSON tags on TraceEvent.
func (r *Result) toCanonicalMap() map[string]any {
	trace := make([]any, len(r.Trace))
	for i, ev := range r.Trace {
		m := map[string]any{"op": ev.Op}
		if ev.Count != 0 {
			m["count"] = ev.Count
		}
		if ev.Tick != 0 {
			m["tick"] = ev.Tick
		}
		if ev.Entity != 0 {
			m["entity"] = ev.Entity
		}
		if ev.Throttle != 0 {
			m["throttle"] = ev.Throttle
		}
		if ev.Components != nil {
			comps := make([]any, len(ev.Components))
			for j, c := range ev.Components {
				comps[j] = c
			}
			m["components"] = comps
		}
		if ev.Stale {
			m["stale"] = true
		}
		if ev.Requested != 0 {
			m["requested"] = ev.Requested
		}
		if ev.Target != 0 {
			m["target"] = ev.Target
		}
		if ev.Clamped {
			m["clamped"] = true
		}
		if ev.Steps != 0 {
			m["steps"] = ev.Steps
		}
		trace[i] = m
	}

	cars := make([]any, len(r.Final.Cars))
	for i, c := range r.Final.Cars {
		cars[i] = map[string]any{
			"entity": uint64(c.Entity),
			"pos":    c.Pos,
			"vel":    c.Vel,
		}
	}

	d := r.Final.Diagnostics
	return map[string]any{
		"scenario": r.Scenario,
		"trace":    trace,
		"final": map[string]any{
			"tick": uint32(r.Final.Tick),
			"cars": cars,
			"diagnostics": map[string]any{
				"reconciliations":     d.Reconciliations,
				"resimulated_ticks":   d.ResimulatedTicks,
				"clamped_corrections": d.ClampedCorrections,
				"stale_corrections":   d.StaleCorrections,
				"fast_forwards":       d.FastForwards,
			},
			"input_misses": r.Final.InputMisses,
		},
	}
}

// RunWithGolden executes a scenario and compares its trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails; trace mismatches fail the
// test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-obtained result against the golden file
// named for the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := canon.Marshal(result.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
