// Package harness executes reconciliation scenarios for conformance and
// regression testing.
//
// A scenario describes an initial world of cars, a flow of live steps,
// buffered inputs, and server corrections, and expectations on the final
// state. The harness runs the flow against a real reconciler over the
// deterministic 1-D car world, collects an execution trace, and evaluates
// the expect clause. Traces serialize to canonical JSON, so golden file
// comparison is byte-exact and stable across runs.
package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/rewind/internal/rollback"
	"github.com/roach88/rewind/internal/sim"
	"github.com/roach88/rewind/internal/tick"
)

// RunOption configures a scenario execution.
type RunOption func(*runConfig)

type runConfig struct {
	log      *slog.Logger
	recorder rollback.Recorder
}

// WithLogger sets the structured logger for the run. Defaults to a discard
// logger so tests stay quiet.
func WithLogger(log *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.log = log
	}
}

// WithRecorder attaches an additional reconciliation recorder (e.g. the
// SQLite journal) alongside the trace collector.
func WithRecorder(rec rollback.Recorder) RunOption {
	return func(c *runConfig) {
		c.recorder = rec
	}
}

// Run executes a scenario and returns the result.
//
// Each run builds a fresh world and reconciler, so scenarios are isolated
// and deterministic. Expect-clause mismatches land in Result.Errors with
// Pass=false; an error return means the scenario itself could not run.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	result := NewResult(scenario.Name)

	world := NewWorld(scenario.Frames, *scenario.RepeatHorizon, cfg.log)
	for _, c := range scenario.Cars {
		world.Spawn(sim.EntityID(c.Entity), c.Pos, c.Vel)
	}

	registry, err := world.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	var recorder rollback.Recorder = &traceCollector{result: result}
	if cfg.recorder != nil {
		recorder = multiRecorder{recorder, cfg.recorder}
	}

	rec, err := rollback.New(registry, world, scenario.Frames,
		rollback.WithLogger(cfg.log),
		rollback.WithRecorder(recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build reconciler: %w", err)
	}
	for _, c := range scenario.Cars {
		rec.Track(sim.EntityID(c.Entity))
	}

	for i, step := range scenario.Flow {
		if err := executeFlowStep(rec, world, result, &step); err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	result.Final = Final{
		Tick:        rec.Current(),
		Cars:        world.States(),
		Diagnostics: rec.Diagnostics(),
		InputMisses: world.InputMisses(),
	}

	if scenario.Expect != nil {
		for _, msg := range evaluateExpect(result, scenario.Expect) {
			result.AddError(msg)
		}
	}

	return result, nil
}

func executeFlowStep(rec *rollback.Reconciler, world *World, result *Result, step *FlowStep) error {
	switch {
	case step.Step > 0:
		for i := 0; i < step.Step; i++ {
			if err := rec.Step(); err != nil {
				return fmt.Errorf("step %d of %d: %w", i+1, step.Step, err)
			}
		}
		result.Trace = append(result.Trace, TraceEvent{
			Op:    "step",
			Count: step.Step,
			Tick:  uint32(rec.Current()),
		})

	case step.Input != nil:
		in := step.Input
		if err := world.PushInput(sim.EntityID(in.Entity), tick.Tick(in.Tick), in.Throttle); err != nil {
			return err
		}
		result.Trace = append(result.Trace, TraceEvent{
			Op:       "input",
			Entity:   in.Entity,
			Tick:     in.Tick,
			Throttle: in.Throttle,
		})

	case step.Correction != nil:
		c := step.Correction
		values := make(map[string]any, len(c.Values))
		for name, v := range c.Values {
			values[name] = v
		}
		err := rec.ApplyCorrection(rollback.Correction{
			Tick:   tick.Tick(c.Tick),
			Entity: sim.EntityID(c.Entity),
			Values: values,
		})
		if err != nil {
			return fmt.Errorf("correction at tick %d: %w", c.Tick, err)
		}
		// The trace event is appended by the collector, which sees whether
		// the reconciler accepted or dropped it

	case step.Reconcile:
		if err := rec.Reconcile(); err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
	}
	return nil
}

// traceCollector records reconciler events into the result trace.
type traceCollector struct {
	result *Result
}

func (tc *traceCollector) Correction(t tick.Tick, e sim.EntityID, components []string, hash string, stale bool) error {
	tc.result.Trace = append(tc.result.Trace, TraceEvent{
		Op:         "correction",
		Tick:       uint32(t),
		Entity:     uint64(e),
		Components: components,
		Stale:      stale,
	})
	return nil
}

func (tc *traceCollector) Pass(requested, target tick.Tick, clamped bool, steps int) error {
	tc.result.Trace = append(tc.result.Trace, TraceEvent{
		Op:        "pass",
		Requested: uint32(requested),
		Target:    uint32(target),
		Clamped:   clamped,
		Steps:     steps,
	})
	return nil
}

// multiRecorder fans reconciler events out to several recorders. The first
// failure wins; earlier recorders still receive the event.
type multiRecorder []rollback.Recorder

func (m multiRecorder) Correction(t tick.Tick, e sim.EntityID, components []string, hash string, stale bool) error {
	var firstErr error
	for _, rec := range m {
		if err := rec.Correction(t, e, components, hash, stale); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m multiRecorder) Pass(requested, target tick.Tick, clamped bool, steps int) error {
	var firstErr error
	for _, rec := range m {
		if err := rec.Pass(requested, target, clamped, steps); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
