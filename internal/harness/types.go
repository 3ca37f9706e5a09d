package harness

import (
	"github.com/roach88/rewind/internal/rollback"
	"github.com/roach88/rewind/internal/tick"
)

// TraceEvent is one entry in a scenario's execution trace: a batch of live
// steps, a buffered input, a correction as the reconciler accepted or
// dropped it, or a completed reconciliation pass. Fields not relevant to an
// event's op are zero and omitted from serialized traces.
type TraceEvent struct {
	Op string `json:"op"` // "step", "input", "correction", "pass"

	// step
	Count int `json:"count,omitempty"`

	// step (resulting tick), input, correction
	Tick uint32 `json:"tick,omitempty"`

	// input, correction
	Entity uint64 `json:"entity,omitempty"`

	// input
	Throttle float64 `json:"throttle,omitempty"`

	// correction
	Components []string `json:"components,omitempty"`
	Stale      bool     `json:"stale,omitempty"`

	// pass
	Requested uint32 `json:"requested,omitempty"`
	Target    uint32 `json:"target,omitempty"`
	Clamped   bool   `json:"clamped,omitempty"`
	Steps     int    `json:"steps,omitempty"`
}

// Final is the world and reconciler state after the flow completes.
type Final struct {
	Tick        tick.Tick            `json:"tick"`
	Cars        []CarState           `json:"cars"`
	Diagnostics rollback.Diagnostics `json:"diagnostics"`
	InputMisses uint64               `json:"input_misses"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the executed scenario's name.
	Scenario string `json:"scenario"`

	// Pass is true if every expect clause matched.
	Pass bool `json:"pass"`

	// Trace contains all flow events in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expect-clause mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the state after the flow completed.
	Final Final `json:"final"`
}

// NewResult creates a new passing result for a scenario.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// AddError adds an expect mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
