package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a reconciliation test scenario: an initial world, a flow
// of simulation steps, inputs, and server corrections, and expectations on
// the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named by it.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Frames is the history depth in ticks. Defaults to 60.
	Frames int `yaml:"frames,omitempty"`

	// RepeatHorizon is the input repeat horizon in ticks. Defaults to 5.
	RepeatHorizon *int `yaml:"repeat_horizon,omitempty"`

	// Cars is the initial world: entity id, position, velocity.
	Cars []CarSpec `yaml:"cars"`

	// Flow is the ordered list of operations to run.
	Flow []FlowStep `yaml:"flow"`

	// Expect validates the final state after the flow completes.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// CarSpec is the initial state of one car.
type CarSpec struct {
	Entity uint64  `yaml:"entity"`
	Pos    float64 `yaml:"pos"`
	Vel    float64 `yaml:"vel"`
}

// FlowStep is one operation in the scenario flow. Exactly one field may be
// set per step.
type FlowStep struct {
	// Step advances the simulation by N live ticks.
	Step int `yaml:"step,omitempty"`

	// Input buffers a throttle input.
	Input *InputStep `yaml:"input,omitempty"`

	// Correction delivers an authoritative update.
	Correction *CorrectionStep `yaml:"correction,omitempty"`

	// Reconcile resolves all pending corrections.
	Reconcile bool `yaml:"reconcile,omitempty"`
}

// InputStep buffers a throttle value for a car at a tick.
type InputStep struct {
	Entity   uint64  `yaml:"entity"`
	Tick     uint32  `yaml:"tick"`
	Throttle float64 `yaml:"throttle"`
}

// CorrectionStep delivers authoritative component values for a car at a
// tick.
type CorrectionStep struct {
	Tick   uint32             `yaml:"tick"`
	Entity uint64             `yaml:"entity"`
	Values map[string]float64 `yaml:"values"`
}

// ExpectClause validates the final state. All checks are subset matches:
// only the fields present are validated.
type ExpectClause struct {
	// Tick is the expected current tick.
	Tick *uint32 `yaml:"tick,omitempty"`

	// Cars lists expected final car states.
	Cars []ExpectCar `yaml:"cars,omitempty"`

	// Diagnostics checks the reconciler's counters.
	Diagnostics *ExpectDiagnostics `yaml:"diagnostics,omitempty"`
}

// ExpectCar validates one car's final state.
type ExpectCar struct {
	Entity uint64   `yaml:"entity"`
	Pos    *float64 `yaml:"pos,omitempty"`
	Vel    *float64 `yaml:"vel,omitempty"`
}

// ExpectDiagnostics validates reconciler counters.
type ExpectDiagnostics struct {
	Reconciliations    *uint64 `yaml:"reconciliations,omitempty"`
	ResimulatedTicks   *uint64 `yaml:"resimulated_ticks,omitempty"`
	ClampedCorrections *uint64 `yaml:"clamped_corrections,omitempty"`
	StaleCorrections   *uint64 `yaml:"stale_corrections,omitempty"`
	FastForwards       *uint64 `yaml:"fast_forwards,omitempty"`
}

// Scenario defaults.
const (
	DefaultFrames        = 60
	DefaultRepeatHorizon = 5
)

// ScenarioDefaults supplies fallback values for optional scenario fields,
// typically sourced from the runtime configuration.
type ScenarioDefaults struct {
	Frames        int
	RepeatHorizon int
}

// LoadScenario reads, schema-validates, and parses a scenario YAML file.
// Returns an error if the file doesn't exist, fails CUE schema validation,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithDefaults(path, ScenarioDefaults{
		Frames:        DefaultFrames,
		RepeatHorizon: DefaultRepeatHorizon,
	})
}

// LoadScenarioWithDefaults is LoadScenario with caller-supplied fallbacks
// for frames and repeat_horizon.
func LoadScenarioWithDefaults(path string, defaults ScenarioDefaults) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return parseScenario(path, data, defaults)
}

// ParseScenario validates and decodes scenario YAML bytes. The path is used
// only for error positions.
func ParseScenario(path string, data []byte) (*Scenario, error) {
	return parseScenario(path, data, ScenarioDefaults{
		Frames:        DefaultFrames,
		RepeatHorizon: DefaultRepeatHorizon,
	})
}

func parseScenario(path string, data []byte, defaults ScenarioDefaults) (*Scenario, error) {
	// Schema validation first: CUE reports shape errors with positions,
	// which beats the decoder's type errors for hand-written files
	if err := ValidateScenarioBytes(path, data); err != nil {
		return nil, err
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Frames == 0 {
		scenario.Frames = defaults.Frames
	}
	if scenario.RepeatHorizon == nil {
		horizon := defaults.RepeatHorizon
		scenario.RepeatHorizon = &horizon
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks semantic rules the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Frames < 1 {
		return fmt.Errorf("frames must be at least 1")
	}
	if *s.RepeatHorizon < 0 {
		return fmt.Errorf("repeat_horizon must not be negative")
	}
	if len(s.Cars) == 0 {
		return fmt.Errorf("cars list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	seen := make(map[uint64]bool, len(s.Cars))
	for i, c := range s.Cars {
		if seen[c.Entity] {
			return fmt.Errorf("cars[%d]: duplicate entity %d", i, c.Entity)
		}
		seen[c.Entity] = true
	}

	for i, step := range s.Flow {
		if err := validateFlowStep(i, &step, seen); err != nil {
			return err
		}
	}

	if s.Expect != nil {
		for i, c := range s.Expect.Cars {
			if !seen[c.Entity] {
				return fmt.Errorf("expect.cars[%d]: unknown entity %d", i, c.Entity)
			}
		}
	}

	return nil
}

func validateFlowStep(index int, step *FlowStep, cars map[uint64]bool) error {
	set := 0
	if step.Step != 0 {
		set++
		if step.Step < 0 {
			return fmt.Errorf("flow[%d]: step must be positive", index)
		}
	}
	if step.Input != nil {
		set++
		if !cars[step.Input.Entity] {
			return fmt.Errorf("flow[%d].input: unknown entity %d", index, step.Input.Entity)
		}
	}
	if step.Correction != nil {
		set++
		if !cars[step.Correction.Entity] {
			return fmt.Errorf("flow[%d].correction: unknown entity %d", index, step.Correction.Entity)
		}
		if len(step.Correction.Values) == 0 {
			return fmt.Errorf("flow[%d].correction: values is required", index)
		}
	}
	if step.Reconcile {
		set++
	}
	if set != 1 {
		return fmt.Errorf("flow[%d]: exactly one of step, input, correction, reconcile is required", index)
	}
	return nil
}
