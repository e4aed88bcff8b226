package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/hdlelab/internal/ir"
)

// Snapshot is the deterministic part of a scenario result: the executed
// steps and the final module set.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Modules      []string     `json:"modules"`
}

// toCanonicalMap converts a Snapshot for ir.MarshalCanonical, which only
// handles maps, slices and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":         ev.Seq,
			"step":        ev.Step,
			"modules":     ev.Modules,
			"diagnostics": ev.Diagnostics,
		}
		if ev.RunID != "" {
			m["run"] = ev.RunID
		}
		if ev.File != "" {
			m["file"] = ev.File
		}
		if ev.Step == StepRebuild {
			m["changed"] = ev.Changed
			m["affected"] = ev.Affected
		}
		trace[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"modules":       s.Modules,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot execute. A snapshot mismatch
// fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the golden file named
// scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Modules:      result.Modules,
	}
	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
