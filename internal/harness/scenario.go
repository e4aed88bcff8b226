package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hdlelab/internal/ir"
)

// Scenario is one elaboration test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Design is the directory of CUE design files, relative to the
	// scenario file.
	Design string `yaml:"design"`

	// Toplevels are unit references built by build steps and rebuilt by
	// rebuild steps.
	Toplevels []string `yaml:"toplevels"`

	// Threads selects serial (0 or 1) or worker-pool scheduling.
	Threads int `yaml:"threads,omitempty"`

	// Indexing enables the connectivity indices.
	Indexing bool `yaml:"indexing,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final graph.
	Assertions []Assertion `yaml:"assertions"`

	toplevels []ir.DesignUnitID
}

// Step is one operation. Exactly one of Build, Load or Rebuild is set.
type Step struct {
	// Build runs every toplevel.
	Build bool `yaml:"build,omitempty"`

	// Load is a CUE file, relative to the scenario file. Its units replace
	// the design units with the same ids.
	Load string `yaml:"load,omitempty"`

	// Rebuild lists changed unit references.
	Rebuild []string `yaml:"rebuild,omitempty"`

	// Expect checks the step's outcome. Unset fields are not checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	loadPath string
	changed  []ir.DesignUnitID
}

// Kind returns "build", "load" or "rebuild".
func (s Step) Kind() string {
	switch {
	case s.Build:
		return StepBuild
	case s.Load != "":
		return StepLoad
	default:
		return StepRebuild
	}
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Modules is the module count after the step.
	Modules *int `yaml:"modules,omitempty"`

	// Affected is the number of modules a rebuild deleted or re-bound.
	Affected *int `yaml:"affected,omitempty"`

	// Diagnostics is the number of diagnostics reported so far.
	Diagnostics *int `yaml:"diagnostics,omitempty"`
}

// Assertion validates the final graph.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Toplevel is a unit reference (node_count, item_exists).
	Toplevel string `yaml:"toplevel,omitempty"`

	// Path is an item path below Toplevel (item_exists) or an absolute
	// structure or signal path (instance_labels, signal_connections).
	Path string `yaml:"path,omitempty"`

	// Unit is a unit reference (instantiators).
	Unit string `yaml:"unit,omitempty"`

	// Depth bounds node_count; unset counts the whole hierarchy.
	Depth *int `yaml:"depth,omitempty"`

	// Count is the expected number (module_count, node_count, diagnostics).
	Count *int `yaml:"count,omitempty"`

	// Category narrows diagnostics.
	Category string `yaml:"category,omitempty"`

	// Expect is the expected list, in order (instantiators,
	// instance_labels, signal_connections).
	Expect []string `yaml:"expect,omitempty"`
}

// Step kinds.
const (
	StepBuild   = "build"
	StepLoad    = "load"
	StepRebuild = "rebuild"
)

// Assertion type constants.
const (
	AssertModuleCount       = "module_count"
	AssertNodeCount         = "node_count"
	AssertItemExists        = "item_exists"
	AssertInstantiators     = "instantiators"
	AssertDiagnostics       = "diagnostics"
	AssertInstanceLabels    = "instance_labels"
	AssertSignalConnections = "signal_connections"
)

// LoadScenario reads and parses a scenario YAML file. Paths in the file are
// resolved against the file's directory. It fails if the file is
// malformed, contains unknown fields or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so typos like "assertion:" surface.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	if scenario.Design != "" && !filepath.IsAbs(scenario.Design) {
		scenario.Design = filepath.Join(base, scenario.Design)
	}
	for i := range scenario.Steps {
		if p := scenario.Steps[i].Load; p != "" {
			scenario.Steps[i].loadPath = p
			if !filepath.IsAbs(p) {
				scenario.Steps[i].loadPath = filepath.Join(base, p)
			}
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and parses unit references.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Design == "" {
		return fmt.Errorf("design is required")
	}
	if info, err := os.Stat(s.Design); err != nil || !info.IsDir() {
		return fmt.Errorf("design directory not found: %s", s.Design)
	}
	if len(s.Toplevels) == 0 {
		return fmt.Errorf("toplevels list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Threads < 0 {
		return fmt.Errorf("threads must be non-negative, got %d", s.Threads)
	}

	s.toplevels = s.toplevels[:0]
	for i, ref := range s.Toplevels {
		id, err := ir.ParseUnitRef(ref)
		if err != nil {
			return fmt.Errorf("toplevels[%d]: %w", i, err)
		}
		s.toplevels = append(s.toplevels, id)
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	set := 0
	if st.Build {
		set++
	}
	if st.Load != "" {
		set++
		if _, err := os.Stat(st.loadPath); err != nil {
			return fmt.Errorf("steps[%d]: load file not found: %s", index, st.Load)
		}
	}
	if len(st.Rebuild) > 0 {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of build, load or rebuild is required", index)
	}

	st.changed = st.changed[:0]
	for j, ref := range st.Rebuild {
		id, err := ir.ParseUnitRef(ref)
		if err != nil {
			return fmt.Errorf("steps[%d].rebuild[%d]: %w", index, j, err)
		}
		st.changed = append(st.changed, id)
	}
	if st.Expect != nil && st.Expect.Affected != nil && st.Kind() != StepRebuild {
		return fmt.Errorf("steps[%d].expect: affected only applies to rebuild", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	requireRef := func(field, ref string) error {
		if ref == "" {
			return fmt.Errorf("assertions[%d]: %s is required for %s", index, field, a.Type)
		}
		if _, err := ir.ParseUnitRef(ref); err != nil {
			return fmt.Errorf("assertions[%d]: %s: %w", index, field, err)
		}
		return nil
	}

	switch a.Type {
	case AssertModuleCount, AssertDiagnostics:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
	case AssertNodeCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for node_count", index)
		}
		return requireRef("toplevel", a.Toplevel)
	case AssertItemExists:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for item_exists", index)
		}
		return requireRef("toplevel", a.Toplevel)
	case AssertInstantiators:
		return requireRef("unit", a.Unit)
	case AssertInstanceLabels, AssertSignalConnections:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
