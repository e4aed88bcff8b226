package harness

import "github.com/roach88/hdlelab/internal/elab"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Step string `json:"step"` // "build", "load" or "rebuild"

	// RunID is the id of the recorded run (build and rebuild only).
	RunID string `json:"run,omitempty"`

	// File is the loaded file as written in the scenario (load only).
	File string `json:"file,omitempty"`

	// Changed and Affected describe a rebuild.
	Changed  []string `json:"changed,omitempty"`
	Affected int      `json:"affected,omitempty"`

	// Modules is the module count after the step.
	Modules int `json:"modules"`

	// Diagnostics is the number of diagnostics reported so far.
	Diagnostics int `json:"diagnostics"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Diagnostics are the diagnostics reported across all steps.
	Diagnostics []elab.Diagnostic `json:"diagnostics,omitempty"`

	// Modules lists every module reachable from the toplevels, one line
	// per module: unit, generics and the labels of its top statements.
	// Sorted.
	Modules []string `json:"modules"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Modules: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an executed step.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
