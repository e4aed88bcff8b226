package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlelab/internal/elab"
)

func TestRun_LeafRebuild(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/leaf_rebuild.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Diagnostics)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, TraceEvent{Seq: 1, Step: StepBuild, RunID: "run-1", Modules: 7}, result.Trace[0])
	assert.Equal(t, TraceEvent{Seq: 2, Step: StepLoad, File: "edits/leaf_v2.cue", Modules: 7}, result.Trace[1])
	assert.Equal(t, TraceEvent{
		Seq: 3, Step: StepRebuild, RunID: "run-2",
		Changed: []string{"WORK.LEAF(RTL)"}, Affected: 6, Modules: 7,
	}, result.Trace[2])
	assert.Contains(t, result.Modules, "WORK.LEAF(RTL) K=3 [P2]")
}

func TestRun_Unresolved(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/unresolved.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Diagnostics, 2)
	for _, d := range result.Diagnostics {
		assert.Equal(t, elab.CategoryResolution, d.Category)
		assert.False(t, d.Fatal)
	}
	assert.Equal(t, []string{"WORK.TOP(RTL) [P]"}, result.Modules)
}

func TestRun_FailedExpectationsAndAssertions(t *testing.T) {
	path := writeScenario(t, `
name: wrong
description: "every check is off by one"
design: design
toplevels: [work.top]
indexing: true
steps:
  - build: true
    expect: { modules: 8 }
  - rebuild: [work.mid(rtl)]
    expect: { affected: 2 }
assertions:
  - type: module_count
    count: 6
  - type: item_exists
    toplevel: work.top
    path: d
  - type: instance_labels
    path: TOP
    expect: [A, B]
  - type: diagnostics
    count: 0
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Equal(t, "steps[0] (build): expected modules 8, got 7", result.Errors[0])
	// MID N=2 and N=4 deleted, TOP re-bound.
	assert.Equal(t, "steps[1] (rebuild): expected affected 2, got 3", result.Errors[1])
	assert.Contains(t, result.Errors[2], "Assertion failed: module_count")
	assert.Contains(t, result.Errors[2], "Expected: 6")
	assert.Contains(t, result.Errors[3], "Assertion failed: item_exists (WORK.TOP d)")
	assert.Contains(t, result.Errors[4], `Expected: ["A" "B"]`)
}

func TestRun_BadDesign(t *testing.T) {
	s := &Scenario{Name: "x", Design: t.TempDir()}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load design")
}

func TestEvaluateAssertions_NoGraph(t *testing.T) {
	count := 1
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertModuleCount, Count: &count}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires a graph")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertNodeCount,
		Subject:  "WORK.TOP",
		Expected: "20",
		Actual:   "12",
		Trace:    []TraceEvent{{Seq: 1, Step: StepBuild, Modules: 7}},
	}
	assert.Equal(t, "Assertion failed: node_count (WORK.TOP)\n"+
		"  Expected: 20\n"+
		"  Actual: 12\n"+
		"\nSteps:\n"+
		"  [1] build: 7 modules, 0 diagnostics\n", err.Error())
}
