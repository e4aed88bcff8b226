package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content to a scenario file next to a copy of the
// hierarchy design and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	designDir := filepath.Join(dir, "design")
	require.NoError(t, os.Mkdir(designDir, 0o755))
	src, err := os.ReadFile("testdata/scenarios/hierarchy/design.cue")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(designDir, "design.cue"), src, 0o644))

	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/leaf_rebuild.yaml")
	require.NoError(t, err)

	assert.Equal(t, "leaf_rebuild", s.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "hierarchy"), s.Design)
	assert.True(t, s.Indexing)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, StepBuild, s.Steps[0].Kind())
	assert.Equal(t, StepLoad, s.Steps[1].Kind())
	assert.Equal(t, filepath.Join("testdata", "scenarios", "edits", "leaf_v2.cue"), s.Steps[1].loadPath)
	assert.Equal(t, StepRebuild, s.Steps[2].Kind())
	require.Len(t, s.Steps[2].changed, 1)
	assert.Equal(t, "WORK.LEAF(RTL)", s.Steps[2].changed[0].UID())
	require.NotNil(t, s.Steps[2].Expect.Affected)
	assert.Equal(t, 6, *s.Steps[2].Expect.Affected)
	assert.Len(t, s.Assertions, 8)
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "misspelled assertions key"
design: design
toplevels: [work.top]
steps:
  - build: true
assertion:
  - type: module_count
    count: 7
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field assertion not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\ndesign: design\ntoplevels: [top]\nsteps: [{build: true}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\ndesign: design\ntoplevels: [top]\nsteps: [{build: true}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing design directory",
			content: "name: n\ndescription: d\ndesign: elsewhere\ntoplevels: [top]\nsteps: [{build: true}]\n",
			wantErr: "design directory not found",
		},
		{
			name:    "no toplevels",
			content: "name: n\ndescription: d\ndesign: design\nsteps: [{build: true}]\n",
			wantErr: "toplevels list is required",
		},
		{
			name:    "bad toplevel",
			content: "name: n\ndescription: d\ndesign: design\ntoplevels: [\"top(\"]\nsteps: [{build: true}]\n",
			wantErr: "toplevels[0]",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\ndesign: design\ntoplevels: [top]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "two step kinds",
			content: "name: n\ndescription: d\ndesign: design\ntoplevels: [top]\nsteps: [{build: true, rebuild: [leaf]}]\n",
			wantErr: "steps[0]: exactly one of build, load or rebuild",
		},
		{
			name:    "empty step",
			content: "name: n\ndescription: d\ndesign: design\ntoplevels: [top]\nsteps: [{}]\n",
			wantErr: "steps[0]: exactly one of build, load or rebuild",
		},
		{
			name:    "missing load file",
			content: "name: n\ndescription: d\ndesign: design\ntoplevels: [top]\nsteps: [{load: gone.cue}]\n",
			wantErr: "steps[0]: load file not found: gone.cue",
		},
		{
			name:    "affected on build",
			content: "name: n\ndescription: d\ndesign: design\ntoplevels: [top]\nsteps: [{build: true, expect: {affected: 1}}]\n",
			wantErr: "affected only applies to rebuild",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\ndesign: design\ntoplevels: [top]\nsteps: [{build: true}]\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "assertion without count",
			content: "name: n\ndescription: d\ndesign: design\ntoplevels: [top]\nsteps: [{build: true}]\nassertions: [{type: module_count}]\n",
			wantErr: "count is required for module_count",
		},
		{
			name:    "node_count without toplevel",
			content: "name: n\ndescription: d\ndesign: design\ntoplevels: [top]\nsteps: [{build: true}]\nassertions: [{type: node_count, count: 1}]\n",
			wantErr: "toplevel is required for node_count",
		},
		{
			name:    "instantiators with bad unit",
			content: "name: n\ndescription: d\ndesign: design\ntoplevels: [top]\nsteps: [{build: true}]\nassertions: [{type: instantiators, unit: \"a.(b)\"}]\n",
			wantErr: "assertions[0]: unit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
