package elab

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/store"
	"github.com/roach88/hdlelab/internal/value"
)

func TestBind_Defaults(t *testing.T) {
	m, _ := newTestManager(t, loadDesign(t, hierarchySrc))

	b, err := m.Bind(ir.EntityID("work", "mid"), nil, ir.Location{})
	require.NoError(t, err)
	assert.Equal(t, midArch, b.Unit)
	require.Len(t, b.Generics, 1)
	assert.Equal(t, "N", b.Generics[0].Name)
	assert.Equal(t, "1", b.Generics[0].Value.String())

	// An explicit actual equal to the default binds to the same signature.
	explicit, err := m.Bind(midArch, []ig.Generic{{Name: "n", Value: value.IntOf(1)}}, ir.Location{})
	require.NoError(t, err)
	assert.Equal(t, b.Signature, explicit.Signature)

	other, err := m.Bind(midArch, []ig.Generic{{Name: "N", Value: value.IntOf(3)}}, ir.Location{})
	require.NoError(t, err)
	assert.NotEqual(t, b.Signature, other.Signature)
	assert.Equal(t, "WORK.MID(RTL)", other.Signature.UnitUID())
}

func TestBind_Errors(t *testing.T) {
	m, _ := newTestManager(t, loadDesign(t, hierarchySrc))
	leaf := ir.EntityID("work", "leaf")

	_, err := m.Bind(leaf, nil, ir.Location{})
	assert.True(t, IsBindingError(err), "missing actual without default: %v", err)

	_, err = m.Bind(leaf, []ig.Generic{
		{Name: "K", Value: value.IntOf(1)},
		{Name: "Z", Value: value.IntOf(2)},
	}, ir.Location{})
	assert.True(t, IsBindingError(err), "unknown formal: %v", err)
	assert.Contains(t, err.Error(), "no generic Z")

	_, err = m.Bind(ir.EntityID("work", "nope"), nil, ir.Location{})
	assert.True(t, IsResolutionError(err))

	// A negative actual does not fit NATURAL.
	_, err = m.Bind(midArch, []ig.Generic{{Name: "N", Value: value.IntOf(-1)}}, ir.Location{})
	require.Error(t, err)
	assert.True(t, value.IsEvaluationError(err))
}

func TestGetOrCreateModule_Memoizes(t *testing.T) {
	m, s := newTestManager(t, loadDesign(t, hierarchySrc))
	ctx := context.Background()

	b, err := m.Bind(midArch, []ig.Generic{{Name: "N", Value: value.IntOf(3)}}, ir.Location{})
	require.NoError(t, err)
	req := ModuleRequest{Path: "MID", Unit: b.Unit, Signature: b.Signature, Generics: b.Generics}

	first, err := m.GetOrCreateModule(ctx, req)
	require.NoError(t, err)
	second, err := m.GetOrCreateModule(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.StatementsElaborated)
	require.Len(t, second.Ports, 1)
	assert.Equal(t, "STD_LOGIC_VECTOR(2 downto 0)", second.Ports[0].Type.String())

	n, err := s.CountModules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().ModulesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().CacheHits))

	sigs, err := s.ListMembers(ctx, store.ListSignatures, "WORK.MID(RTL)")
	require.NoError(t, err)
	assert.Equal(t, []string{string(b.Signature)}, sigs)

	// Nothing was scheduled without Elaborate.
	assert.Equal(t, 0, m.queue.Len())
}

func TestGetOrCreateModule_RecordsInstantiator(t *testing.T) {
	m, _ := newTestManager(t, loadDesign(t, hierarchySrc))
	ctx := context.Background()

	b, err := m.Bind(midArch, nil, ir.Location{})
	require.NoError(t, err)
	_, err = m.GetOrCreateModule(ctx, ModuleRequest{
		Path:      "TOP.A",
		Parent:    ir.ArchitectureID("work", "top", "rtl"),
		Unit:      b.Unit,
		Signature: b.Signature,
		Generics:  b.Generics,
		Elaborate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.queue.Len())

	parents, err := m.FindInstantiators(ctx, midArch)
	require.NoError(t, err)
	assert.Equal(t, []ir.DesignUnitID{ir.ArchitectureID("work", "top", "rtl")}, parents)
}

func TestGetOrCreateModule_UnresolvedUnit(t *testing.T) {
	m, _ := newTestManager(t, loadDesign(t, hierarchySrc))

	_, err := m.GetOrCreateModule(context.Background(), ModuleRequest{
		Path:      "X",
		Unit:      ir.ArchitectureID("work", "ghost", "rtl"),
		Signature: "WORK.GHOST(RTL)#0000000000000000",
	})
	assert.True(t, IsResolutionError(err))

	diags := m.Report().Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, CategoryResolution, diags[0].Category)
	assert.False(t, diags[0].Fatal)
}

func TestBuildGraph_Hierarchy(t *testing.T) {
	m, s, _ := buildHierarchy(t)
	ctx := context.Background()

	top, err := m.FindModuleForToplevel(ctx, topEntity)
	require.NoError(t, err)
	assert.True(t, top.StatementsElaborated)
	assert.Equal(t, "TOP", top.Path)
	require.NotNil(t, top.Root)
	assert.Equal(t, "RTL", top.Root.Label)

	insts := top.Instantiations()
	require.Len(t, insts, 3)
	assert.Equal(t, insts[0].Signature, insts[1].Signature, "A and B share a module")
	assert.NotEqual(t, insts[0].Signature, insts[2].Signature)
	assert.Equal(t, "(WIDTH / 2)", insts[2].GenericMap[0].Actual)

	n, err := s.CountModules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, int64(7), m.JobsRun())
	assert.Empty(t, m.Report().Diagnostics())

	c, err := m.FindModule(ctx, insts[2].Signature)
	require.NoError(t, err)
	assert.Equal(t, "TOP.C", c.Path)
	assert.Len(t, c.Instantiations(), 4)
}

func TestBuildGraph_SecondBuildRunsNoJobs(t *testing.T) {
	m, s, _ := buildHierarchy(t)
	ctx := context.Background()

	_, err := m.BuildGraph(ctx, topEntity)
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.JobsRun())

	n, err := s.CountModules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestBuildGraph_RecordsRun(t *testing.T) {
	_, s, _ := buildHierarchy(t, WithRunIDGenerator(NewFixedGenerator("run-1")))

	builds, err := s.Builds(context.Background())
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "run-1", builds[0].RunID)
	assert.Equal(t, "build", builds[0].Kind)
	assert.Equal(t, []string{"WORK.TOP"}, builds[0].Toplevels)
	assert.Equal(t, 7, builds[0].Modules)
	assert.False(t, builds[0].Canceled)
}

func TestBuildGraph_ToplevelNotFound(t *testing.T) {
	m, _ := newTestManager(t, loadDesign(t, hierarchySrc))

	_, err := m.BuildGraph(context.Background(), ir.EntityID("work", "nope"))
	assert.True(t, IsResolutionError(err))
	assert.Equal(t, 1, m.Report().Len())
}

func TestBuildAll_SkipsUnresolvedToplevels(t *testing.T) {
	lib := loadDesign(t, hierarchySrc)
	m, _ := newTestManager(t, lib, WithToplevels(ir.EntityID("work", "nope"), topEntity))

	mods, err := m.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "TOP", mods[0].Path)
	assert.Equal(t, 1, m.Report().Len())
}

func TestBuildGraph_UnresolvedInstance(t *testing.T) {
	src := `
entity: top: {}
architecture: rtl: {
	entity: "top"
	statements: [
		{instance: {label: "u", entity: "missing"}},
		{process: {label: "p"}},
	]
}
`
	m, _ := newTestManager(t, loadDesign(t, src))

	top, err := m.BuildGraph(context.Background(), topEntity)
	require.NoError(t, err)
	assert.True(t, top.StatementsElaborated)

	_, ok := top.Root.Find("U")
	assert.False(t, ok, "unresolved instances are left out")
	_, ok = top.Root.Find("P")
	assert.True(t, ok)

	diags := m.Report().Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, CategoryResolution, diags[0].Category)
	assert.False(t, m.Report().HasFatal())
	assert.Contains(t, diags[0].String(), "warning")
}

func TestBuildGraph_UnresolvedInstanceReportedPerSite(t *testing.T) {
	src := `
entity: top: {}
architecture: rtl: {
	entity: "top"
	statements: [
		{instance: {label: "u0", entity: "missing"}},
		{instance: {label: "u1", entity: "missing"}},
	]
}
`
	m, _ := newTestManager(t, loadDesign(t, src))

	_, err := m.BuildGraph(context.Background(), topEntity)
	require.NoError(t, err)

	diags := m.Report().Diagnostics()
	require.Len(t, diags, 2, "one diagnostic per instantiation site")
	for _, d := range diags {
		assert.Equal(t, CategoryResolution, d.Category)
		assert.Contains(t, d.Message, "WORK.MISSING")
	}
	assert.NotEqual(t, diags[0].Location, diags[1].Location)

	// The cached toplevel is not elaborated again, so nothing is re-reported.
	_, err = m.BuildGraph(context.Background(), topEntity)
	require.NoError(t, err)
	assert.Len(t, m.Report().Diagnostics(), 2)
}

func TestBuildGraph_EvaluationFailure(t *testing.T) {
	src := `
entity: top: {}
entity: leaf: {generics: [{name: "K", type: "integer"}]}
architecture: top_rtl: {
	entity: "top"
	name:   "rtl"
	statements: [{instance: {label: "u", entity: "leaf", generics: {K: {op: "/", l: 1, r: 0}}}}]
}
architecture: leaf_rtl: {entity: "leaf", name: "rtl"}
`
	m, _ := newTestManager(t, loadDesign(t, src))

	top, err := m.BuildGraph(context.Background(), topEntity)
	require.NoError(t, err, "job failures are diagnostics, not build errors")
	assert.False(t, top.StatementsElaborated)

	diags := m.Report().Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, CategoryEvaluation, diags[0].Category)
	assert.True(t, diags[0].Fatal)
	assert.Contains(t, diags[0].Message, "by zero")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().JobFailures))
}

func TestBuildGraph_JobPanic(t *testing.T) {
	lib := loadDesign(t, hierarchySrc)
	m, _ := newTestManager(t, &panickingResolver{Library: lib, unit: leafArch})

	_, err := m.BuildGraph(context.Background(), topEntity)
	require.NoError(t, err)

	diags := m.Report().Diagnostics()
	require.NotEmpty(t, diags)
	for _, d := range diags {
		assert.Equal(t, CategoryInternal, d.Category)
		assert.True(t, d.Fatal)
		assert.Contains(t, d.Message, "resolver exploded")
	}
}

func TestBuildGraph_Parallel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lib := loadDesign(t, hierarchySrc)
	m, s := newTestManager(t, lib, WithThreads(4), WithPollInterval(time.Millisecond))

	top, err := m.BuildGraph(ctx, topEntity)
	require.NoError(t, err)
	assert.True(t, top.StatementsElaborated)

	n, err := s.CountModules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	// A module may be scheduled again just after it finished; the second
	// job finds it elaborated.
	assert.GreaterOrEqual(t, m.JobsRun(), int64(7))

	count, err := m.CountNodes(ctx, topEntity, -1)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
	assert.Empty(t, m.Report().Diagnostics())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Metrics().JobsPending))
}

func TestBuildGraph_Canceled(t *testing.T) {
	tests := []struct {
		name    string
		threads int
	}{
		{"serial", 1},
		{"parallel", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/before start", func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			m, s := newTestManager(t, loadDesign(t, hierarchySrc),
				WithThreads(tt.threads), WithPollInterval(time.Millisecond))
			_, err := m.BuildGraph(ctx, topEntity)
			assert.ErrorIs(t, err, context.Canceled)

			builds, err := s.Builds(context.Background())
			require.NoError(t, err)
			require.Len(t, builds, 1)
			assert.True(t, builds[0].Canceled)
		})

		t.Run(tt.name+"/during build", func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			runCtx, stop := context.WithCancel(ctx)
			defer stop()

			lib := loadDesign(t, hierarchySrc)
			r := &cancelingResolver{Library: lib, unit: leafArch, cancel: stop}
			m, s := newTestManager(t, r, WithThreads(tt.threads), WithPollInterval(time.Millisecond))

			_, err := m.BuildGraph(runCtx, topEntity)
			assert.ErrorIs(t, err, context.Canceled)
			require.NoError(t, ctx.Err(), "build did not stop promptly")

			n, err := s.CountModules(context.Background())
			require.NoError(t, err)
			assert.Less(t, n, 7)
			assert.Equal(t, 0, m.queue.Len())

			if tt.threads == 1 {
				// No diagnostics for interrupted jobs.
				assert.Empty(t, m.Report().Diagnostics())
			}
		})
	}
}

func TestFindItem(t *testing.T) {
	m, _, _ := buildHierarchy(t)
	ctx := context.Background()

	item, err := m.FindItem(ctx, topEntity, "")
	require.NoError(t, err)
	assert.Nil(t, item.Statement)
	assert.Equal(t, "TOP", item.Module.Path)

	item, err = m.FindItem(ctx, topEntity, "a.g(2).l")
	require.NoError(t, err)
	inst, ok := item.Statement.(*ig.Instantiation)
	require.True(t, ok)
	assert.Equal(t, "L", inst.Label)
	assert.Equal(t, "TOP.A.G(2).L", inst.Path)
	assert.Equal(t, midArch, item.Module.Unit)
	assert.Equal(t, "2", inst.Generics[0].Value.String())

	item, err = m.FindItem(ctx, topEntity, "C.G(4)")
	require.NoError(t, err)
	st, ok := item.Statement.(*ig.Structure)
	require.True(t, ok)
	assert.Equal(t, ig.KindForGenerate, st.Kind)
	assert.Equal(t, "4", st.Param.Value.String())

	_, err = m.FindItem(ctx, topEntity, "A.G(3)")
	assert.ErrorContains(t, err, `no statement "G(3)"`)

	_, err = m.FindItem(ctx, topEntity, "P.X")
	assert.ErrorContains(t, err, "has no children")
}

func TestCountNodes(t *testing.T) {
	m, _, _ := buildHierarchy(t)
	ctx := context.Background()

	tests := []struct {
		depth int
		want  int
	}{
		{-1, 20},
		{0, 1},
		{1, 12},
		{2, 20},
	}
	for _, tt := range tests {
		n, err := m.CountNodes(ctx, topEntity, tt.depth)
		require.NoError(t, err)
		assert.Equal(t, tt.want, n, "depth %d", tt.depth)
	}

	n, err := m.CountNodes(ctx, ir.EntityID("work", "mid"), -1)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "MID with default generics was never built")
}

func TestFindInstantiators(t *testing.T) {
	m, _, _ := buildHierarchy(t)
	ctx := context.Background()

	parents, err := m.FindInstantiators(ctx, leafArch)
	require.NoError(t, err)
	assert.Equal(t, []ir.DesignUnitID{midArch}, parents)

	parents, err = m.FindInstantiators(ctx, ir.ArchitectureID("work", "top", "rtl"))
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestIndexing(t *testing.T) {
	m, _, _ := buildHierarchy(t, WithIndexing(true))
	ctx := context.Background()

	labels, err := m.InstanceLabels(ctx, "TOP")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, labels)

	labels, err = m.InstanceLabels(ctx, "TOP.C.G(3)")
	require.NoError(t, err)
	assert.Equal(t, []string{"L"}, labels)

	conns, err := m.SignalConnections(ctx, "TOP.S")
	require.NoError(t, err)
	assert.Equal(t, []string{"TOP.A", "TOP.P"}, conns)

	conns, err = m.SignalConnections(ctx, "TOP.CLK")
	require.NoError(t, err)
	assert.Equal(t, []string{"TOP.P"}, conns)
}

func TestDeleteModule(t *testing.T) {
	m, s, _ := buildHierarchy(t, WithIndexing(true))
	ctx := context.Background()

	top, err := m.FindModuleForToplevel(ctx, topEntity)
	require.NoError(t, err)
	require.NoError(t, m.deleteModule(ctx, top.Signature))

	_, err = m.FindModule(ctx, top.Signature)
	assert.ErrorIs(t, err, ig.ErrModuleNotFound)

	sigs, err := s.ListMembers(ctx, store.ListSignatures, "WORK.TOP(RTL)")
	require.NoError(t, err)
	assert.Empty(t, sigs)

	// TOP no longer instantiates MID.
	parents, err := m.FindInstantiators(ctx, midArch)
	require.NoError(t, err)
	assert.Empty(t, parents)

	labels, err := m.InstanceLabels(ctx, "TOP")
	require.NoError(t, err)
	assert.Empty(t, labels)

	// Deleting twice is harmless.
	require.NoError(t, m.deleteModule(ctx, top.Signature))
}

func TestRebuildNodes_ArchitectureChanged(t *testing.T) {
	m, s, lib := buildHierarchy(t, WithIndexing(true))
	ctx := context.Background()

	before, err := s.ListMembers(ctx, store.ListSignatures, leafArch.UID())
	require.NoError(t, err)
	require.Len(t, before, 4)

	changed := loadDesign(t, strings.Replace(hierarchySrc,
		`statements: [{process: {label: "p", reads: ["K"]}}]`,
		`statements: [{process: {label: "p2", reads: ["K"]}}]`, 1))
	arch, err := changed.Architecture(leafArch)
	require.NoError(t, err)
	lib.Replace(arch)

	n, err := m.RebuildNodes(ctx, []ir.DesignUnitID{leafArch})
	require.NoError(t, err)
	assert.Equal(t, 6, n, "4 LEAF modules deleted, 2 MID modules invalidated")
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Metrics().RebuildDeleted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Metrics().RebuildInvalidated))
	assert.Equal(t, int64(11), m.JobsRun())

	after, err := s.ListMembers(ctx, store.ListSignatures, leafArch.UID())
	require.NoError(t, err)
	assert.ElementsMatch(t, before, after)

	item, err := m.FindItem(ctx, topEntity, "A.G(1).L.P2")
	require.NoError(t, err)
	assert.Equal(t, "TOP.A.G(1).L.P2", item.Statement.(*ig.Process).Path)

	count, err := m.CountNodes(ctx, topEntity, -1)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
	assert.Empty(t, m.Report().Diagnostics())
}

func TestRebuildNodes_DefaultChanged(t *testing.T) {
	m, s, lib := buildHierarchy(t)
	ctx := context.Background()

	before, err := s.ListMembers(ctx, store.ListSignatures, leafArch.UID())
	require.NoError(t, err)

	changed := loadDesign(t, strings.Replace(hierarchySrc,
		`generics: [{name: "K", type: "integer"}]`,
		`generics: [{name: "K", type: "integer"}, {name: "M", type: "natural", default: 3}]`, 1))
	ent, err := changed.Entity(leafArch)
	require.NoError(t, err)
	lib.Replace(ent)

	n, err := m.RebuildNodes(ctx, []ir.DesignUnitID{ir.EntityID("work", "leaf")})
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	after, err := s.ListMembers(ctx, store.ListSignatures, leafArch.UID())
	require.NoError(t, err)
	require.Len(t, after, 4)
	for _, sig := range after {
		assert.NotContains(t, before, sig)
	}

	// Every instantiation points at a live module.
	for _, uid := range []ir.DesignUnitID{midArch} {
		sigs, err := s.ListMembers(ctx, store.ListSignatures, uid.UID())
		require.NoError(t, err)
		for _, sig := range sigs {
			mod, err := m.FindModule(ctx, ir.Signature(sig))
			require.NoError(t, err)
			for _, inst := range mod.Instantiations() {
				child, err := m.FindModule(ctx, inst.Signature)
				require.NoError(t, err, inst.Path)
				assert.True(t, child.StatementsElaborated)
				require.Len(t, child.Generics, 2)
				assert.Equal(t, "3", child.Generics[1].Value.String())
			}
		}
	}
}

func TestRebuildNodes_DefaultArchitectureChanged(t *testing.T) {
	m, s, lib := buildHierarchy(t)
	ctx := context.Background()

	// LEAF gains a second architecture, which becomes its default.
	changed := loadDesign(t, strings.Replace(hierarchySrc,
		"entity: \"leaf\"\n\tname:   \"rtl\"",
		"entity: \"leaf\"\n\tname:   \"fast\"", 1))
	fast := ir.ArchitectureID("work", "leaf", "fast")
	arch, err := changed.Architecture(fast)
	require.NoError(t, err)
	require.NoError(t, lib.Add(arch))

	// The entity maps to its new default, which nothing was built from yet.
	n, err := m.RebuildNodes(ctx, []ir.DesignUnitID{ir.EntityID("work", "leaf")})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Naming the old default re-binds its instantiators to the new one.
	n, err = m.RebuildNodes(ctx, []ir.DesignUnitID{leafArch})
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	old, err := s.ListMembers(ctx, store.ListSignatures, leafArch.UID())
	require.NoError(t, err)
	assert.Empty(t, old)

	sigs, err := s.ListMembers(ctx, store.ListSignatures, fast.UID())
	require.NoError(t, err)
	assert.Len(t, sigs, 4)

	parents, err := m.FindInstantiators(ctx, fast)
	require.NoError(t, err)
	assert.Equal(t, []ir.DesignUnitID{midArch}, parents)
}

func TestRebuildNodes_Canceled(t *testing.T) {
	m, s, _ := buildHierarchy(t, WithRunIDGenerator(NewFixedGenerator("build", "rebuild")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.RebuildNodes(ctx, []ir.DesignUnitID{leafArch})
	assert.ErrorIs(t, err, context.Canceled)

	builds, err := s.Builds(context.Background())
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, "rebuild", builds[1].Kind)
	assert.True(t, builds[1].Canceled)
}
