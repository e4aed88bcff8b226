package elab

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlelab/internal/design"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/store"
)

// hierarchySrc is a three-level design:
//
//	TOP (WIDTH=8)
//	  A: MID N=2   G(1..2).L: LEAF K=i
//	  B: MID N=2   (same module as A)
//	  C: MID N=4   G(1..4).L: LEAF K=i
//	  P: process
const hierarchySrc = `
entity: top: {
	generics: [{name: "WIDTH", type: "natural", default: 8}]
	ports: [
		{name: "clk", type: "std_logic"},
		{name: "q", dir: "out", type: "std_logic_vector", width: "WIDTH"},
	]
}

entity: mid: {
	generics: [{name: "N", type: "natural", default: 1}]
	ports: [{name: "x", type: "std_logic_vector", width: "N"}]
}

entity: leaf: {
	generics: [{name: "K", type: "integer"}]
}

architecture: top_rtl: {
	entity: "top"
	name:   "rtl"
	signals: [{name: "s", type: "std_logic_vector", width: 2}]
	statements: [
		{instance: {label: "a", entity: "mid", generics: {N: 2}, ports: {x: "s"}}},
		{instance: {label: "b", entity: "mid", generics: {N: 2}}},
		{instance: {label: "c", entity: "mid", generics: {N: {op: "/", l: "WIDTH", r: 2}}}},
		{process: {label: "p", sensitivity: ["clk"], reads: ["s"], writes: ["q"]}},
	]
}

architecture: mid_rtl: {
	entity: "mid"
	name:   "rtl"
	statements: [
		{for_generate: {label: "g", var: "i", from: 1, to: "N", body: [
			{instance: {label: "l", entity: "leaf", generics: {K: "i"}}},
		]}},
	]
}

architecture: leaf_rtl: {
	entity: "leaf"
	name:   "rtl"
	statements: [{process: {label: "p", reads: ["K"]}}]
}
`

var (
	topEntity = ir.EntityID("work", "top")
	midArch   = ir.ArchitectureID("work", "mid", "rtl")
	leafArch  = ir.ArchitectureID("work", "leaf", "rtl")
)

func loadDesign(t *testing.T, src string) *design.Library {
	t.Helper()
	lib, err := design.LoadSource("test.cue", src)
	require.NoError(t, err)
	return lib
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "elab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestManager builds a Manager over a fresh store and the given design.
func newTestManager(t *testing.T, lib Resolver, opts ...Option) (*Manager, *store.Store) {
	t.Helper()
	s := openStore(t)
	m := NewManager(s, lib, opts...)
	t.Cleanup(m.Close)
	return m, s
}

func buildHierarchy(t *testing.T, opts ...Option) (*Manager, *store.Store, *design.Library) {
	t.Helper()
	lib := loadDesign(t, hierarchySrc)
	opts = append([]Option{WithToplevels(topEntity)}, opts...)
	m, s := newTestManager(t, lib, opts...)
	_, err := m.BuildGraph(context.Background(), topEntity)
	require.NoError(t, err)
	return m, s, lib
}

// cancelingResolver cancels a context the first time a given
// architecture is resolved.
type cancelingResolver struct {
	*design.Library
	unit   ir.DesignUnitID
	cancel context.CancelFunc
	once   sync.Once
}

func (r *cancelingResolver) Architecture(id ir.DesignUnitID) (*design.Architecture, error) {
	if id == r.unit {
		r.once.Do(r.cancel)
	}
	return r.Library.Architecture(id)
}

// panickingResolver panics whenever a given architecture is resolved.
type panickingResolver struct {
	*design.Library
	unit ir.DesignUnitID
}

func (r *panickingResolver) Architecture(id ir.DesignUnitID) (*design.Architecture, error) {
	if id == r.unit {
		panic("resolver exploded")
	}
	return r.Library.Architecture(id)
}
